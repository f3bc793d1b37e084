// Package validate enforces request schemas at request time. Generated
// registration code embeds each route's serialized schema document and
// compiles it once at startup; the compiled validator is immutable and safe
// for concurrent use across requests.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Error is a structured validation failure. Path is a JSON pointer into the
// offending payload location.
type Error struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   any    `json:"actual"`
	Reason   string `json:"reason"`
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed at %s: %s", e.Path, e.Reason)
}

// RequestValidator validates payloads against one compiled schema.
type RequestValidator struct {
	root *openapi3.SchemaRef
}

type wireDoc struct {
	Schema     json.RawMessage            `json:"schema"`
	Components map[string]json.RawMessage `json:"components"`
}

// Compile parses a serialized schema document ({"schema": ..., "components":
// {...}}) and links every $ref to its component in place. Reference cycles
// are fine: components are unmarshaled before linking, so a self-referential
// component links to its own value.
func Compile(data []byte) (*RequestValidator, error) {
	var doc wireDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("validate: parse schema document: %w", err)
	}
	if len(doc.Schema) == 0 {
		return nil, fmt.Errorf("validate: schema document has no root schema")
	}

	components := make(map[string]*openapi3.SchemaRef, len(doc.Components))
	for name, raw := range doc.Components {
		var sr openapi3.SchemaRef
		if err := sr.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("validate: parse component %s: %w", name, err)
		}
		components[name] = &sr
	}

	var root openapi3.SchemaRef
	if err := root.UnmarshalJSON(doc.Schema); err != nil {
		return nil, fmt.Errorf("validate: parse root schema: %w", err)
	}

	seen := map[*openapi3.SchemaRef]bool{}
	if err := link(&root, components, seen); err != nil {
		return nil, err
	}
	for name, sr := range components {
		if err := link(sr, components, seen); err != nil {
			return nil, fmt.Errorf("validate: component %s: %w", name, err)
		}
	}
	return &RequestValidator{root: &root}, nil
}

// MustCompile is Compile for generated code, panicking on malformed input.
func MustCompile(data []byte) *RequestValidator {
	v, err := Compile(data)
	if err != nil {
		panic(err)
	}
	return v
}

func link(ref *openapi3.SchemaRef, components map[string]*openapi3.SchemaRef, seen map[*openapi3.SchemaRef]bool) error {
	if ref == nil || seen[ref] {
		return nil
	}
	seen[ref] = true

	if ref.Value == nil && ref.Ref != "" {
		name := strings.TrimPrefix(ref.Ref, "#/components/schemas/")
		target, ok := components[name]
		if !ok {
			return fmt.Errorf("validate: unresolved schema reference %q", ref.Ref)
		}
		ref.Value = target.Value
	}
	s := ref.Value
	if s == nil {
		return fmt.Errorf("validate: schema reference %q has no value", ref.Ref)
	}

	for _, child := range s.OneOf {
		if err := link(child, components, seen); err != nil {
			return err
		}
	}
	for _, child := range s.AnyOf {
		if err := link(child, components, seen); err != nil {
			return err
		}
	}
	for _, child := range s.AllOf {
		if err := link(child, components, seen); err != nil {
			return err
		}
	}
	if err := link(s.Not, components, seen); err != nil {
		return err
	}
	if err := link(s.Items, components, seen); err != nil {
		return err
	}
	if err := link(s.AdditionalProperties.Schema, components, seen); err != nil {
		return err
	}
	for _, child := range s.Properties {
		if err := link(child, components, seen); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks payload against the compiled schema. The payload is never
// mutated; on mismatch a structured *Error describes the first failure.
func (v *RequestValidator) Validate(payload any) error {
	err := v.root.Value.VisitJSON(payload, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	return toError(err)
}

// Schema exposes the compiled root schema, mainly so middleware can decode
// textual path and query values according to their declared types.
func (v *RequestValidator) Schema() *openapi3.Schema { return v.root.Value }

func toError(err error) *Error {
	if me, ok := err.(openapi3.MultiError); ok && len(me) > 0 {
		return toError(me[0])
	}
	if se, ok := err.(*openapi3.SchemaError); ok {
		out := &Error{Reason: se.Reason, Actual: se.Value}
		if parts := se.JSONPointer(); len(parts) > 0 {
			out.Path = "/" + strings.Join(parts, "/")
		}
		if se.Schema != nil && se.Schema.Type != "" {
			out.Expected = se.Schema.Type
		} else if se.SchemaField != "" {
			out.Expected = se.SchemaField
		}
		return out
	}
	return &Error{Reason: err.Error()}
}
