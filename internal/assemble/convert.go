package assemble

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/routeforge/routeforge/internal/schema"
)

// SchemaRef renders a schema node as a kin-openapi schema reference.
// Reference nodes become $ref pointers into #/components/schemas; a nullable
// reference wraps the pointer in allOf since OpenAPI 3.0 cannot put nullable
// next to $ref.
func SchemaRef(n *schema.Node) *openapi3.SchemaRef {
	switch n.Kind {
	case schema.KindRef:
		ref := "#/components/schemas/" + n.Ref
		if !n.Nullable {
			return &openapi3.SchemaRef{Ref: ref}
		}
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Nullable: true,
			AllOf:    openapi3.SchemaRefs{{Ref: ref}},
		}}
	case schema.KindString:
		return value(&openapi3.Schema{Type: "string", Format: n.Format, Nullable: n.Nullable})
	case schema.KindInteger:
		return value(&openapi3.Schema{Type: "integer", Nullable: n.Nullable})
	case schema.KindNumber:
		return value(&openapi3.Schema{Type: "number", Nullable: n.Nullable})
	case schema.KindBoolean:
		return value(&openapi3.Schema{Type: "boolean", Nullable: n.Nullable})
	case schema.KindNull:
		return value(&openapi3.Schema{Nullable: true})
	case schema.KindArray:
		return value(&openapi3.Schema{Type: "array", Items: SchemaRef(n.Items), Nullable: n.Nullable})
	case schema.KindObject:
		s := &openapi3.Schema{Type: "object", Nullable: n.Nullable}
		if len(n.Properties) > 0 {
			s.Properties = openapi3.Schemas{}
			for _, p := range n.Properties {
				s.Properties[p.Name] = SchemaRef(p.Schema)
			}
			s.Required = n.RequiredNames()
		}
		if n.Additional != nil {
			s.AdditionalProperties = openapi3.AdditionalProperties{Schema: SchemaRef(n.Additional)}
		}
		return value(s)
	case schema.KindUnion:
		s := &openapi3.Schema{Nullable: n.Nullable}
		for _, v := range n.Variants {
			s.OneOf = append(s.OneOf, SchemaRef(v))
		}
		return value(s)
	default:
		// Unknown shapes stay representable: an unconstrained schema
		// carrying the source type text for diagnostics.
		s := openapi3.NewSchema()
		s.Extensions = map[string]any{"x-source-type": n.Repr}
		return value(s)
	}
}

func value(s *openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: s}
}

// validatorDoc is the self-contained wire form the runtime validator
// consumes: a root schema plus every component it can reach.
type validatorDoc struct {
	Schema     json.RawMessage            `json:"schema"`
	Components map[string]json.RawMessage `json:"components,omitempty"`
}

// ValidatorDocument serializes a schema node together with the registry
// entries reachable from it, so the runtime can validate without re-resolving
// source types.
func ValidatorDocument(n *schema.Node, reg *schema.Registry) ([]byte, error) {
	root, err := json.Marshal(SchemaRef(n))
	if err != nil {
		return nil, fmt.Errorf("marshal root schema: %w", err)
	}
	doc := validatorDoc{Schema: root}

	reachable := map[string]bool{}
	collectRefs(n, reg, reachable)
	if len(reachable) > 0 {
		doc.Components = make(map[string]json.RawMessage, len(reachable))
		for name := range reachable {
			enc, err := json.Marshal(SchemaRef(reg.Resolve(name)))
			if err != nil {
				return nil, fmt.Errorf("marshal component %s: %w", name, err)
			}
			doc.Components[name] = enc
		}
	}
	return json.Marshal(doc)
}

func collectRefs(n *schema.Node, reg *schema.Registry, seen map[string]bool) {
	if n == nil {
		return
	}
	if n.Kind == schema.KindRef {
		if seen[n.Ref] {
			return
		}
		seen[n.Ref] = true
		collectRefs(reg.Resolve(n.Ref), reg, seen)
		return
	}
	collectRefs(n.Items, reg, seen)
	collectRefs(n.Additional, reg, seen)
	for _, p := range n.Properties {
		collectRefs(p.Schema, reg, seen)
	}
	for _, v := range n.Variants {
		collectRefs(v, reg, seen)
	}
}
