// Package assemble merges discovered routes and synthesized schemas into one
// OpenAPI 3.0 document. Assembly is deterministic: routes are stably sorted
// by method then path, registry components emit under sorted names, and the
// kin-openapi object model serializes through sorted JSON maps, so identical
// input always yields byte-identical output.
package assemble

import (
	"context"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/routeforge/routeforge/internal/extract"
	"github.com/routeforge/routeforge/internal/schema"
)

// Metadata is the caller-supplied document header.
type Metadata struct {
	Title       string
	Version     string
	Description string
	Servers     []string
	Security    []map[string][]string
}

// Error reports a route the contract cannot describe: a path template
// parameter with no matching request property, or a request schema that the
// route's verb has no binding for. Fatal either way.
type Error struct {
	Method string
	Path   string
	Param  string
	Reason string
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("route %s %s: path parameter {%s} has no matching request property", e.Method, e.Path, e.Param)
	}
	return fmt.Sprintf("route %s %s: %s", e.Method, e.Path, e.Reason)
}

var queryOnly = map[string]bool{"GET": true, "DELETE": true, "HEAD": true}

// Assemble builds the contract document. Routes with nil request schemas but
// parameterized paths, and path parameters missing from the request object,
// are assembly errors.
func Assemble(ctx context.Context, routes []extract.Route, reg *schema.Registry, meta Metadata) (*openapi3.T, error) {
	sorted := make([]extract.Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Method != sorted[j].Method {
			return sorted[i].Method < sorted[j].Method
		}
		return sorted[i].Path < sorted[j].Path
	})

	paths := openapi3.Paths{}
	for _, r := range sorted {
		op, err := operation(r, reg)
		if err != nil {
			return nil, err
		}
		item := paths[r.Path]
		if item == nil {
			item = &openapi3.PathItem{}
			paths[r.Path] = item
		}
		item.SetOperation(r.Method, op)
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       meta.Title,
			Version:     meta.Version,
			Description: meta.Description,
		},
		Paths:      paths,
		Components: &openapi3.Components{Schemas: componentSchemas(reg)},
	}
	for _, s := range meta.Servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: s})
	}
	// Referenced security schemes are declared as http bearer so the
	// document stays self-contained and valid; richer scheme definitions
	// belong to the consuming application's own overlay.
	for _, req := range meta.Security {
		doc.Security = append(doc.Security, openapi3.SecurityRequirement(req))
		for name := range req {
			if doc.Components.SecuritySchemes == nil {
				doc.Components.SecuritySchemes = openapi3.SecuritySchemes{}
			}
			doc.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
				Value: &openapi3.SecurityScheme{Type: "http", Scheme: "bearer"},
			}
		}
	}

	// The document is built in memory, so its $ref pointers carry no resolved
	// values yet; Validate rejects unresolved refs. Resolution fills Value but
	// leaves Ref set, so serialization still emits plain $ref pointers.
	if err := openapi3.NewLoader().ResolveRefsIn(doc, nil); err != nil {
		return nil, fmt.Errorf("resolve document references: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("assembled document is not a valid OpenAPI document: %w", err)
	}
	return doc, nil
}

func operation(r extract.Route, reg *schema.Registry) (*openapi3.Operation, error) {
	op := &openapi3.Operation{
		OperationID: r.Handler.FuncName,
		Responses:   openapi3.Responses{},
	}

	params := extract.PathParams(r.Path)
	reqObj := requestObject(r.RequestSchema, reg)
	if len(params) > 0 && reqObj == nil {
		return nil, &Error{Method: r.Method, Path: r.Path, Param: params[0]}
	}

	consumed := map[string]bool{}
	for _, name := range params {
		prop := reqObj.PropertyNamed(name)
		if prop == nil {
			return nil, &Error{Method: r.Method, Path: r.Path, Param: name}
		}
		consumed[name] = true
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:     name,
			In:       openapi3.ParameterInPath,
			Required: true,
			Schema:   SchemaRef(prop.Schema),
		}})
	}

	if reqObj == nil && r.RequestSchema != nil {
		if queryOnly[r.Method] {
			return nil, &Error{Method: r.Method, Path: r.Path,
				Reason: "non-object request schema cannot bind to query parameters"}
		}
		// Non-object request shapes go to the body wholesale.
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(SchemaRef(r.RequestSchema)),
		}}
	}
	if reqObj != nil {
		rest := make([]schema.Property, 0, len(reqObj.Properties))
		for _, p := range reqObj.Properties {
			if !consumed[p.Name] {
				rest = append(rest, p)
			}
		}
		if queryOnly[r.Method] {
			for _, p := range rest {
				op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
					Name:     p.Name,
					In:       openapi3.ParameterInQuery,
					Required: p.Required,
					Schema:   SchemaRef(p.Schema),
				}})
			}
		} else if len(rest) > 0 || reqObj.Additional != nil {
			body := &schema.Node{Kind: schema.KindObject, Properties: rest, Additional: reqObj.Additional}
			op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
				Required: len(body.RequiredNames()) > 0,
				Content:  openapi3.NewContentWithJSONSchemaRef(SchemaRef(body)),
			}}
		}
	}

	if r.ResponseSchema != nil {
		desc := "OK"
		op.Responses["200"] = &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(SchemaRef(r.ResponseSchema)),
		}}
	} else {
		desc := "No Content"
		op.Responses["204"] = &openapi3.ResponseRef{Value: &openapi3.Response{Description: &desc}}
	}
	return op, nil
}

// requestObject resolves the route's request schema to its object node,
// following a single reference indirection into the registry.
func requestObject(n *schema.Node, reg *schema.Registry) *schema.Node {
	if n == nil {
		return nil
	}
	if n.Kind == schema.KindRef {
		n = reg.Resolve(n.Ref)
	}
	if n == nil || n.Kind != schema.KindObject {
		return nil
	}
	return n
}

func componentSchemas(reg *schema.Registry) openapi3.Schemas {
	out := openapi3.Schemas{}
	for _, e := range reg.Entries() {
		out[e.Name] = SchemaRef(e.Node)
	}
	return out
}
