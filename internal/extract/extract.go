// Package extract discovers annotated route declarations in a loaded program.
//
// The annotation convention is a directive line in a function's doc comment:
//
//	//api:route GET /users/{id}
//	func GetUser(ctx context.Context, req GetUserRequest) (User, error) { ... }
//
// The second parameter's declared type is the request shape and the first
// result is the response shape. Both are optional: a handler may take only a
// context and may return only an error.
package extract

import (
	"fmt"
	"go/ast"
	"go/types"
	"regexp"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/routeforge/routeforge/internal/analyzer"
	"github.com/routeforge/routeforge/internal/schema"
)

const directivePrefix = "//api:route "

var methods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

var pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)

// HandlerRef points back at the source declaration for code generation.
type HandlerRef struct {
	PkgPath  string
	PkgName  string
	FuncName string
	Position string
}

func (h HandlerRef) String() string { return h.PkgPath + "." + h.FuncName }

// Exported reports whether the handler can be imported by generated code.
func (h HandlerRef) Exported() bool { return ast.IsExported(h.FuncName) }

// Route is one discovered route declaration with its resolved type sites.
// RequestType and ResponseType are nil when the handler signature omits them.
// The schema fields are populated by the pipeline once synthesis has run.
type Route struct {
	Method       string
	Path         string
	Handler      HandlerRef
	RequestType  schema.Type
	ResponseType schema.Type

	RequestSchema  *schema.Node
	ResponseSchema *schema.Node
}

// DirectiveError reports a malformed route annotation.
type DirectiveError struct {
	Position  string
	Directive string
	Reason    string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s: invalid route directive %q: %s", e.Position, e.Directive, e.Reason)
}

// ResolutionError reports a route whose declared type could not be resolved.
// The route is excluded; extraction of other routes continues.
type ResolutionError struct {
	Position string
	Handler  string
	Type     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: cannot resolve type %q for handler %s", e.Position, e.Type, e.Handler)
}

// Conflict records two declarations claiming the same method and path. The
// first declaration in source order wins registration; whether the conflict
// is fatal is the caller's policy.
type Conflict struct {
	Method string
	Path   string
	First  string
	Second string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("duplicate route %s %s declared at %s and %s", c.Method, c.Path, c.First, c.Second)
}

// Result holds discovered routes in source order plus all per-route problems.
type Result struct {
	Routes    []Route
	Errors    []error
	Conflicts []*Conflict
}

// PathParams returns the named parameters of a URL template, in order.
func PathParams(path string) []string {
	var out []string
	for _, m := range pathParamRe.FindAllStringSubmatch(path, -1) {
		out = append(out, m[1])
	}
	return out
}

// Extract walks every declaration in the program and collects annotated
// routes. Routes come back in the order their declarations appear in source,
// which fixes registration order in generated code.
func Extract(prog *analyzer.Program) *Result {
	res := &Result{}
	seen := map[string]*Route{}

	for _, pkg := range prog.Packages {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Doc == nil || fn.Recv != nil {
					continue
				}
				directive := findDirective(fn.Doc)
				if directive == "" {
					continue
				}
				pos := pkg.Fset.Position(fn.Pos()).String()
				route, err := buildRoute(pkg, fn, directive, pos)
				if err != nil {
					res.Errors = append(res.Errors, err)
					continue
				}
				key := route.Method + " " + route.Path
				if prev, dup := seen[key]; dup {
					res.Conflicts = append(res.Conflicts, &Conflict{
						Method: route.Method,
						Path:   route.Path,
						First:  prev.Handler.Position,
						Second: route.Handler.Position,
					})
					continue
				}
				seen[key] = route
				res.Routes = append(res.Routes, *route)
			}
		}
	}
	return res
}

func findDirective(doc *ast.CommentGroup) string {
	for _, c := range doc.List {
		if strings.HasPrefix(c.Text, directivePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(c.Text, "//api:route"))
		}
	}
	return ""
}

func buildRoute(pkg *packages.Package, fn *ast.FuncDecl, directive, pos string) (*Route, error) {
	parts := strings.Fields(directive)
	if len(parts) != 2 {
		return nil, &DirectiveError{Position: pos, Directive: directive, Reason: "want METHOD /path"}
	}
	method := strings.ToUpper(parts[0])
	path := parts[1]
	if !methods[method] {
		return nil, &DirectiveError{Position: pos, Directive: directive, Reason: fmt.Sprintf("unsupported method %q", parts[0])}
	}
	if !strings.HasPrefix(path, "/") {
		return nil, &DirectiveError{Position: pos, Directive: directive, Reason: "path must start with /"}
	}

	obj, ok := pkg.TypesInfo.Defs[fn.Name].(*types.Func)
	if !ok {
		return nil, &ResolutionError{Position: pos, Handler: fn.Name.Name, Type: fn.Name.Name}
	}
	sig := obj.Type().(*types.Signature)

	handler := HandlerRef{
		PkgPath:  pkg.PkgPath,
		PkgName:  pkg.Name,
		FuncName: fn.Name.Name,
		Position: pos,
	}
	route := &Route{Method: method, Path: path, Handler: handler}

	params := sig.Params()
	if params.Len() < 1 || params.Len() > 2 || !isContext(params.At(0).Type()) {
		return nil, &DirectiveError{Position: pos, Directive: directive,
			Reason: "handler must be func(context.Context[, Req]) (Resp, error) or (error)"}
	}
	if params.Len() == 2 {
		t := params.At(1).Type()
		if unresolved(t) {
			return nil, &ResolutionError{Position: pos, Handler: handler.String(), Type: types.TypeString(t, nil)}
		}
		route.RequestType = analyzer.Resolve(t)
	}

	results := sig.Results()
	switch results.Len() {
	case 1:
		if !isError(results.At(0).Type()) {
			return nil, &DirectiveError{Position: pos, Directive: directive,
				Reason: "handler's last result must be error"}
		}
	case 2:
		if !isError(results.At(1).Type()) {
			return nil, &DirectiveError{Position: pos, Directive: directive,
				Reason: "handler's last result must be error"}
		}
		t := results.At(0).Type()
		if unresolved(t) {
			return nil, &ResolutionError{Position: pos, Handler: handler.String(), Type: types.TypeString(t, nil)}
		}
		route.ResponseType = analyzer.Resolve(t)
	default:
		return nil, &DirectiveError{Position: pos, Directive: directive,
			Reason: "handler must return (Resp, error) or error"}
	}

	return route, nil
}

func isContext(t types.Type) bool {
	return types.TypeString(t, nil) == "context.Context"
}

func isError(t types.Type) bool {
	return types.TypeString(t, nil) == "error"
}

// unresolved reports a type the checker could not resolve, typically from a
// missing import. Named types with an invalid underlying count too.
func unresolved(t types.Type) bool {
	if basic, ok := t.(*types.Basic); ok && basic.Kind() == types.Invalid {
		return true
	}
	if basic, ok := t.Underlying().(*types.Basic); ok && basic.Kind() == types.Invalid {
		return true
	}
	return false
}
