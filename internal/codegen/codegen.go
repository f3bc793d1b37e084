// Package codegen renders the runtime registration source for discovered
// routes. Routes are emitted in extraction order so the host router's
// first-match-wins semantics mirror declaration order.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"

	"github.com/routeforge/routeforge/internal/assemble"
	"github.com/routeforge/routeforge/internal/extract"
	"github.com/routeforge/routeforge/internal/schema"
)

const (
	header      = "// Code generated by routeforge. DO NOT EDIT.\n"
	routingPkg  = "github.com/routeforge/routeforge/routing"
	validatePkg = "github.com/routeforge/routeforge/validate"
)

// Options controls how the registration source is rendered.
type Options struct {
	// Package is the package name of the generated file. Defaults to "api".
	Package string
	// SelfImportPath, when set, is the import path of the generated
	// package itself; handlers living there are referenced unqualified.
	SelfImportPath string
}

// Error reports a route whose handler cannot be referenced from generated
// code: unexported, or declared in an unimportable package.
type Error struct {
	Method  string
	Path    string
	Handler string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("route %s %s: handler %s %s", e.Method, e.Path, e.Handler, e.Reason)
}

// Generate renders the registration source. The result is gofmt-formatted;
// schemas are embedded pre-serialized so the runtime never re-resolves
// source types.
func Generate(routes []extract.Route, reg *schema.Registry, opts Options) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "api"
	}

	aliases, err := handlerAliases(routes, opts.SelfImportPath)
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		if !r.Handler.Exported() {
			return nil, &Error{Method: r.Method, Path: r.Path, Handler: r.Handler.String(), Reason: "is not exported"}
		}
	}

	var b bytes.Buffer
	b.WriteString(header)
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	writeImports(&b, routes, aliases)

	schemaVars := map[int]string{}
	for i, r := range routes {
		if r.RequestSchema == nil {
			continue
		}
		doc, err := assemble.ValidatorDocument(r.RequestSchema, reg)
		if err != nil {
			return nil, fmt.Errorf("serialize schema for %s %s: %w", r.Method, r.Path, err)
		}
		name := fmt.Sprintf("routeSchema%d", i)
		schemaVars[i] = name
		fmt.Fprintf(&b, "var %s = []byte(%q)\n\n", name, doc)
	}

	b.WriteString("// RegisterRoutes installs every discovered route on r in declaration\n")
	b.WriteString("// order, each behind a validation step for its request schema.\n")
	b.WriteString("func RegisterRoutes(r routing.Router) error {\n")
	for i, r := range routes {
		ref := handlerExpr(r, aliases, opts.SelfImportPath)
		if sv, ok := schemaVars[i]; ok {
			fmt.Fprintf(&b, "\tv%d, err := validate.Compile(%s)\n", i, sv)
			fmt.Fprintf(&b, "\tif err != nil {\n\t\treturn fmt.Errorf(\"compile schema for %s %s: %%w\", err)\n\t}\n", r.Method, r.Path)
			fmt.Fprintf(&b, "\tif err := r.Register(%q, %q, validate.Middleware(v%d, %s), v%d); err != nil {\n\t\treturn err\n\t}\n",
				r.Method, r.Path, i, ref, i)
		} else {
			fmt.Fprintf(&b, "\tif err := r.Register(%q, %q, %s, nil); err != nil {\n\t\treturn err\n\t}\n",
				r.Method, r.Path, ref)
		}
	}
	b.WriteString("\treturn nil\n}\n")

	src, err := format.Source(b.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}

// Placeholder is the neutral content written over a stale generated file
// before regeneration, so other tooling never sees half-written output.
func Placeholder(pkg string) []byte {
	if pkg == "" {
		pkg = "api"
	}
	return []byte(header + "\n// Registration code is being regenerated.\npackage " + pkg + "\n")
}

// handlerAliases assigns a deterministic import alias per handler package.
// Distinct packages sharing a name get numbered aliases.
func handlerAliases(routes []extract.Route, selfPath string) (map[string]string, error) {
	paths := map[string]string{} // import path -> package name
	for _, r := range routes {
		if r.Handler.PkgPath == selfPath {
			continue
		}
		if r.Handler.PkgName == "main" {
			return nil, &Error{Method: r.Method, Path: r.Path, Handler: r.Handler.String(),
				Reason: "is declared in package main, which cannot be imported"}
		}
		paths[r.Handler.PkgPath] = r.Handler.PkgName
	}

	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	aliases := map[string]string{}
	used := map[string]bool{"routing": true, "validate": true, "fmt": true}
	for _, p := range ordered {
		alias := paths[p]
		for n := 2; used[alias]; n++ {
			alias = fmt.Sprintf("%s%d", paths[p], n)
		}
		used[alias] = true
		aliases[p] = alias
	}
	return aliases, nil
}

func writeImports(b *bytes.Buffer, routes []extract.Route, aliases map[string]string) {
	hasSchemas := false
	for _, r := range routes {
		if r.RequestSchema != nil {
			hasSchemas = true
			break
		}
	}

	b.WriteString("import (\n")
	if hasSchemas {
		b.WriteString("\t\"fmt\"\n\n")
	}
	ordered := make([]string, 0, len(aliases))
	for p := range aliases {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)
	for _, p := range ordered {
		if aliases[p] == pkgNameFromPath(p) {
			fmt.Fprintf(b, "\t%q\n", p)
		} else {
			fmt.Fprintf(b, "\t%s %q\n", aliases[p], p)
		}
	}
	if len(ordered) > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "\t%q\n", routingPkg)
	if hasSchemas {
		fmt.Fprintf(b, "\t%q\n", validatePkg)
	}
	b.WriteString(")\n\n")
}

func handlerExpr(r extract.Route, aliases map[string]string, selfPath string) string {
	name := r.Handler.FuncName
	qualified := name
	if r.Handler.PkgPath != selfPath {
		qualified = aliases[r.Handler.PkgPath] + "." + name
	}
	if r.RequestType != nil {
		return "routing.Wrap(" + qualified + ")"
	}
	return "routing.WrapNoRequest(" + qualified + ")"
}

// pkgNameFromPath guesses the default package name of an import path.
func pkgNameFromPath(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
