package analyzer

import (
	"go/types"
	"reflect"
	"strings"

	"github.com/routeforge/routeforge/internal/schema"
)

// Resolve adapts a go/types resolved type to the synthesizer's capability
// interface. The adapter classifies purely structurally; names only matter
// for registry identity.
func Resolve(t types.Type) schema.Type {
	return goType{t: t}
}

type goType struct {
	t types.Type
}

// Key identifies the type for memoization. types.TypeString with full package
// paths is stable across declaration sites and distinguishes generic
// instantiations by their type arguments.
func (g goType) Key() string { return types.TypeString(g.t, nil) }

func (g goType) String() string { return types.TypeString(g.t, nil) }

// Name returns the declared name for registerable named types. Anonymous
// shapes and special-cased stdlib types (time.Time renders as a date-time
// string, not a component) report "".
func (g goType) Name() string {
	named, ok := g.t.(*types.Named)
	if !ok {
		return ""
	}
	if isTime(named) {
		return ""
	}
	name := named.Obj().Name()
	if args := named.TypeArgs(); args != nil && args.Len() > 0 {
		parts := make([]string, 0, args.Len())
		for i := 0; i < args.Len(); i++ {
			parts = append(parts, bareName(args.At(i)))
		}
		name += "_" + strings.Join(parts, "_")
	}
	return name
}

func (g goType) Kind() schema.TypeKind {
	switch u := structural(g.t).(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsString != 0:
			return schema.TypeString
		case u.Info()&types.IsBoolean != 0:
			return schema.TypeBoolean
		case u.Info()&types.IsInteger != 0:
			return schema.TypeInteger
		case u.Info()&types.IsFloat != 0:
			return schema.TypeNumber
		case u.Kind() == types.UntypedNil:
			return schema.TypeNull
		default:
			return schema.TypeUnsupported
		}
	case *types.Pointer:
		return schema.TypeOptional
	case *types.Slice, *types.Array:
		return schema.TypeArray
	case *types.Map:
		if basic, ok := u.Key().Underlying().(*types.Basic); ok && basic.Info()&types.IsString != 0 {
			return schema.TypeMap
		}
		return schema.TypeUnsupported
	case *types.Struct:
		return schema.TypeObject
	case *types.Union:
		return schema.TypeUnion
	case *types.Interface:
		if unionTerm(u) != nil {
			return schema.TypeUnion
		}
		return schema.TypeUnsupported
	default:
		return schema.TypeUnsupported
	}
}

func (g goType) Format() string {
	if named, ok := g.t.(*types.Named); ok && isTime(named) {
		return "date-time"
	}
	return ""
}

func (g goType) Elem() schema.Type {
	switch u := structural(g.t).(type) {
	case *types.Pointer:
		return Resolve(u.Elem())
	case *types.Slice:
		return Resolve(u.Elem())
	case *types.Array:
		return Resolve(u.Elem())
	case *types.Map:
		return Resolve(u.Elem())
	}
	return nil
}

func (g goType) Fields() []schema.Field {
	st, ok := structural(g.t).(*types.Struct)
	if !ok {
		return nil
	}
	return structFields(st)
}

func (g goType) Variants() []schema.Type {
	var union *types.Union
	switch u := structural(g.t).(type) {
	case *types.Union:
		union = u
	case *types.Interface:
		union = unionTerm(u)
	}
	if union == nil {
		return nil
	}
	out := make([]schema.Type, 0, union.Len())
	for i := 0; i < union.Len(); i++ {
		out = append(out, Resolve(union.Term(i).Type()))
	}
	return out
}

// structural peels named/alias wrappers to the shape the type checker sees,
// except for time.Time which stays opaque so it classifies as a string.
func structural(t types.Type) types.Type {
	if named, ok := t.(*types.Named); ok {
		if isTime(named) {
			return types.Typ[types.String]
		}
		return named.Underlying()
	}
	return t.Underlying()
}

// structFields enumerates JSON-visible fields in declaration order, promoting
// untagged embedded struct fields the way encoding/json does.
func structFields(st *types.Struct) []schema.Field {
	var out []schema.Field
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := reflect.StructTag(st.Tag(i)).Get("json")
		name, opts := parseJSONTag(tag)
		if name == "-" {
			continue
		}
		if f.Embedded() && name == "" {
			ft := f.Type()
			if ptr, ok := ft.Underlying().(*types.Pointer); ok {
				ft = ptr.Elem()
			}
			if inner, ok := ft.Underlying().(*types.Struct); ok {
				out = append(out, structFields(inner)...)
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		if name == "" {
			name = f.Name()
		}
		_, isPtr := f.Type().(*types.Pointer)
		out = append(out, schema.Field{
			Name:     name,
			Type:     Resolve(f.Type()),
			Optional: isPtr || opts["omitempty"],
		})
	}
	return out
}

func parseJSONTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	opts := make(map[string]bool)
	for _, p := range parts[1:] {
		opts[p] = true
	}
	return parts[0], opts
}

// unionTerm returns the union a one-embedded interface wraps, or nil.
func unionTerm(iface *types.Interface) *types.Union {
	if iface.NumMethods() != 0 || iface.NumEmbeddeds() != 1 {
		return nil
	}
	u, _ := iface.EmbeddedType(0).(*types.Union)
	return u
}

func isTime(named *types.Named) bool {
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "time" && obj.Name() == "Time"
}

func bareName(t types.Type) string {
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return types.TypeString(t, nil)
}
