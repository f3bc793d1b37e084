package schema

// TypeKind is the structural classification of a resolved source type. The
// compiler front end behind the Type interface decides the classification;
// synthesis never inspects names.
type TypeKind int

const (
	TypeUnsupported TypeKind = iota
	TypeString
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeNull
	TypeArray
	TypeMap
	TypeObject
	TypeUnion
	TypeOptional
)

// Field is one member of an object-like type, in declaration order. Optional
// fields map to non-required schema properties.
type Field struct {
	Name     string
	Type     Type
	Optional bool
}

// Type is the capability surface the synthesizer needs from a compiler's
// resolved-type handle: classify, walk children, and provide identity for
// memoization. Nothing else about the front end leaks past this interface.
type Type interface {
	// Key is a stable identity for memoization. Two declaration sites that
	// resolve to the same type share a key; same-shaped but distinct
	// declarations do not.
	Key() string

	// Name is the bare declared name for named types, "" for anonymous
	// shapes. Only named types enter the registry.
	Name() string

	Kind() TypeKind

	// Format refines string primitives (e.g. "date-time"); "" otherwise.
	Format() string

	// Elem is the element type of arrays, maps and optionals.
	Elem() Type

	// Fields enumerates object members.
	Fields() []Field

	// Variants enumerates union alternatives, source-ordered.
	Variants() []Type

	// String is the textual source representation, kept on unknown nodes
	// for diagnostics.
	String() string
}
