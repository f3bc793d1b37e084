// Package schema converts resolved source types into canonical structural
// schema nodes. Nodes live in a flat per-run Registry and refer to each other
// by registered name, so recursive types never form ownership cycles and
// serialization is a walk over the registry rather than the graph.
package schema

// Kind discriminates the node variants.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindUnion   Kind = "union"
	KindRef     Kind = "ref"
	KindUnknown Kind = "unknown"
)

// Property is one object member, in declaration order.
type Property struct {
	Name     string `json:"name"`
	Schema   *Node  `json:"schema"`
	Required bool   `json:"required"`
}

// Node is a tagged variant over the supported schema shapes. Exactly the
// fields relevant to Kind are populated.
type Node struct {
	Kind Kind `json:"kind"`

	// Format refines string-like primitives (e.g. "date-time").
	Format string `json:"format,omitempty"`

	// Nullable marks a schema that also admits null, from optional/pointer
	// positions in the source type.
	Nullable bool `json:"nullable,omitempty"`

	// Properties of an object node, declaration-ordered.
	Properties []Property `json:"properties,omitempty"`

	// Additional, when set on an object node, is the value schema for
	// arbitrary further keys (string-keyed map types).
	Additional *Node `json:"additional,omitempty"`

	// Items is the element schema of an array node.
	Items *Node `json:"items,omitempty"`

	// Variants of a union node, source-ordered.
	Variants []*Node `json:"variants,omitempty"`

	// Ref names a registry entry; only set on reference nodes.
	Ref string `json:"ref,omitempty"`

	// Repr preserves the textual source type for unknown nodes so
	// diagnostics can name what was dropped.
	Repr string `json:"repr,omitempty"`
}

// Primitive reports whether the node is a leaf scalar.
func (n *Node) Primitive() bool {
	switch n.Kind {
	case KindString, KindInteger, KindNumber, KindBoolean, KindNull:
		return true
	}
	return false
}

// RequiredNames returns the names of required properties, in order. Only
// meaningful for object nodes.
func (n *Node) RequiredNames() []string {
	var out []string
	for _, p := range n.Properties {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// PropertyNamed returns the property with the given name, or nil.
func (n *Node) PropertyNamed(name string) *Property {
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			return &n.Properties[i]
		}
	}
	return nil
}
