package schema

import (
	"bytes"
	"encoding/json"
)

// Warning records a type shape that degraded to an unknown node instead of
// failing the run.
type Warning struct {
	Repr string
}

// Synthesizer converts resolved types into schema nodes, memoizing named
// types through its Registry. One synthesizer serves one pipeline run and is
// not safe for concurrent use.
type Synthesizer struct {
	reg      *Registry
	warnings []Warning
}

func NewSynthesizer(reg *Registry) *Synthesizer {
	return &Synthesizer{reg: reg}
}

// Warnings returns the unsupported-shape degradations seen so far.
func (s *Synthesizer) Warnings() []Warning { return s.warnings }

// Synthesize returns the schema node for t. Named types are expanded at most
// once per registry lifetime; later (and recursive) sightings yield reference
// nodes to the registered name. The registry entry is claimed before the
// node's children are synthesized, so a type whose fields mention itself sees
// its own name already registered and the recursion bottoms out.
func (s *Synthesizer) Synthesize(t Type) *Node {
	if t.Kind() == TypeOptional {
		n := s.Synthesize(t.Elem())
		wrapped := *n
		wrapped.Nullable = true
		return &wrapped
	}

	if t.Name() == "" {
		return s.build(t)
	}

	key := t.Key()
	if e, ok := s.reg.Lookup(key); ok {
		return &Node{Kind: KindRef, Ref: e.Name}
	}
	e := s.reg.Register(key, t.Name())
	*e.Node = *s.build(t)
	return &Node{Kind: KindRef, Ref: e.Name}
}

func (s *Synthesizer) build(t Type) *Node {
	switch t.Kind() {
	case TypeString:
		return &Node{Kind: KindString, Format: t.Format()}
	case TypeInteger:
		return &Node{Kind: KindInteger}
	case TypeNumber:
		return &Node{Kind: KindNumber}
	case TypeBoolean:
		return &Node{Kind: KindBoolean}
	case TypeNull:
		return &Node{Kind: KindNull}
	case TypeArray:
		return &Node{Kind: KindArray, Items: s.Synthesize(t.Elem())}
	case TypeMap:
		return &Node{Kind: KindObject, Additional: s.Synthesize(t.Elem())}
	case TypeObject:
		n := &Node{Kind: KindObject}
		for _, f := range t.Fields() {
			n.Properties = append(n.Properties, Property{
				Name:     f.Name,
				Schema:   s.Synthesize(f.Type),
				Required: !f.Optional,
			})
		}
		return n
	case TypeUnion:
		variants := make([]*Node, 0, len(t.Variants()))
		for _, v := range t.Variants() {
			variants = append(variants, s.Synthesize(v))
		}
		variants = dedupeNodes(variants)
		if len(variants) == 1 {
			return variants[0]
		}
		return &Node{Kind: KindUnion, Variants: variants}
	default:
		s.warnings = append(s.warnings, Warning{Repr: t.String()})
		return &Node{Kind: KindUnknown, Repr: t.String()}
	}
}

// dedupeNodes drops structurally identical later alternatives, preserving the
// order of first occurrence.
func dedupeNodes(nodes []*Node) []*Node {
	out := nodes[:0]
	var seen [][]byte
	for _, n := range nodes {
		enc, err := json.Marshal(n)
		if err != nil {
			out = append(out, n)
			continue
		}
		dup := false
		for _, prev := range seen {
			if bytes.Equal(prev, enc) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, enc)
			out = append(out, n)
		}
	}
	return out
}
