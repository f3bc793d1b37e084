package schema

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// Entry is one named registry slot. Node may be incomplete while its type is
// still being synthesized; references taken during that window are what break
// recursion.
type Entry struct {
	Name string
	Node *Node
}

// Registry maps resolved-type identity keys to named schema entries. One
// registry serves one pipeline run; it is not safe for concurrent mutation.
type Registry struct {
	byKey  map[string]*Entry
	byName map[string]string // registered name -> owning type key
	order  []string          // keys in registration order
}

func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]*Entry),
		byName: make(map[string]string),
	}
}

// Lookup returns the entry registered for the type key, if any.
func (r *Registry) Lookup(key string) (*Entry, bool) {
	e, ok := r.byKey[key]
	return e, ok
}

// Register claims a name for the type key and installs an empty entry for it.
// The preferred name is kept as-is unless another type already owns it, in
// which case a short hash of the key is appended. Registration happens before
// the node is populated so self-references resolve to the claimed name.
func (r *Registry) Register(key, preferred string) *Entry {
	if e, ok := r.byKey[key]; ok {
		return e
	}
	name := preferred
	if owner, taken := r.byName[name]; taken && owner != key {
		name = fmt.Sprintf("%s_%s", preferred, shortHash(key))
	}
	e := &Entry{Name: name, Node: &Node{}}
	r.byKey[key] = e
	r.byName[name] = key
	r.order = append(r.order, key)
	return e
}

// Len reports the number of registered entries.
func (r *Registry) Len() int { return len(r.byKey) }

// Entries returns all entries ordered by name, for deterministic emission.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.byKey))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve returns the node behind a registered name, or nil.
func (r *Registry) Resolve(name string) *Node {
	key, ok := r.byName[name]
	if !ok {
		return nil
	}
	return r.byKey[key].Node
}

func shortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
