package ast

import "github.com/patterncore/formulacore/util"

// Binding is a single (metavariable name, value) pair.
type Binding struct {
	Name  string
	Value MVal
}

// BindingSet is an ordered sequence of Bindings in which a given name
// appears at most once. Insertion order is preserved for reproducibility
// of emitted results but is never semantically significant.
type BindingSet struct {
	order  []string
	lookup *util.HashMap[string, MVal]
}

// NewBindingSet returns an empty BindingSet.
func NewBindingSet() *BindingSet {
	return &BindingSet{
		lookup: util.NewHashMap[string, MVal](
			func(a, b any) bool { return a.(string) == b.(string) },
			func(a any) int { return stringHash(a.(string)) },
		),
	}
}

// Put inserts or overwrites the binding for name. The name is appended to
// the insertion order only the first time it is seen.
func (b *BindingSet) Put(name string, v MVal) {
	if _, ok := b.lookup.Get(name); !ok {
		b.order = append(b.order, name)
	}
	b.lookup.Put(name, v)
}

// Get returns the value bound to name, if any.
func (b *BindingSet) Get(name string) (MVal, bool) {
	return b.lookup.Get(name)
}

// Len returns the number of bindings.
func (b *BindingSet) Len() int { return len(b.order) }

// Names returns the bound names in insertion order.
func (b *BindingSet) Names() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Iter calls fn for every binding in insertion order.
func (b *BindingSet) Iter(fn func(name string, v MVal)) {
	for _, n := range b.order {
		v, ok := b.lookup.Get(n)
		if ok {
			fn(n, v)
		}
	}
}

// Copy returns a shallow copy of the BindingSet.
func (b *BindingSet) Copy() *BindingSet {
	cpy := NewBindingSet()
	b.Iter(func(name string, v MVal) {
		cpy.Put(name, v)
	})
	return cpy
}

// CompatibleWith implements the binding-compatibility half of the ⊑
// relation (spec §4.1): every binding b shares with other must agree on
// value; names absent from other are tolerated.
func (b *BindingSet) CompatibleWith(other *BindingSet) bool {
	compatible := true
	b.Iter(func(name string, v MVal) {
		if !compatible {
			return
		}
		if ov, ok := other.Get(name); ok && !v.Equal(ov) {
			compatible = false
		}
	})
	return compatible
}

func stringHash(s string) int {
	h := 0
	for i := 0; i < len(s); i++ {
		h = h*31 + int(s[i])
	}
	return h
}
