package ast

import "github.com/patterncore/formulacore/ast/location"

// Range is a half-open byte interval, Start <= End, within one file.
type Range struct {
	Start int
	End   int
}

// Contains reports whether other is nested within r (r.Start <= other.Start
// && other.End <= r.End).
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// PatternMatch (PM) is a single raw hit produced by a backend: the leaf it
// came from, the file, its span (as two Locs), the bindings it
// established, and a lazily-computed token list.
type PatternMatch struct {
	LeafID   int
	File     string
	Start    *location.Loc
	End      *location.Loc
	Bindings *BindingSet
	// Tokens lazily computes every token location covered by the match.
	// Most callers never need it; backends that can compute it cheaply
	// may still return a thunk that does the work eagerly.
	Tokens func() []*location.Loc
}

// Range derives the byte Range this match covers from its Start/End Locs.
func (p *PatternMatch) Range() Range {
	return Range{Start: p.Start.ByteOffset, End: p.End.ByteOffset}
}

// RangeWithBindings (RB) is the evaluator's working unit: a byte range,
// the bindings established at that site, and the PatternMatch it came
// from. Origin is carried through every combinator unchanged so a
// surviving RB can be converted back to a PatternMatch faithfully.
type RangeWithBindings struct {
	Range    Range
	Bindings *BindingSet
	Origin   *PatternMatch
}

// LiftMatch converts a PatternMatch to a RangeWithBindings, the operation
// Leaf evaluation performs for every match found under a leaf id (spec
// §4.4).
func LiftMatch(pm *PatternMatch) RangeWithBindings {
	return RangeWithBindings{
		Range:    pm.Range(),
		Bindings: pm.Bindings,
		Origin:   pm,
	}
}

// LeafIndex (I) maps a leaf id to every PatternMatch produced for it. The
// same id may carry many matches — a leaf pattern typically matches many
// sites in a file.
type LeafIndex struct {
	byLeaf map[int][]*PatternMatch
}

// NewLeafIndex returns an empty LeafIndex.
func NewLeafIndex() *LeafIndex {
	return &LeafIndex{byLeaf: map[int][]*PatternMatch{}}
}

// Insert records a match under its leaf id.
func (idx *LeafIndex) Insert(pm *PatternMatch) {
	idx.byLeaf[pm.LeafID] = append(idx.byLeaf[pm.LeafID], pm)
}

// Lookup returns every match recorded for leafID. A missing id returns an
// empty slice, not an error — the backend may simply have produced no
// matches for that leaf (spec §4.4, §7 BackendEmpty).
func (idx *LeafIndex) Lookup(leafID int) []*PatternMatch {
	return idx.byLeaf[leafID]
}
