package topdown

import (
	"github.com/patterncore/formulacore/ast"
)

// RangeAlgebra implements the set-like operations formula evaluation folds
// over (spec §4.1): Intersect for And's positive children, Difference for
// Not, Filter for Cond. None of these deduplicate — two RangeWithBindings
// values that cover the same byte span but came from different leaves (or
// different PatternMatch occurrences of the same leaf) are both kept, since
// collapsing them would silently merge distinct metavariable bindings.
type RangeAlgebra struct{}

// SubRange reports whether a is contained in b's byte span with bindings
// that are compatible (spec's ⊑ relation): a's range falls within b's, and
// every metavariable name they share under the same bindings agrees.
func (RangeAlgebra) SubRange(a, b ast.RangeWithBindings) bool {
	if !b.Range.Contains(a.Range) {
		return false
	}
	return a.Bindings.CompatibleWith(b.Bindings)
}

// Intersect implements the two independent existential filters spec §4.1
// specifies: keep every x in left with some y in right such that x ⊑ y;
// keep every y in right with some x in left such that y ⊑ x; concatenate.
// A survivor keeps its own range, its own bindings, and its own origin
// unchanged — nothing is merged. This is the core of And: a conjunction is
// witnessed at the narrowest enclosing site, and whichever side turns out
// to be the more specific one survives on its own terms, not a blend of
// both.
func (a RangeAlgebra) Intersect(left, right []ast.RangeWithBindings) []ast.RangeWithBindings {
	var out []ast.RangeWithBindings
	for _, l := range left {
		for _, r := range right {
			if a.SubRange(l, r) {
				out = append(out, l)
				break
			}
		}
	}
	for _, r := range right {
		for _, l := range left {
			if a.SubRange(r, l) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Difference returns the elements of left that are not ⊑ any element of
// right — the core of Not: a positive match survives only where nothing in
// the negated child's matches subsumes it. A negated match that merely
// lies inside a positive one (or overlaps it partially) does not remove it.
func (a RangeAlgebra) Difference(left, right []ast.RangeWithBindings) []ast.RangeWithBindings {
	var out []ast.RangeWithBindings
	for _, l := range left {
		excluded := false
		for _, r := range right {
			if a.SubRange(l, r) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, l)
		}
	}
	return out
}

// Filter returns the elements of in for which keep reports true — the
// core of Cond: a metavariable condition narrows a candidate set without
// changing anyone's range or bindings.
func (a RangeAlgebra) Filter(in []ast.RangeWithBindings, keep func(ast.RangeWithBindings) bool) []ast.RangeWithBindings {
	var out []ast.RangeWithBindings
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
