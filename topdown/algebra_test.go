package topdown

import (
	"testing"

	"github.com/patterncore/formulacore/ast"
)

func rb(start, end int, names ...string) ast.RangeWithBindings {
	bs := ast.NewBindingSet()
	for _, n := range names {
		bs.Put(n, ast.NewStringLiteral(n+"-val", nil))
	}
	return ast.RangeWithBindings{Range: ast.Range{Start: start, End: end}, Bindings: bs}
}

func TestRangeAlgebraIntersectNarrowsToInner(t *testing.T) {
	var a RangeAlgebra
	outer := []ast.RangeWithBindings{rb(0, 100)}
	inner := []ast.RangeWithBindings{rb(10, 20)}
	got := a.Intersect(outer, inner)
	if len(got) != 1 || got[0].Range != (ast.Range{Start: 10, End: 20}) {
		t.Fatalf("expected the inner range to survive, got %+v", got)
	}
}

func TestRangeAlgebraIntersectKeepsOwnBindingsAndOrigin(t *testing.T) {
	var a RangeAlgebra
	leftPM := &ast.PatternMatch{LeafID: 1}
	rightPM := &ast.PatternMatch{LeafID: 2}

	left := rb(0, 100, "X")
	left.Origin = leftPM
	right := rb(10, 20, "Y")
	right.Origin = rightPM

	got := a.Intersect([]ast.RangeWithBindings{left}, []ast.RangeWithBindings{right})
	if len(got) != 1 {
		t.Fatalf("expected the narrower candidate to survive, got %+v", got)
	}
	if got[0].Origin != rightPM {
		t.Fatalf("expected the survivor to keep its own origin, got %+v", got[0].Origin)
	}
	if _, ok := got[0].Bindings.Get("X"); ok {
		t.Fatalf("expected the survivor to keep only its own bindings, not the other side's, got %+v", got[0].Bindings)
	}
	if v, ok := got[0].Bindings.Get("Y"); !ok || v.String() != "Y-val" {
		t.Fatalf("expected the survivor's own $Y binding to be preserved, got %+v", got[0].Bindings)
	}
}

func TestRangeAlgebraIntersectDropsIncompatibleBindings(t *testing.T) {
	var a RangeAlgebra
	left := []ast.RangeWithBindings{rb(0, 100, "X")}
	right := []ast.RangeWithBindings{rb(10, 20, "X")}
	right[0].Bindings.Put("X", ast.NewStringLiteral("different", nil))
	got := a.Intersect(left, right)
	if len(got) != 0 {
		t.Fatalf("expected no survivors when $X disagrees, got %+v", got)
	}
}

func TestRangeAlgebraIntersectNonOverlappingDropped(t *testing.T) {
	var a RangeAlgebra
	left := []ast.RangeWithBindings{rb(0, 10)}
	right := []ast.RangeWithBindings{rb(20, 30)}
	got := a.Intersect(left, right)
	if len(got) != 0 {
		t.Fatalf("expected no survivors for disjoint ranges, got %+v", got)
	}
}

func TestRangeAlgebraDifferenceExcludesSubsumed(t *testing.T) {
	var a RangeAlgebra
	left := []ast.RangeWithBindings{rb(10, 20), rb(200, 210)}
	right := []ast.RangeWithBindings{rb(0, 100)}
	got := a.Difference(left, right)
	if len(got) != 1 || got[0].Range != (ast.Range{Start: 200, End: 210}) {
		t.Fatalf("expected only the non-overlapping range to survive, got %+v", got)
	}

	// A positive range that merely encloses a negated one is not ⊑ it, so
	// it survives.
	got = a.Difference([]ast.RangeWithBindings{rb(0, 100)}, []ast.RangeWithBindings{rb(10, 20)})
	if len(got) != 1 || got[0].Range != (ast.Range{Start: 0, End: 100}) {
		t.Fatalf("expected the enclosing positive range to survive, got %+v", got)
	}
}

func TestRangeAlgebraDifferenceKeepsIncompatibleBindingOverlap(t *testing.T) {
	var a RangeAlgebra
	left := []ast.RangeWithBindings{rb(0, 100, "X")}
	right := []ast.RangeWithBindings{rb(10, 20, "X")}
	right[0].Bindings.Put("X", ast.NewStringLiteral("different", nil))
	got := a.Difference(left, right)
	if len(got) != 1 {
		t.Fatalf("expected left to survive since bindings disagree, got %+v", got)
	}
}

func TestRangeAlgebraFilterKeepsPredicateMatches(t *testing.T) {
	var a RangeAlgebra
	in := []ast.RangeWithBindings{rb(0, 1), rb(1, 2), rb(2, 3)}
	got := a.Filter(in, func(c ast.RangeWithBindings) bool { return c.Range.Start%2 == 0 })
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(got))
	}
}

func TestRangeAlgebraDoesNotDeduplicate(t *testing.T) {
	var a RangeAlgebra
	left := []ast.RangeWithBindings{rb(0, 10), rb(0, 10)}
	right := []ast.RangeWithBindings{rb(0, 10)}
	got := a.Intersect(left, right)
	// Both reflexive x ⊑ y checks (x1 ⊑ y, x2 ⊑ y) keep their left
	// survivor, plus the single right-hand existential check (y ⊑ x1, or
	// equivalently y ⊑ x2) keeps y once: 3 survivors, not 2 — Intersect
	// never collapses equal-range candidates from distinct origins.
	if len(got) != 3 {
		t.Fatalf("expected 3 survivors (2 left + 1 right, undeduplicated), got %d: %+v", len(got), got)
	}
}
