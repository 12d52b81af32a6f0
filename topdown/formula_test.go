package topdown

import (
	"context"
	"testing"

	"github.com/patterncore/formulacore/ast"
)

func leafFormula(id int, pms ...*ast.PatternMatch) (ast.Formula, []*ast.PatternMatch) {
	return ast.NewLeaf(ast.XPattern{ID: id, Body: ast.Body{Kind: ast.BackendAst}}), pms
}

// newIndex builds a LeafIndex directly from PatternMatches, bypassing
// BackendDispatcher entirely — FormulaEvaluator never talks to a backend,
// only to the index DispatchAll would have built.
func newIndex(pms ...[]*ast.PatternMatch) *ast.LeafIndex {
	idx := ast.NewLeafIndex()
	for _, group := range pms {
		for _, pm := range group {
			idx.Insert(pm)
		}
	}
	return idx
}

func TestFormulaEvaluatorLeaf(t *testing.T) {
	leaf, pms := leafFormula(1, pm(1, 0, 5))
	e := NewFormulaEvaluator(nil)
	out, err := e.Eval(context.Background(), newIndex(pms), leaf)
	if err != nil || len(out) != 1 {
		t.Fatalf("expected 1 match, got out=%+v err=%v", out, err)
	}
}

func TestFormulaEvaluatorOrUnions(t *testing.T) {
	left, lpms := leafFormula(1, pm(1, 0, 5))
	right, rpms := leafFormula(2, pm(2, 10, 15))
	e := NewFormulaEvaluator(nil)
	out, err := e.Eval(context.Background(), newIndex(lpms, rpms), ast.NewOr(left, right))
	if err != nil || len(out) != 2 {
		t.Fatalf("expected the union of both leaves, got out=%+v err=%v", out, err)
	}
}

func TestFormulaEvaluatorAndIntersects(t *testing.T) {
	left, lpms := leafFormula(1, pm(1, 0, 100))
	right, rpms := leafFormula(2, pm(2, 10, 20))
	e := NewFormulaEvaluator(nil)
	out, err := e.Eval(context.Background(), newIndex(lpms, rpms), ast.NewAnd(left, right))
	if err != nil || len(out) != 1 || out[0].Range != (ast.Range{Start: 10, End: 20}) {
		t.Fatalf("expected the narrower range to survive, got out=%+v err=%v", out, err)
	}
}

func TestFormulaEvaluatorAndWithNotSubtracts(t *testing.T) {
	pos, posPMs := leafFormula(1, pm(1, 10, 20))
	neg, negPMs := leafFormula(2, pm(2, 0, 100))
	e := NewFormulaEvaluator(nil)
	f := ast.NewAnd(pos, ast.NewNot(neg))
	out, err := e.Eval(context.Background(), newIndex(posPMs, negPMs), f)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected the positive range to be fully excluded, got out=%+v err=%v", out, err)
	}
}

func TestFormulaEvaluatorAndWithCondFilters(t *testing.T) {
	pos, posPMs := leafFormula(1, pm(1, 0, 10))
	eval := &fakeEvaluator{generic: func(expr any, b *ast.BindingSet) (bool, error) { return false, nil }}
	e := NewFormulaEvaluator(NewConditionEvaluator(eval))
	f := ast.NewAnd(pos, ast.NewCond(ast.MetavarCond{Kind: ast.CondGeneric, Expr: "anything"}))
	out, err := e.Eval(context.Background(), newIndex(posPMs), f)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected the condition to drop every candidate, got out=%+v err=%v", out, err)
	}
}

func TestFormulaEvaluatorBareNotIsStructuralError(t *testing.T) {
	leaf, _ := leafFormula(1)
	e := NewFormulaEvaluator(nil)
	_, err := e.Eval(context.Background(), newIndex(), ast.NewNot(leaf))
	if !IsError(StructuralErr, err) {
		t.Fatalf("expected a StructuralErr for a bare Not, got %v", err)
	}
}

func TestFormulaEvaluatorNotUnderOrIsStructuralError(t *testing.T) {
	leaf, _ := leafFormula(1)
	other, _ := leafFormula(2)
	e := NewFormulaEvaluator(nil)
	f := ast.NewOr(leaf, ast.NewNot(other))
	_, err := e.Eval(context.Background(), newIndex(), f)
	if !IsError(StructuralErr, err) {
		t.Fatalf("expected a StructuralErr for Not under Or, got %v", err)
	}
}

func TestFormulaEvaluatorAndAllNegativeIsStructuralError(t *testing.T) {
	leaf, _ := leafFormula(1)
	e := NewFormulaEvaluator(nil)
	f := ast.NewAnd(ast.NewNot(leaf))
	_, err := e.Eval(context.Background(), newIndex(), f)
	if !IsError(StructuralErr, err) {
		t.Fatalf("expected a StructuralErr for an And with no positive child, got %v", err)
	}
}
