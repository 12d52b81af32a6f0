package topdown

import (
	"context"
	"testing"

	"github.com/patterncore/formulacore/ast"
)

type fakeEvaluator struct {
	generic func(expr any, b *ast.BindingSet) (bool, error)
	regex   func(name, pattern string, b *ast.BindingSet) (bool, error)
}

func (f *fakeEvaluator) EvalGeneric(_ context.Context, expr any, b *ast.BindingSet) (bool, error) {
	return f.generic(expr, b)
}

func (f *fakeEvaluator) EvalRegexBinding(_ context.Context, name, pattern string, b *ast.BindingSet) (bool, error) {
	return f.regex(name, pattern, b)
}

func TestConditionEvaluatorGenericFilters(t *testing.T) {
	eval := &fakeEvaluator{generic: func(expr any, b *ast.BindingSet) (bool, error) {
		v, _ := b.Get("X")
		return v.String() == expr, nil
	}}
	c := NewConditionEvaluator(eval)

	keep := rb(0, 1, "X")
	keep.Bindings.Put("X", ast.NewStringLiteral("X-val", nil))
	drop := rb(1, 2, "X")
	drop.Bindings.Put("X", ast.NewStringLiteral("nope", nil))

	out, err := c.Apply(context.Background(), ast.MetavarCond{Kind: ast.CondGeneric, Expr: "X-val"}, []ast.RangeWithBindings{keep, drop})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Range.Start != 0 {
		t.Fatalf("expected only the matching candidate to survive, got %+v", out)
	}
}

func TestConditionEvaluatorRegexFilters(t *testing.T) {
	eval := &fakeEvaluator{regex: func(name, pattern string, b *ast.BindingSet) (bool, error) {
		v, _ := b.Get(name)
		return pattern == "^ok" && v.String() == "ok-value", nil
	}}
	c := NewConditionEvaluator(eval)

	keep := rb(0, 1)
	keep.Bindings.Put("X", ast.NewStringLiteral("ok-value", nil))

	out, err := c.Apply(context.Background(), ast.MetavarCond{Kind: ast.CondRegex, Name: "X", Pattern: "^ok"}, []ast.RangeWithBindings{keep})
	if err != nil || len(out) != 1 {
		t.Fatalf("expected the candidate to survive, got out=%+v err=%v", out, err)
	}
}

func TestConditionEvaluatorNoEvaluatorIsError(t *testing.T) {
	c := NewConditionEvaluator(nil)
	_, err := c.Apply(context.Background(), ast.MetavarCond{Kind: ast.CondGeneric}, []ast.RangeWithBindings{rb(0, 1)})
	if !IsError(ConditionErr, err) {
		t.Fatalf("expected a ConditionErr, got %v", err)
	}
}
