package topdown

import (
	"context"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/metrics"
)

// Evaluator evaluates the two MetavarCond shapes against a binding set. The
// generic shape's Expr is opaque to the core (spec §4.3) — only the
// Evaluator implementation (package backend/eval) knows its syntax.
type Evaluator interface {
	EvalGeneric(ctx context.Context, expr any, bindings *ast.BindingSet) (bool, error)
	EvalRegexBinding(ctx context.Context, name, pattern string, bindings *ast.BindingSet) (bool, error)
}

// ConditionEvaluator applies a Cond node's MetavarCond to every candidate in
// a range set, keeping only those whose bindings satisfy it (spec §4.3,
// C3). It never inspects a candidate's Range — conditions are purely a
// function of bindings.
type ConditionEvaluator struct {
	eval  Evaluator
	instr *Instrumentation
}

// NewConditionEvaluator returns a ConditionEvaluator backed by eval.
func NewConditionEvaluator(eval Evaluator) *ConditionEvaluator {
	return &ConditionEvaluator{eval: eval}
}

// WithInstrumentation attaches instr to record condition-evaluation time.
func (c *ConditionEvaluator) WithInstrumentation(instr *Instrumentation) *ConditionEvaluator {
	c.instr = instr
	return c
}

// Apply filters in down to the candidates whose bindings satisfy cond.
func (c *ConditionEvaluator) Apply(ctx context.Context, cond ast.MetavarCond, in []ast.RangeWithBindings) ([]ast.RangeWithBindings, error) {
	c.instr.startTimer(metrics.ConditionEval)
	defer c.instr.stopTimer(metrics.ConditionEval)

	var algebra RangeAlgebra
	var firstErr error
	out := algebra.Filter(in, func(rb ast.RangeWithBindings) bool {
		if firstErr != nil {
			return false
		}
		ok, err := c.eval1(ctx, cond, rb.Bindings)
		if err != nil {
			firstErr = err
			return false
		}
		return ok
	})
	if firstErr != nil {
		return nil, conditionErr("", firstErr, "evaluating condition")
	}
	return out, nil
}

func (c *ConditionEvaluator) eval1(ctx context.Context, cond ast.MetavarCond, bindings *ast.BindingSet) (bool, error) {
	if c.eval == nil {
		return false, errNoEvaluator
	}
	switch cond.Kind {
	case ast.CondRegex:
		return c.eval.EvalRegexBinding(ctx, cond.Name, cond.Pattern, bindings)
	default:
		return c.eval.EvalGeneric(ctx, cond.Expr, bindings)
	}
}

var errNoEvaluator = conditionNoEvaluatorError{}

type conditionNoEvaluatorError struct{}

func (conditionNoEvaluatorError) Error() string { return "no condition evaluator wired" }
