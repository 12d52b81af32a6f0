package topdown

import (
	"context"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/metrics"
)

// FormulaEvaluator folds a Formula tree down to a slice of
// RangeWithBindings by recursive descent (spec §4.4, C4):
//
//	Leaf  -> look up the leaf's id in the LeafIndex built by DispatchAll,
//	         lift every PatternMatch found to a RangeWithBindings
//	Or    -> union of every child's result
//	And   -> positives intersected, then negatives subtracted, then
//	         conditions applied to what's left — always in that order,
//	         regardless of the order children appear in the rule text
//	Not   -> only legal as a direct And child; evaluated as the
//	         Difference's right-hand side
//	Cond  -> only legal as a direct And child; evaluated as a Filter
//
// A Not or Cond node reached anywhere other than as a direct child of an
// And is a StructuralErr: the rule itself is malformed, not the input.
//
// FormulaEvaluator never dispatches to a backend itself: by the time Eval
// runs, every leaf's matches already live in the LeafIndex it is handed,
// built once per rule by BackendDispatcher.DispatchAll (spec §4.5 steps
// 2–4). This is what makes the fold a pure index lookup rather than a
// backend call per leaf encountered during descent.
type FormulaEvaluator struct {
	cond  *ConditionEvaluator
	instr *Instrumentation
}

// NewFormulaEvaluator returns a FormulaEvaluator that evaluates Cond nodes
// through cond. cond may be nil if the rule set never uses Cond nodes.
func NewFormulaEvaluator(cond *ConditionEvaluator) *FormulaEvaluator {
	return &FormulaEvaluator{cond: cond}
}

// WithInstrumentation attaches instr to record fold time.
func (e *FormulaEvaluator) WithInstrumentation(instr *Instrumentation) *FormulaEvaluator {
	e.instr = instr
	return e
}

// Eval evaluates f against the leaves already resolved into index.
func (e *FormulaEvaluator) Eval(ctx context.Context, index *ast.LeafIndex, f ast.Formula) ([]ast.RangeWithBindings, error) {
	e.instr.startTimer(metrics.FormulaEval)
	defer e.instr.stopTimer(metrics.FormulaEval)
	return e.evalFormula(ctx, index, f)
}

func (e *FormulaEvaluator) evalFormula(ctx context.Context, index *ast.LeafIndex, f ast.Formula) ([]ast.RangeWithBindings, error) {
	switch f.Kind {
	case ast.FormulaLeaf:
		pms := index.Lookup(f.Leaf.ID)
		out := make([]ast.RangeWithBindings, 0, len(pms))
		for _, pm := range pms {
			out = append(out, ast.LiftMatch(pm))
		}
		return out, nil

	case ast.FormulaOr:
		var out []ast.RangeWithBindings
		for _, child := range f.Children {
			if child.Kind == ast.FormulaNot || child.Kind == ast.FormulaCond {
				return nil, structuralErr("", nil, "Not/Cond are only legal as a direct child of And, found under Or")
			}
			cr, err := e.evalFormula(ctx, index, child)
			if err != nil {
				return nil, err
			}
			out = append(out, cr...)
		}
		return out, nil

	case ast.FormulaAnd:
		return e.evalAnd(ctx, index, f)

	case ast.FormulaNot:
		return nil, structuralErr("", nil, "Not is only legal as a direct child of And")

	case ast.FormulaCond:
		return nil, structuralErr("", nil, "Cond is only legal as a direct child of And")

	default:
		return nil, structuralErr("", nil, "unknown formula kind %d", f.Kind)
	}
}

// evalAnd evaluates an And's children in the fixed phase order the spec
// requires: positives (Leaf/Or/And) are intersected together first, then
// every negative (Not) child subtracts from what survived, then every
// condition (Cond) child filters what's left. This order is fixed
// regardless of how the children are written in the rule.
func (e *FormulaEvaluator) evalAnd(ctx context.Context, index *ast.LeafIndex, f ast.Formula) ([]ast.RangeWithBindings, error) {
	var positives []ast.Formula
	var negatives []ast.Formula
	var conds []ast.MetavarCond

	for _, child := range f.Children {
		switch child.Kind {
		case ast.FormulaNot:
			negatives = append(negatives, *child.Negated)
		case ast.FormulaCond:
			conds = append(conds, child.Cond)
		default:
			positives = append(positives, child)
		}
	}
	if len(positives) == 0 {
		return nil, structuralErr("", nil, "And requires at least one positive child")
	}

	var algebra RangeAlgebra

	acc, err := e.evalFormula(ctx, index, positives[0])
	if err != nil {
		return nil, err
	}
	for _, p := range positives[1:] {
		next, err := e.evalFormula(ctx, index, p)
		if err != nil {
			return nil, err
		}
		acc = algebra.Intersect(acc, next)
	}

	for _, n := range negatives {
		negRanges, err := e.evalFormula(ctx, index, n)
		if err != nil {
			return nil, err
		}
		acc = algebra.Difference(acc, negRanges)
	}

	if e.cond != nil {
		for _, cond := range conds {
			acc, err = e.cond.Apply(ctx, cond, acc)
			if err != nil {
				return nil, err
			}
		}
	} else if len(conds) > 0 {
		return nil, conditionErr("", nil, "rule uses Cond but no ConditionEvaluator is wired")
	}

	return acc, nil
}
