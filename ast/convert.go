package ast

// LegacyFormula is the old nested-pattern rule shape EngineEntry
// normalises away before evaluation (spec §4.5 step 1): a "patterns" list
// is an implicit conjunction that may itself contain positive
// sub-patterns, "pattern-not" negations and "metavariable-*" conditions
// side by side; "pattern-either" is a disjunction. Exactly one field
// should be set on any given node.
type LegacyFormula struct {
	Pattern             *XPattern
	Patterns            []LegacyFormula
	PatternEither       []LegacyFormula
	PatternNot          *LegacyFormula
	MetavariableRegex   *LegacyMetavarRegex
	MetavariableGeneric *string
}

// LegacyMetavarRegex is the old shape's "metavariable-regex" condition.
type LegacyMetavarRegex struct {
	Name    string
	Pattern string
}

// Convert holds the legacy-shape conversion. It has no state; it is a
// namespace for ConvertLegacy the way the teacher's compiler stages are
// grouped under named conversion passes.
type Convert struct{}

// ConvertLegacy translates a LegacyFormula into the current Formula shape.
// A "patterns" list becomes an And whose children are themselves
// converted — "pattern-not" children become Not nodes and
// "metavariable-*" children become Cond nodes, which is exactly where the
// new shape requires them to live, so no further rewriting is needed
// after this pass.
func (Convert) ConvertLegacy(old LegacyFormula) (Formula, error) {
	switch {
	case old.Pattern != nil:
		return NewLeaf(*old.Pattern), nil

	case len(old.Patterns) > 0:
		children := make([]Formula, 0, len(old.Patterns))
		for _, c := range old.Patterns {
			f, err := Convert{}.ConvertLegacy(c)
			if err != nil {
				return Formula{}, err
			}
			children = append(children, f)
		}
		return NewAnd(children...), nil

	case len(old.PatternEither) > 0:
		children := make([]Formula, 0, len(old.PatternEither))
		for _, c := range old.PatternEither {
			f, err := Convert{}.ConvertLegacy(c)
			if err != nil {
				return Formula{}, err
			}
			children = append(children, f)
		}
		return NewOr(children...), nil

	case old.PatternNot != nil:
		inner, err := Convert{}.ConvertLegacy(*old.PatternNot)
		if err != nil {
			return Formula{}, err
		}
		return NewNot(inner), nil

	case old.MetavariableRegex != nil:
		return NewCond(MetavarCond{
			Kind:    CondRegex,
			Name:    old.MetavariableRegex.Name,
			Pattern: old.MetavariableRegex.Pattern,
		}), nil

	case old.MetavariableGeneric != nil:
		return NewCond(MetavarCond{Kind: CondGeneric, Expr: *old.MetavariableGeneric}), nil

	default:
		return Formula{}, NewError(EmptyLegacyFormulaErr, nil, "empty legacy formula node")
	}
}
