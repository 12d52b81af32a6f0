package ast

// Visitor mirrors the Walk-style visitor used throughout this package's
// teacher lineage: Visit is called on every Formula node before its
// children are visited, and returning nil short-circuits that subtree.
type Visitor interface {
	Visit(f *Formula) (w Visitor)
}

// Walk performs a preorder traversal of a Formula tree.
func Walk(v Visitor, f *Formula) {
	w := v.Visit(f)
	if w == nil {
		return
	}
	switch f.Kind {
	case FormulaOr, FormulaAnd:
		for i := range f.Children {
			Walk(w, &f.Children[i])
		}
	case FormulaNot:
		Walk(w, f.Negated)
	}
}

// Leaves returns every Leaf node reachable from f, via a pure post-order
// fold rather than the mutable-accumulator idiom the original matcher
// used for this walk (design note: prefer a value returned by the
// recursion over a cell threaded through it). Preorder vs. postorder does
// not matter here — order of the returned leaves carries no meaning,
// consumers key by leaf id (spec §4.5 step 2).
func Leaves(f Formula) []XPattern {
	switch f.Kind {
	case FormulaLeaf:
		return []XPattern{f.Leaf}
	case FormulaOr, FormulaAnd:
		var out []XPattern
		for _, c := range f.Children {
			out = append(out, Leaves(c)...)
		}
		return out
	case FormulaNot:
		if f.Negated == nil {
			return nil
		}
		return Leaves(*f.Negated)
	case FormulaCond:
		return nil
	default:
		return nil
	}
}
