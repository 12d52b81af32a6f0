// Package eval implements the default Evaluator the condition evaluator
// (package topdown) delegates metavariable conditions to: a small boolean
// expression tree built from the same three string builtins a policy
// engine exposes to rule authors (regex_match, glob_match, glob_intersect),
// evaluated directly against a binding's stringified value instead of
// against a rule language's term representation.
package eval

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	gintersect "github.com/yashtewari/glob-intersection"

	"github.com/patterncore/formulacore/ast"
)

// Op tags the shape of an Expr node.
type Op int

const (
	OpRegexMatch Op = iota
	OpGlobMatch
	OpGlobIntersect
	OpAnd
	OpOr
	OpNot
)

// Expr is the generic boolean expression a MetavarCond's Expr field carries
// when its Kind is CondGeneric (spec §4.3). It is opaque to package topdown
// — only this package's Evaluator interprets it.
type Expr struct {
	Op       Op
	Name     string
	Pattern  string
	Children []Expr
}

// RegexMatch builds an expression true when the binding named name's
// stringified value matches pattern.
func RegexMatch(name, pattern string) Expr { return Expr{Op: OpRegexMatch, Name: name, Pattern: pattern} }

// GlobMatch builds an expression true when the binding named name's
// stringified value matches the glob pattern.
func GlobMatch(name, pattern string) Expr { return Expr{Op: OpGlobMatch, Name: name, Pattern: pattern} }

// GlobIntersect builds an expression true when the binding named name's
// stringified value, read as a glob pattern itself, has a non-empty
// intersection with pattern — useful for rules that want to know whether
// two wildcarded shapes could ever match the same string.
func GlobIntersect(name, pattern string) Expr {
	return Expr{Op: OpGlobIntersect, Name: name, Pattern: pattern}
}

// And builds a conjunction of sub-expressions.
func And(children ...Expr) Expr { return Expr{Op: OpAnd, Children: children} }

// Or builds a disjunction of sub-expressions.
func Or(children ...Expr) Expr { return Expr{Op: OpOr, Children: children} }

// Not negates a sub-expression.
func Not(e Expr) Expr { return Expr{Op: OpNot, Children: []Expr{e}} }

// Evaluator is the default topdown.Evaluator implementation. It caches
// compiled regexes in a bounded LRU (patterns are rule-author controlled
// and the set seen in one process is small but unbounded over a long
// run) and compiled globs behind a mutex-guarded map, mirroring the two
// caching strategies used elsewhere in this module (see
// backend/regexbackend and util/coordinates.go) rather than picking one
// and forcing it everywhere.
type Evaluator struct {
	regexCache *lru.Cache[string, *regexp.Regexp]

	globMu    sync.Mutex
	globCache map[string]glob.Glob
}

// New returns an Evaluator with a 256-entry regex cache.
func New() *Evaluator {
	cache, err := lru.New[string, *regexp.Regexp](256)
	if err != nil {
		// Only returns an error for a non-positive size, which 256 never is.
		panic(err)
	}
	return &Evaluator{regexCache: cache, globCache: map[string]glob.Glob{}}
}

// EvalGeneric implements topdown.Evaluator. expr must be an eval.Expr;
// any other dynamic type is a programmer error in how the rule's Cond
// node was built, surfaced as an error rather than a panic.
func (e *Evaluator) EvalGeneric(_ context.Context, expr any, bindings *ast.BindingSet) (bool, error) {
	ex, ok := expr.(Expr)
	if !ok {
		return false, fmt.Errorf("eval: generic condition expression has type %T, want eval.Expr", expr)
	}
	return e.evalExpr(ex, bindings)
}

// EvalRegexBinding implements topdown.Evaluator's regex-condition shape in
// terms of the same RegexMatch expression EvalGeneric would evaluate.
func (e *Evaluator) EvalRegexBinding(_ context.Context, name, pattern string, bindings *ast.BindingSet) (bool, error) {
	return e.evalExpr(RegexMatch(name, pattern), bindings)
}

func (e *Evaluator) evalExpr(ex Expr, bindings *ast.BindingSet) (bool, error) {
	switch ex.Op {
	case OpAnd:
		for _, c := range ex.Children {
			ok, err := e.evalExpr(c, bindings)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case OpOr:
		for _, c := range ex.Children {
			ok, err := e.evalExpr(c, bindings)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case OpNot:
		ok, err := e.evalExpr(ex.Children[0], bindings)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case OpRegexMatch:
		v, ok := bindings.Get(ex.Name)
		if !ok {
			return false, nil
		}
		re, err := e.getRegexp(ex.Pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(v.String()), nil

	case OpGlobMatch:
		v, ok := bindings.Get(ex.Name)
		if !ok {
			return false, nil
		}
		g, err := e.getGlob(ex.Pattern)
		if err != nil {
			return false, err
		}
		return g.Match(v.String()), nil

	case OpGlobIntersect:
		v, ok := bindings.Get(ex.Name)
		if !ok {
			return false, nil
		}
		return gintersect.NonEmpty(v.String(), ex.Pattern)

	default:
		return false, fmt.Errorf("eval: unknown expression op %d", ex.Op)
	}
}

func (e *Evaluator) getRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.regexCache.Add(pattern, re)
	return re, nil
}

func (e *Evaluator) getGlob(pattern string) (glob.Glob, error) {
	e.globMu.Lock()
	defer e.globMu.Unlock()
	if g, ok := e.globCache[pattern]; ok {
		return g, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.globCache[pattern] = g
	return g, nil
}
