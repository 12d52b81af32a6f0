// Package regexbackend implements the reference RegexEngine backend (spec
// §4.2): plain regular-expression matching against a file's raw bytes,
// with named capture groups ((?P<name>...)) becoming metavariable
// bindings. It is grounded on the same regexp-cache idea as the policy
// engine's regex_match builtin, swapped to a bounded LRU so a long-running
// process matching against many distinct ad-hoc patterns can't grow the
// cache without limit.
package regexbackend

import (
	"context"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/ast/location"
	"github.com/patterncore/formulacore/util"
)

// Engine is the reference RegexEngine implementation.
type Engine struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

// New returns an Engine with an LRU regex cache holding up to size
// compiled patterns.
func New(size int) *Engine {
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return &Engine{cache: cache}
}

// Match implements topdown.RegexEngine: every non-overlapping match of
// pattern.Body.RegexPattern against src becomes one PatternMatch, with any
// named capture groups lifted into the match's BindingSet as string
// literals.
func (e *Engine) Match(_ context.Context, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error) {
	re, err := e.getRegexp(pattern.Body.RegexPattern)
	if err != nil {
		return nil, err
	}

	table, err := util.Coordinates(file, func() ([]byte, error) { return src, nil })
	if err != nil {
		return nil, err
	}

	names := re.SubexpNames()
	locs := re.FindAllSubmatchIndex(src, -1)
	out := make([]*ast.PatternMatch, 0, len(locs))
	for _, m := range locs {
		bindings := ast.NewBindingSet()
		for i := 1; i < len(names); i++ {
			if names[i] == "" || m[2*i] < 0 {
				continue
			}
			bindings.Put(names[i], ast.NewStringLiteral(string(src[m[2*i]:m[2*i+1]]), nil))
		}
		startLine, startCol := table.Locate(m[0])
		endLine, endCol := table.Locate(m[1])
		out = append(out, &ast.PatternMatch{
			LeafID:   pattern.ID,
			File:     file,
			Start:    location.New(file, m[0], startLine, startCol, nil),
			End:      location.New(file, m[1], endLine, endCol, nil),
			Bindings: bindings,
		})
	}
	return out, nil
}

func (e *Engine) getRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.cache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.cache.Add(pattern, re)
	return re, nil
}
