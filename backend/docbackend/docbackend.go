// Package docbackend implements the reference DocMatcher backend (spec
// §4.2): matching against whitespace-structured text formats — YAML, HCL,
// config files — that never get a real parse tree, where a pattern's
// literal indentation is part of what it means to match. A DocPattern is
// compiled once into a regular expression: literal text is escaped
// verbatim (including its leading whitespace, which is what makes this
// indentation-sensitive rather than token-soup matching), and every
// "$NAME" becomes a capture group binding one run of non-whitespace
// characters. The compiled pattern cache itself is grounded on the same
// mutex-guarded map the policy engine's regex_match/glob_match builtins
// use, picked here instead of the bounded LRU regexbackend uses since a
// rule set's distinct doc patterns are fixed at load time, not open-ended
// the way ad-hoc regex conditions are.
package docbackend

import (
	"regexp"
	"strings"
	"sync"

	"context"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/ast/location"
	"github.com/patterncore/formulacore/util"
)

var metavarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

type compiledPattern struct {
	re       *regexp.Regexp
	groupVar []string // group index i (1-based) -> metavariable name, "" if none
}

// Matcher is the reference DocMatcher implementation.
type Matcher struct {
	mu    sync.Mutex
	cache map[string]*compiledPattern
}

// New returns an empty Matcher.
func New() *Matcher {
	return &Matcher{cache: map[string]*compiledPattern{}}
}

// Match implements topdown.DocMatcher.
func (m *Matcher) Match(_ context.Context, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error) {
	cp, err := m.compile(pattern.Body.DocPattern)
	if err != nil {
		return nil, err
	}

	table, err := util.Coordinates(file, func() ([]byte, error) { return src, nil })
	if err != nil {
		return nil, err
	}

	locs := cp.re.FindAllSubmatchIndex(src, -1)
	out := make([]*ast.PatternMatch, 0, len(locs))
	for _, loc := range locs {
		captured := map[string]string{}
		consistent := true
		for i, name := range cp.groupVar {
			if name == "" || loc[2*(i+1)] < 0 {
				continue
			}
			text := string(src[loc[2*(i+1)]:loc[2*(i+1)+1]])
			if prev, ok := captured[name]; ok && prev != text {
				consistent = false
				break
			}
			captured[name] = text
		}
		if !consistent {
			continue
		}

		bindings := ast.NewBindingSet()
		for name, text := range captured {
			bindings.Put(name, ast.NewLiteralFromText(text, nil))
		}
		startLine, startCol := table.Locate(loc[0])
		endLine, endCol := table.Locate(loc[1])
		out = append(out, &ast.PatternMatch{
			LeafID:   pattern.ID,
			File:     file,
			Start:    location.New(file, loc[0], startLine, startCol, nil),
			End:      location.New(file, loc[1], endLine, endCol, nil),
			Bindings: bindings,
		})
	}
	return out, nil
}

func (m *Matcher) compile(docPattern string) (*compiledPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.cache[docPattern]; ok {
		return cp, nil
	}
	source, groupVar := compileDocPattern(docPattern)
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	cp := &compiledPattern{re: re, groupVar: groupVar}
	m.cache[docPattern] = cp
	return cp, nil
}

// compileDocPattern turns a DocPattern's literal text and "$NAME" captures
// into an anchorless regex source: literal text is escaped verbatim
// (including leading whitespace, which is what makes this indentation
// sensitive) and every "$NAME" becomes its own capture group, since RE2
// supports neither duplicate group names nor backreferences. groupVar maps
// each capture group back to the metavariable name it stands for so Match
// can enforce that repeated uses of the same name captured the same text.
func compileDocPattern(docPattern string) (string, []string) {
	var sb strings.Builder
	var groupVar []string
	last := 0
	for _, loc := range metavarPattern.FindAllStringSubmatchIndex(docPattern, -1) {
		sb.WriteString(regexp.QuoteMeta(docPattern[last:loc[0]]))
		name := docPattern[loc[2]:loc[3]]
		sb.WriteString(`(\S+)`)
		groupVar = append(groupVar, name)
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(docPattern[last:]))
	return sb.String(), groupVar
}
