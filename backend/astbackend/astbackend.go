// Package astbackend implements the reference AstMatcher backend (spec
// §4.2): a minimal structural matcher over a language-agnostic generic
// tree (GenericNode) built purely from bracket nesting and token
// boundaries, not a real per-language parser. It supports the two things
// a structural pattern needs: a "$NAME" token captures a single node
// (leaf or bracketed group), with a repeated "$NAME" required to capture
// the same source text each time, and a "..." token matches zero or more
// sibling nodes.
package astbackend

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/ast/location"
	"github.com/patterncore/formulacore/util"
)

// NodeKind tags whether a GenericNode is a single token or a bracketed
// group of children.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeList
)

// GenericNode is one node of the generic tree: either a leaf token or a
// bracketed list of children. Start/End are byte offsets into the source
// the node (and everything under it) spans.
type GenericNode struct {
	Kind     NodeKind
	Text     string // leaf token text, or the opening bracket for a list ("(", "{", "[")
	Children []*GenericNode
	Start    int
	End      int
}

func (n *GenericNode) text(src []byte) string {
	return string(src[n.Start:n.End])
}

var closing = map[string]string{"(": ")", "{": "}", "[": "]"}

// Matcher is the reference AstMatcher implementation. Pattern text is
// always reparsed per leaf — patterns differ leaf to leaf, so there is
// nothing to cache there — but the source tree can be reused across every
// leaf a rule (or a batch of rules) runs against the same file, which is
// exactly what withCaching asks for.
type Matcher struct {
	mu    sync.Mutex
	cache map[string]*GenericNode
}

// New returns a Matcher with an empty source-tree cache.
func New() *Matcher {
	return &Matcher{cache: map[string]*GenericNode{}}
}

// Match implements topdown.AstMatcher: it parses the pattern and (subject
// to withCaching) the source into a GenericNode tree, and tries the
// pattern's root children as a sliding window against every list in the
// source tree, depth-first. When withCaching is true, the source tree for
// file is parsed once and reused on every subsequent call for that file;
// when false, it is always reparsed fresh, which is the correct choice
// whenever the caller cannot guarantee file's contents are stable across
// calls.
func (m *Matcher) Match(_ context.Context, withCaching bool, file string, src []byte, pattern ast.XPattern) ([]*ast.PatternMatch, error) {
	table, err := util.Coordinates(file, func() ([]byte, error) { return src, nil })
	if err != nil {
		return nil, err
	}

	patRoot := parse([]byte(pattern.Body.AstPattern))
	srcRoot := m.sourceTree(file, src, withCaching)

	var out []*ast.PatternMatch
	var walk func(n *GenericNode)
	walk = func(n *GenericNode) {
		if n.Kind != NodeList {
			return
		}
		for start := 0; start <= len(n.Children); start++ {
			bindings := ast.NewBindingSet()
			end, ok := matchSequence(patRoot.Children, n.Children, start, bindings, src)
			if ok && end > start {
				startLoc := n.Children[start].Start
				endLoc := n.Children[end-1].End
				sLine, sCol := table.Locate(startLoc)
				eLine, eCol := table.Locate(endLoc)
				out = append(out, &ast.PatternMatch{
					LeafID:   pattern.ID,
					File:     file,
					Start:    location.New(file, startLoc, sLine, sCol, nil),
					End:      location.New(file, endLoc, eLine, eCol, nil),
					Bindings: bindings,
				})
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(srcRoot)
	return out, nil
}

// sourceTree returns the GenericNode tree for src. With caching enabled it
// reuses a prior parse for file if one exists, and stores a fresh parse for
// later calls otherwise; without caching it always reparses.
func (m *Matcher) sourceTree(file string, src []byte, withCaching bool) *GenericNode {
	if !withCaching {
		return parse(src)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tree, ok := m.cache[file]; ok {
		return tree
	}
	tree := parse(src)
	m.cache[file] = tree
	return tree
}

// matchSequence tries to match every element of pat, in order, against
// src starting at srcStart, allowing "..." in pat to consume zero or more
// src siblings. It returns the index in src just past the last consumed
// element and whether the whole sequence matched.
func matchSequence(pat, src []*GenericNode, srcStart int, bindings *ast.BindingSet, fullSrc []byte) (int, bool) {
	if len(pat) == 0 {
		return srcStart, true
	}
	if pat[0].Kind == NodeLeaf && pat[0].Text == "..." {
		for consume := 0; srcStart+consume <= len(src); consume++ {
			if end, ok := matchSequence(pat[1:], src, srcStart+consume, bindings, fullSrc); ok {
				return end, true
			}
		}
		return srcStart, false
	}
	if srcStart >= len(src) {
		return srcStart, false
	}
	if !matchNode(pat[0], src[srcStart], bindings, fullSrc) {
		return srcStart, false
	}
	return matchSequence(pat[1:], src, srcStart+1, bindings, fullSrc)
}

func matchNode(pat, n *GenericNode, bindings *ast.BindingSet, fullSrc []byte) bool {
	if pat.Kind == NodeLeaf && strings.HasPrefix(pat.Text, "$") && len(pat.Text) > 1 {
		name := pat.Text[1:]
		captured := ast.NewASTValue(n, nil, nil, func(node any) string {
			gn := node.(*GenericNode)
			return gn.text(fullSrc)
		})
		if existing, ok := bindings.Get(name); ok {
			return existing.String() == captured.String()
		}
		bindings.Put(name, captured)
		return true
	}

	if pat.Kind == NodeLeaf {
		return n.Kind == NodeLeaf && pat.Text == n.Text
	}

	if n.Kind != NodeList || pat.Text != n.Text {
		return false
	}
	end, ok := matchSequence(pat.Children, n.Children, 0, bindings, fullSrc)
	return ok && end == len(n.Children)
}

// parse builds a GenericNode tree over src: brackets ()/{}/[]
// nest, everything else tokenizes on whitespace and punctuation boundaries.
func parse(src []byte) *GenericNode {
	toks := tokenize(src)
	root := &GenericNode{Kind: NodeList, Text: "", Start: 0, End: len(src)}
	stack := []*GenericNode{root}
	for _, tok := range toks {
		top := stack[len(stack)-1]
		switch {
		case tok.text == "(" || tok.text == "{" || tok.text == "[":
			child := &GenericNode{Kind: NodeList, Text: tok.text, Start: tok.start}
			top.Children = append(top.Children, child)
			stack = append(stack, child)
		case tok.text == ")" || tok.text == "}" || tok.text == "]":
			if len(stack) > 1 && closing[top.Text] == tok.text {
				top.End = tok.end
				stack = stack[:len(stack)-1]
			}
		default:
			top.Children = append(top.Children, &GenericNode{Kind: NodeLeaf, Text: tok.text, Start: tok.start, End: tok.end})
		}
	}
	if len(root.Children) > 0 {
		root.Start = root.Children[0].Start
		root.End = root.Children[len(root.Children)-1].End
	}
	return root
}

type token struct {
	text       string
	start, end int
}

func tokenize(src []byte) []token {
	var out []token
	i := 0
	for i < len(src) {
		r := rune(src[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')' || r == '{' || r == '}' || r == '[' || r == ']':
			out = append(out, token{text: string(r), start: i, end: i + 1})
			i++
		case r == '"' || r == '\'':
			start := i
			quote := r
			i++
			for i < len(src) && rune(src[i]) != quote {
				if src[i] == '\\' && i+1 < len(src) {
					i++
				}
				i++
			}
			if i < len(src) {
				i++
			}
			out = append(out, token{text: string(src[start:i]), start: start, end: i})
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '.':
			start := i
			for i < len(src) {
				c := rune(src[i])
				if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '$' || c == '.' {
					i++
					continue
				}
				break
			}
			out = append(out, token{text: string(src[start:i]), start: start, end: i})
		default:
			start := i
			i++
			out = append(out, token{text: string(src[start:i]), start: start, end: i})
		}
	}
	return out
}
