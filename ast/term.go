// Package ast defines the data model the formula evaluation core operates
// on: source locations, metavariable values and bindings, pattern matches,
// and the formula tree itself. It intentionally knows nothing about how a
// file is parsed or how a single pattern is matched against it — those are
// external collaborators (see package topdown).
package ast

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/patterncore/formulacore/ast/location"
)

// Kind tags the four shapes a metavariable value can take.
type Kind int

const (
	// KindAST values are opaque sub-AST handles owned by an AstMatcher.
	KindAST Kind = iota
	// KindInt values are integer literals.
	KindInt
	// KindString values are string literals.
	KindString
	// KindCapture values are raw textual captures that have not been
	// classified into a literal kind by the producing backend.
	KindCapture
)

func (k Kind) String() string {
	switch k {
	case KindAST:
		return "ast"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// Comparator decides whether two opaque AST node handles denote the same
// underlying code region. It is supplied by whichever AstMatcher produced
// the nodes; the core never compares nodes structurally itself.
type Comparator func(a, b any) bool

// Stringer renders an opaque AST node handle to the textual form used by
// regex metavariable conditions.
type Stringer func(node any) string

// MVal is an opaque metavariable value. Equality ("ast-binding equality")
// and string conversion are the only operations the core performs on it;
// everything else is delegated to the producing backend via Comparator and
// Stringer.
type MVal struct {
	kind Kind
	node any
	num  int64
	text string
	loc  *location.Loc
	cmp  Comparator
	str  Stringer
}

// NewASTValue wraps an opaque sub-AST node. cmp and str are supplied by the
// AstMatcher that produced node; either may be nil if the backend chooses
// not to support equality/stringification for that node kind, in which
// case the corresponding operation always returns false / "".
func NewASTValue(node any, loc *location.Loc, cmp Comparator, str Stringer) MVal {
	return MVal{kind: KindAST, node: node, loc: loc, cmp: cmp, str: str}
}

// NewIntLiteral constructs an integer literal value.
func NewIntLiteral(n int64, loc *location.Loc) MVal {
	return MVal{kind: KindInt, num: n, loc: loc}
}

// NewStringLiteral constructs a string literal value.
func NewStringLiteral(s string, loc *location.Loc) MVal {
	return MVal{kind: KindString, text: s, loc: loc}
}

// NewCapture constructs a raw textual capture value.
func NewCapture(s string, loc *location.Loc) MVal {
	return MVal{kind: KindCapture, text: s, loc: loc}
}

// NewLiteralFromText is the documented doc-backend classification rule:
// text that parses as a base-10 integer becomes an integer literal,
// otherwise it becomes a string literal.
func NewLiteralFromText(text string, loc *location.Loc) MVal {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return NewIntLiteral(n, loc)
	}
	return NewStringLiteral(text, loc)
}

// Kind reports the value's tag.
func (v MVal) Kind() Kind { return v.kind }

// Loc returns the source location the value was captured at, if any.
func (v MVal) Loc() *location.Loc { return v.loc }

// Node returns the opaque AST node handle for KindAST values, nil otherwise.
func (v MVal) Node() any { return v.node }

// Equal implements ast-binding equality: sub-AST values defer to the
// comparator supplied by whichever side has one; literals compare by value;
// values of different kinds are never equal, except that a string literal
// and a raw capture with identical text are treated as the same value —
// captures are simply literals a backend hasn't classified yet.
func (v MVal) Equal(other MVal) bool {
	if v.kind == KindAST || other.kind == KindAST {
		if v.kind != KindAST || other.kind != KindAST {
			return false
		}
		if v.cmp != nil {
			return v.cmp(v.node, other.node)
		}
		if other.cmp != nil {
			return other.cmp(other.node, v.node)
		}
		return false
	}
	switch v.kind {
	case KindInt:
		return other.kind == KindInt && v.num == other.num
	case KindString, KindCapture:
		return (other.kind == KindString || other.kind == KindCapture) && v.text == other.text
	default:
		return false
	}
}

// String renders the value's textual form, used to build the stringified
// environment that Regex metavariable conditions are evaluated against.
func (v MVal) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindString, KindCapture:
		return v.text
	case KindAST:
		if v.str != nil {
			return v.str(v.node)
		}
		return ""
	default:
		return ""
	}
}

// Hash returns a stable hash of the value's kind and textual form. It is
// not consistent with Equal: ast-binding-equal values can hash differently
// (a string literal and a capture with the same text differ in kind, and
// AST handles a Comparator treats as equal may render differently), and AST
// handles with no Stringer hash by kind alone. Nothing in the core uses it
// for equality; BindingSet keys its HashMap by binding name, not by value.
func (v MVal) Hash() int {
	h := xxhash.New()
	_, _ = h.Write([]byte(v.kind.String()))
	_, _ = h.Write([]byte(v.String()))
	return int(h.Sum64())
}

func (v MVal) GoString() string {
	return fmt.Sprintf("MVal{kind:%s, text:%q}", v.kind, v.String())
}
