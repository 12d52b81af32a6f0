package astbackend

import (
	"context"
	"testing"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/util"
)

func TestMatcherLiteralCall(t *testing.T) {
	util.ResetCoordinateCache()
	m := New()
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "foo($X)"}}
	src := []byte("bar(1)\nfoo(42)\nbaz(3)\n")

	matches, err := m.Match(context.Background(), false, "t1.go", src, pat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(matches), matches)
	}
	v, ok := matches[0].Bindings.Get("X")
	if !ok || v.String() != "42" {
		t.Fatalf("expected X=42, got %+v", matches[0].Bindings)
	}
}

func TestMatcherRepeatedCaptureRequiresSameText(t *testing.T) {
	util.ResetCoordinateCache()
	m := New()
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "eq($X, $X)"}}

	matches, err := m.Match(context.Background(), false, "t2.go", []byte("eq(1, 1)\neq(1, 2)\n"), pat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected only the consistent call to match, got %d", len(matches))
	}
}

func TestMatcherEllipsisSkipsArguments(t *testing.T) {
	util.ResetCoordinateCache()
	m := New()
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "foo(1, ..., 9)"}}

	matches, err := m.Match(context.Background(), false, "t3.go", []byte("foo(1, 2, 3, 9)\n"), pat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected the ellipsis pattern to match, got %d", len(matches))
	}
}

func TestMatcherNoMatch(t *testing.T) {
	util.ResetCoordinateCache()
	m := New()
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "foo($X)"}}

	matches, err := m.Match(context.Background(), false, "t4.go", []byte("bar(1)\n"), pat)
	if err != nil || len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v err=%v", matches, err)
	}
}

func TestMatcherCachingReusesSourceTreeAcrossLeaves(t *testing.T) {
	util.ResetCoordinateCache()
	m := New()
	src := []byte("foo(1)\nfoo(42)\n")

	pat1 := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "foo(1)"}}
	pat2 := ast.XPattern{ID: 2, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "foo(42)"}}

	if _, err := m.Match(context.Background(), true, "t5.go", src, pat1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.cache["t5.go"]; !ok {
		t.Fatalf("expected withCaching=true to populate the source-tree cache")
	}
	cached := m.cache["t5.go"]

	if _, err := m.Match(context.Background(), true, "t5.go", src, pat2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.cache["t5.go"] != cached {
		t.Fatalf("expected the second call to reuse the cached source tree, got a new one")
	}
}

func TestMatcherNoCachingAlwaysReparses(t *testing.T) {
	util.ResetCoordinateCache()
	m := New()
	src := []byte("foo(1)\n")
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendAst, AstPattern: "foo(1)"}}

	if _, err := m.Match(context.Background(), false, "t6.go", src, pat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.cache["t6.go"]; ok {
		t.Fatalf("expected withCaching=false to leave the cache untouched")
	}
}
