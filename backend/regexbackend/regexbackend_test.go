package regexbackend

import (
	"context"
	"testing"

	"github.com/patterncore/formulacore/ast"
	"github.com/patterncore/formulacore/util"
)

func TestEngineMatchesNamedGroups(t *testing.T) {
	util.ResetCoordinateCache()
	e := New(8)
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendRegex, RegexPattern: `func (?P<name>\w+)\(`}}
	src := []byte("func foo(\nfunc bar(\n")

	matches, err := e.Match(context.Background(), "t1.go", src, pat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	v, ok := matches[0].Bindings.Get("name")
	if !ok || v.String() != "foo" {
		t.Fatalf("expected the first match to bind name=foo, got %+v", matches[0].Bindings)
	}
	v, ok = matches[1].Bindings.Get("name")
	if !ok || v.String() != "bar" {
		t.Fatalf("expected the second match to bind name=bar, got %+v", matches[1].Bindings)
	}
}

func TestEngineCachesCompiledPattern(t *testing.T) {
	util.ResetCoordinateCache()
	e := New(8)
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendRegex, RegexPattern: `x+`}}
	if _, err := e.Match(context.Background(), "t2.go", []byte("xx"), pat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.cache.Get(`x+`); !ok {
		t.Fatalf("expected the compiled pattern to be cached")
	}
}

func TestEngineNoMatches(t *testing.T) {
	util.ResetCoordinateCache()
	e := New(8)
	pat := ast.XPattern{ID: 1, Body: ast.Body{Kind: ast.BackendRegex, RegexPattern: `zzz`}}
	matches, err := e.Match(context.Background(), "t3.go", []byte("abc"), pat)
	if err != nil || len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v err=%v", matches, err)
	}
}
