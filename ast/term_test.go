package ast

import "testing"

func TestMValLiteralEquality(t *testing.T) {
	a := NewIntLiteral(1, nil)
	b := NewIntLiteral(1, nil)
	c := NewIntLiteral(2, nil)
	if !a.Equal(b) {
		t.Fatalf("equal integer literals should compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("distinct integer literals should not compare equal")
	}

	s := NewStringLiteral("x", nil)
	if a.Equal(s) {
		t.Fatalf("values of different kinds should not compare equal")
	}
}

func TestMValCaptureIsLiteralLike(t *testing.T) {
	cap := NewCapture("foo", nil)
	str := NewStringLiteral("foo", nil)
	if !cap.Equal(str) {
		t.Fatalf("a capture and a string literal with identical text should compare equal")
	}
}

func TestMValASTEqualityDelegatesToComparator(t *testing.T) {
	always := func(a, b any) bool { return true }
	never := func(a, b any) bool { return false }

	a := NewASTValue("node-a", nil, always, nil)
	b := NewASTValue("node-b", nil, never, nil)
	if !a.Equal(b) {
		t.Fatalf("expected a.Equal(b) to consult a's comparator and report equal")
	}
	if b.Equal(a) {
		t.Fatalf("expected b.Equal(a) to consult b's comparator and report unequal")
	}

	noCmp := NewASTValue("node-c", nil, nil, nil)
	if !noCmp.Equal(a) {
		t.Fatalf("a value with no comparator of its own should fall back to the other side's comparator")
	}
	if !a.Equal(noCmp) {
		t.Fatalf("a's comparator should be used when a has one and the other side does not")
	}
}

func TestMValLiteralFromText(t *testing.T) {
	v := NewLiteralFromText("42", nil)
	if v.Kind() != KindInt || v.String() != "42" {
		t.Fatalf("expected base-10 integer text to classify as an integer literal, got %#v", v)
	}
	v2 := NewLiteralFromText("abc", nil)
	if v2.Kind() != KindString || v2.String() != "abc" {
		t.Fatalf("expected non-numeric text to classify as a string literal, got %#v", v2)
	}
}

func TestMValStringDelegatesToStringer(t *testing.T) {
	str := func(n any) string { return "rendered:" + n.(string) }
	v := NewASTValue("x", nil, nil, str)
	if v.String() != "rendered:x" {
		t.Fatalf("expected String() to delegate to the supplied Stringer, got %q", v.String())
	}
}
