package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorsMessage(t *testing.T) {
	if got := (Errors{}).Error(); got != "no errors" {
		t.Errorf("empty Errors = %q", got)
	}
	if got := (Errors{New("a")}).Error(); got != "a" {
		t.Errorf("single Errors = %q", got)
	}
	errs := Errors{New("a"), New("b\nc")}
	want := "multiple errors:\n\ta\n\tb\n\tc"
	if got := errs.Error(); got != want {
		t.Errorf("Errors = %q, want %q", got, want)
	}
}

func TestAppendReturn(t *testing.T) {
	var errs Errors
	if errs.Return() != nil {
		t.Error("empty Return != nil")
	}
	errs = errs.Append(nil, New("a"), nil)
	if len(errs) != 1 {
		t.Fatalf("Append kept %d errors, want 1", len(errs))
	}
	if err := errs.Return(); err == nil {
		t.Error("non-empty Return = nil")
	}
}

func TestUnion(t *testing.T) {
	if Union(nil, nil) != nil {
		t.Error("Union of nils != nil")
	}
	a, b, c := New("a"), New("b"), New("c")
	err := Union(a, Errors{b, nil, c}, nil)
	errs, ok := err.(Errors)
	if !ok {
		t.Fatalf("Union = %T, want Errors", err)
	}
	// Nested Errors are flattened, nils dropped.
	if len(errs) != 3 || errs[0] != a || errs[1] != b || errs[2] != c {
		t.Errorf("Union = %v, want [a b c]", errs)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	target := New("target")
	err := Union(New("other"), target)
	if !stderrors.Is(err, target) {
		t.Errorf("errors.Is does not reach %v inside %v", target, err)
	}
}
