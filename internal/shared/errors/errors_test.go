package errors

import (
	"errors"
	"testing"
)

func TestOutOfScopeLooksLikeNotFound(t *testing.T) {
	hidden := OutOfScope("member", "abc")
	missing := NotFound("member", "abc")

	// The wire shape must be identical so a caller cannot tell a hidden
	// row from a missing one.
	if hidden.Code != missing.Code {
		t.Errorf("Expected code '%s', got '%s'", missing.Code, hidden.Code)
	}
	if hidden.HTTPStatus != missing.HTTPStatus {
		t.Errorf("Expected status %d, got %d", missing.HTTPStatus, hidden.HTTPStatus)
	}
	if hidden.Message != missing.Message {
		t.Errorf("Expected message '%s', got '%s'", missing.Message, hidden.Message)
	}

	// Internally the two stay distinguishable.
	if !errors.Is(hidden, ErrOutOfScope) {
		t.Error("OutOfScope should wrap ErrOutOfScope")
	}
	if errors.Is(hidden, ErrNotFound) {
		t.Error("OutOfScope should not unwrap to ErrNotFound")
	}
}

func TestWrapPreservesAppError(t *testing.T) {
	err := Wrap(NotFound("group", "g1"), "loading group")

	if err.Code != "NOT_FOUND" {
		t.Errorf("Expected 'NOT_FOUND', got '%s'", err.Code)
	}
	if err.Message != "loading group: group not found" {
		t.Errorf("Unexpected message '%s'", err.Message)
	}
}
