package model

import "testing"

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrNotFound, Message: "agent 'cook' not found"}
	want := "NOT_FOUND: agent 'cook' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("agent", "cook")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "agent 'cook' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "agent 'cook' not found")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Invalid query",
		FieldError{Field: "limit", Message: "expected int"},
		FieldError{Field: "offset", Message: "expected int"},
	)
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{
		Entity: "work entry",
		ID:     "we_123",
		From:   "RUNNING",
		To:     "CANCELED",
	}
	want := "invalid work entry state transition: RUNNING → CANCELED (entity we_123)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
