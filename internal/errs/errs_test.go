package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Invalid("interviewer_id", "is required"), ErrValidation},
		{"not found", NotFound("room", "r1"), ErrNotFound},
		{"conflict", &ConflictError{Resource: "room", OwnerID: "r1", BookingID: "b1"}, ErrSchedulingConflict},
		{"transition", IllegalTransition("applied", "final-reject"), ErrIllegalTransition},
		{"missing input", &MissingInputError{Action: "reject", Input: "reason"}, ErrMissingInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Fatalf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}
			if !IsBusiness(wrapped) {
				t.Fatalf("expected %v to be a business error", wrapped)
			}
		})
	}
}

func TestConflictErrorCarriesBooking(t *testing.T) {
	err := fmt.Errorf("create: %w", &ConflictError{Resource: "interviewer", OwnerID: "i1", BookingID: "b42"})

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatal("expected ConflictError")
	}
	if conflict.BookingID != "b42" {
		t.Fatalf("booking id = %q", conflict.BookingID)
	}
}

func TestStorageErrorIsNotBusiness(t *testing.T) {
	if IsBusiness(errors.New("connection refused")) {
		t.Fatal("plain errors must not be business errors")
	}
}
