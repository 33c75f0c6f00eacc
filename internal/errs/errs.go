/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package errs defines the user-facing error taxonomy shared by the
// scheduling and workflow packages. Every typed error matches its sentinel
// through errors.Is, so callers can branch on the category without caring
// about the carried detail.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a malformed or incomplete request.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates an unknown candidate, interviewer, room or booking.
	ErrNotFound = errors.New("not found")

	// ErrSchedulingConflict indicates an overlap with an existing scheduled booking.
	ErrSchedulingConflict = errors.New("scheduling conflict")

	// ErrIllegalTransition indicates an action or status change not permitted from the current state.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrMissingInput indicates an action that requires input was applied without it.
	ErrMissingInput = errors.New("missing input")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConflictError carries the booking a proposal collided with.
type ConflictError struct {
	Resource  string // "interviewer" or "room"
	OwnerID   string
	BookingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s is already booked by interview %s at that time", e.Resource, e.OwnerID, e.BookingID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrSchedulingConflict }

// TransitionError describes a rejected action or status change.
type TransitionError struct {
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%q is not allowed from %q", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// IllegalTransition builds a TransitionError.
func IllegalTransition(from, action string) error {
	return &TransitionError{From: from, Action: action}
}

// MissingInputError names the action and the input it expects.
type MissingInputError struct {
	Action string
	Input  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("action %q requires a %s", e.Action, e.Input)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

// IsBusiness reports whether err belongs to the user-facing taxonomy.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSchedulingConflict) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrMissingInput)
}
