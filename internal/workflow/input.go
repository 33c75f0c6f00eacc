/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package workflow

import "strings"

// Input is the tagged payload of an action. Its Kind must match what the
// action requires; a NoInput never satisfies a reason-requiring action.
type Input interface {
	Kind() InputKind
}

// NoInput is passed to actions that take no input.
type NoInput struct{}

func (NoInput) Kind() InputKind { return InputNone }

// Reason carries the mandatory justification of reject-like actions.
type Reason struct {
	Text string
}

func (Reason) Kind() InputKind { return InputReason }

// InputFrom builds the tagged input from a free-text note. Blank text gives
// NoInput.
func InputFrom(notes string) Input {
	if text := strings.TrimSpace(notes); text != "" {
		return Reason{Text: text}
	}
	return NoInput{}
}

// Notes returns the free text carried by in, if any.
func Notes(in Input) string {
	if r, ok := in.(Reason); ok {
		return r.Text
	}
	return ""
}
