/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package workflow

import (
	"fmt"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
)

// Transition is the outcome of applying an action.
type Transition struct {
	From    models.Stage
	To      models.Stage
	Action  Action
	Input   Input
	Message string
}

// Changed reports whether the stage moves.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Engine validates actions against the catalogue. It holds no mutable
// state, so the same (stage, action) always yields the same transition.
type Engine struct {
	catalogue *Catalogue
}

// NewEngine creates an engine over an immutable catalogue.
func NewEngine(catalogue *Catalogue) *Engine {
	return &Engine{catalogue: catalogue}
}

// Catalogue returns the graph the engine enforces.
func (e *Engine) Catalogue() *Catalogue {
	return e.catalogue
}

// Apply computes the transition for actionID from stage. It does not
// persist anything; callers write To only after their own side effects.
func (e *Engine) Apply(stage models.Stage, actionID string, in Input) (Transition, error) {
	if in == nil {
		in = NoInput{}
	}
	if !e.catalogue.Has(stage) {
		return Transition{}, errs.IllegalTransition(string(stage), actionID)
	}

	action, ok := e.catalogue.Action(stage, actionID)
	if !ok {
		return Transition{}, errs.IllegalTransition(string(stage), actionID)
	}
	if action.Requires != InputNone && in.Kind() != action.Requires {
		return Transition{}, &errs.MissingInputError{Action: action.ID, Input: string(action.Requires)}
	}

	next := action.Next
	if next == "" {
		next = stage
	}

	msg := fmt.Sprintf("%s: candidate moved from %s to %s", action.Label, stage, next)
	if next == stage {
		msg = fmt.Sprintf("%s: candidate remains %s", action.Label, stage)
	}

	return Transition{
		From:    stage,
		To:      next,
		Action:  action,
		Input:   in,
		Message: msg,
	}, nil
}

// Available returns the ids of actions legal from stage.
func (e *Engine) Available(stage models.Stage) []string {
	def := e.catalogue.Stage(stage)
	ids := make([]string, 0, len(def.Actions))
	for _, a := range def.Actions {
		ids = append(ids, a.ID)
	}
	return ids
}
