/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pipeline coordinates the booking ledger and the workflow engine
// for operations that change both a booking and a candidate's stage. The
// side effect on the booking runs first; the stage is written second. When
// the stage write fails the booking change is compensated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/booking"
	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/telemetry"
	"github.com/friendsincode/recruitd/internal/workflow"
)

// Action ids the orchestrator treats specially.
const (
	ActionScheduleInterview = "schedule-interview"
	ActionReschedule        = "reschedule"
	ActionStartInterview    = "start-interview"
	ActionCompleteInterview = "complete-interview"
)

const compensationTimeout = 5 * time.Second

// Ledger is the part of the booking ledger the orchestrator drives.
type Ledger interface {
	Create(ctx context.Context, req booking.CreateRequest) (*models.InterviewSchedule, error)
	Get(ctx context.Context, id string) (*models.InterviewSchedule, error)
	UpdateStatus(ctx context.Context, id string, status models.InterviewStatus, notes *string) (*models.InterviewSchedule, error)
	Cancel(ctx context.Context, id string) (*models.InterviewSchedule, error)
	Reinstate(ctx context.Context, id string) (*models.InterviewSchedule, error)
	ActiveForCandidate(ctx context.Context, candidateID string) ([]models.InterviewSchedule, error)
}

// Orchestrator runs compound pipeline operations.
type Orchestrator struct {
	db     *gorm.DB
	engine *workflow.Engine
	ledger Ledger
	bus    events.Broker
	logger zerolog.Logger
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(db *gorm.DB, engine *workflow.Engine, ledger Ledger, bus events.Broker, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		db:     db,
		engine: engine,
		ledger: ledger,
		bus:    bus,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// ActionRequest is the loose body of the generic action endpoint.
type ActionRequest struct {
	PerformedBy string `json:"performed_by"`
	Notes       string `json:"notes"`
}

// CompleteRequest carries the outcome notes of an interview.
type CompleteRequest struct {
	PerformedBy string  `json:"performed_by"`
	Notes       *string `json:"notes"`
}

// Result is returned by every stage-changing operation.
type Result struct {
	Message   string                    `json:"message"`
	NewStage  models.Stage              `json:"new_stage"`
	Candidate *models.Candidate         `json:"candidate,omitempty"`
	Interview *models.InterviewSchedule `json:"interview,omitempty"`
}

// AvailableActions lists the action ids legal from the candidate's stage.
func (o *Orchestrator) AvailableActions(ctx context.Context, candidateID string) ([]string, error) {
	cand, err := o.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return o.engine.Available(cand.Stage), nil
}

// ScheduleInterview books an interview and moves the candidate to
// interview-scheduled. If the stage cannot move, the booking is cancelled
// and the operation fails.
func (o *Orchestrator) ScheduleInterview(ctx context.Context, candidateID string, req booking.CreateRequest) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline", "pipeline.schedule_interview")
	defer span.End()

	cand, err := o.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	req.CandidateID = cand.ID

	b, err := o.ledger.Create(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var updated *models.Candidate
	t, err := o.engine.Apply(cand.Stage, ActionScheduleInterview, workflow.NoInput{})
	if err == nil {
		updated, err = o.commit(ctx, cand, []workflow.Transition{t}, req.CreatedBy, &b.ID)
	}
	if err != nil {
		o.rejected(err)
		telemetry.RecordError(span, err)
		o.compensate(ctx, "schedule_interview", b.ID, err, func(undoCtx context.Context) error {
			_, cerr := o.ledger.Cancel(undoCtx, b.ID)
			return cerr
		})
		return nil, err
	}

	if b, err = o.ledger.Get(ctx, b.ID); err != nil {
		return nil, err
	}
	return &Result{Message: t.Message, NewStage: updated.Stage, Candidate: updated, Interview: b}, nil
}

// CompleteInterview marks the booking completed and moves the candidate to
// interview-completed, starting the interview first when the candidate is
// still interview-scheduled. A failed stage write reopens the booking.
func (o *Orchestrator) CompleteInterview(ctx context.Context, candidateID, bookingID string, req CompleteRequest) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline", "pipeline.complete_interview")
	defer span.End()

	cand, err := o.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	b, err := o.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CandidateID != cand.ID {
		return nil, errs.Invalid("interview_id", "interview %s does not belong to candidate %s", b.ID, cand.ID)
	}

	b, err = o.ledger.UpdateStatus(ctx, b.ID, models.InterviewCompleted, req.Notes)
	if err != nil {
		return nil, err
	}

	steps, err := o.completionPath(cand.Stage)
	var updated *models.Candidate
	if err == nil {
		updated, err = o.commit(ctx, cand, steps, req.PerformedBy, &b.ID)
	}
	if err != nil {
		o.rejected(err)
		telemetry.RecordError(span, err)
		o.compensate(ctx, "complete_interview", b.ID, err, func(undoCtx context.Context) error {
			_, rerr := o.ledger.Reinstate(undoCtx, b.ID)
			return rerr
		})
		return nil, err
	}

	last := steps[len(steps)-1]
	return &Result{Message: last.Message, NewStage: updated.Stage, Candidate: updated, Interview: b}, nil
}

// RejectAtStage cancels the candidate's active bookings and applies the
// reject action of the current stage. A reason is mandatory. When the stage
// write fails the cancelled bookings are reinstated.
func (o *Orchestrator) RejectAtStage(ctx context.Context, candidateID, reason, performedBy string) (*Result, error) {
	cand, err := o.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	action, ok := o.engine.Catalogue().ActionTo(cand.Stage, models.StageRejected)
	if !ok {
		err := errs.IllegalTransition(string(cand.Stage), "reject")
		o.rejected(err)
		return nil, err
	}
	return o.reject(ctx, cand, action.ID, workflow.InputFrom(reason), performedBy)
}

// PerformAction applies actionID from the generic action endpoint.
// Scheduling actions need an active booking made through the interviews
// endpoint; reject-like actions go through RejectAtStage semantics.
func (o *Orchestrator) PerformAction(ctx context.Context, candidateID, actionID string, req ActionRequest) (*Result, error) {
	cand, err := o.candidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	in := workflow.InputFrom(req.Notes)

	t, err := o.engine.Apply(cand.Stage, actionID, in)
	if err != nil {
		o.rejected(err)
		return nil, err
	}

	if t.To == models.StageRejected && t.Changed() {
		return o.reject(ctx, cand, actionID, in, req.PerformedBy)
	}

	var bookingID *string
	if actionID == ActionScheduleInterview || actionID == ActionReschedule {
		active, err := o.ledger.ActiveForCandidate(ctx, cand.ID)
		if err != nil {
			return nil, err
		}
		if len(active) == 0 {
			return nil, errs.Invalid("action", "%s needs an active interview; book one through POST /candidates/%s/interviews", actionID, cand.ID)
		}
		bookingID = &active[0].ID
	}

	updated, err := o.commit(ctx, cand, []workflow.Transition{t}, req.PerformedBy, bookingID)
	if err != nil {
		o.rejected(err)
		return nil, err
	}
	return &Result{Message: t.Message, NewStage: updated.Stage, Candidate: updated}, nil
}

func (o *Orchestrator) reject(ctx context.Context, cand *models.Candidate, actionID string, in workflow.Input, performedBy string) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline", "pipeline.reject")
	defer span.End()

	t, err := o.engine.Apply(cand.Stage, actionID, in)
	if err != nil {
		o.rejected(err)
		return nil, err
	}

	active, err := o.ledger.ActiveForCandidate(ctx, cand.ID)
	if err != nil {
		return nil, err
	}
	var cancelled []string
	for _, b := range active {
		if _, err := o.ledger.Cancel(ctx, b.ID); err != nil {
			o.restore(ctx, cancelled, err)
			return nil, err
		}
		cancelled = append(cancelled, b.ID)
	}

	updated, err := o.commit(ctx, cand, []workflow.Transition{t}, performedBy, nil)
	if err != nil {
		o.rejected(err)
		telemetry.RecordError(span, err)
		o.restore(ctx, cancelled, err)
		return nil, err
	}
	return &Result{Message: t.Message, NewStage: updated.Stage, Candidate: updated}, nil
}

func (o *Orchestrator) restore(ctx context.Context, bookingIDs []string, cause error) {
	for _, id := range bookingIDs {
		o.compensate(ctx, "reject", id, cause, func(undoCtx context.Context) error {
			_, err := o.ledger.Reinstate(undoCtx, id)
			return err
		})
	}
}

// completionPath is start-interview (when needed) then complete-interview.
func (o *Orchestrator) completionPath(stage models.Stage) ([]workflow.Transition, error) {
	var steps []workflow.Transition
	if stage == models.StageInterviewScheduled {
		start, err := o.engine.Apply(stage, ActionStartInterview, workflow.NoInput{})
		if err != nil {
			return nil, err
		}
		steps = append(steps, start)
		stage = start.To
	}
	done, err := o.engine.Apply(stage, ActionCompleteInterview, workflow.NoInput{})
	if err != nil {
		return nil, err
	}
	return append(steps, done), nil
}

// commit writes the final stage of steps with a compare-and-set on the
// starting stage and records one history row per step.
func (o *Orchestrator) commit(ctx context.Context, cand *models.Candidate, steps []workflow.Transition, performedBy string, bookingID *string) (*models.Candidate, error) {
	from := cand.Stage
	to := steps[len(steps)-1].To
	now := time.Now().UTC()

	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Candidate{}).
			Where("id = ? AND stage = ?", cand.ID, from).
			Updates(map[string]any{"stage": to, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("update candidate stage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var current models.Candidate
			if err := tx.Select("stage").First(&current, "id = ?", cand.ID).Error; err != nil {
				return fmt.Errorf("reload candidate: %w", err)
			}
			return errs.IllegalTransition(string(current.Stage), steps[0].Action.ID)
		}

		for i, t := range steps {
			row := models.CandidateStageHistory{
				ID:          uuid.NewString(),
				CandidateID: cand.ID,
				FromStage:   t.From,
				ToStage:     t.To,
				Action:      t.Action.ID,
				PerformedBy: performedBy,
				Notes:       workflow.Notes(t.Input),
				BookingID:   bookingID,
				CreatedAt:   now.Add(time.Duration(i) * time.Microsecond),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert stage history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range steps {
		telemetry.WorkflowTransitionsTotal.WithLabelValues(t.Action.ID, string(t.From), string(t.To)).Inc()
	}
	payload := events.Payload{
		"candidate_id": cand.ID,
		"from_stage":   string(from),
		"to_stage":     string(to),
		"action":       steps[len(steps)-1].Action.ID,
		"performed_by": performedBy,
	}
	if bookingID != nil {
		payload["booking_id"] = *bookingID
	}
	o.bus.Publish(events.EventCandidateStage, payload)
	o.logger.Info().
		Str("candidate_id", cand.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("action", steps[len(steps)-1].Action.ID).
		Msg("candidate stage changed")

	updated := *cand
	updated.Stage = to
	updated.UpdatedAt = now
	return &updated, nil
}

// compensate runs undo and reports a failed rollback as an inconsistency.
// compensate runs undo detached from the caller's cancellation.
func (o *Orchestrator) compensate(ctx context.Context, operation, bookingID string, cause error, undo func(context.Context) error) {
	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := undo(undoCtx); err != nil {
		telemetry.CompensationsTotal.WithLabelValues(operation, "failed").Inc()
		o.logger.Error().
			Bool("inconsistency", true).
			Str("operation", operation).
			Str("booking_id", bookingID).
			AnErr("cause", cause).
			AnErr("rollback_error", err).
			Msg("compensation failed, operator attention required")
		o.bus.Publish(events.EventPipelineInconsistent, events.Payload{
			"operation":      operation,
			"booking_id":     bookingID,
			"cause":          cause.Error(),
			"rollback_error": err.Error(),
			"detected_at":    time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	telemetry.CompensationsTotal.WithLabelValues(operation, "restored").Inc()
	o.logger.Warn().Str("operation", operation).Str("booking_id", bookingID).AnErr("cause", cause).Msg("booking change rolled back")
}

func (o *Orchestrator) rejected(err error) {
	switch {
	case errors.Is(err, errs.ErrIllegalTransition):
		telemetry.WorkflowRejectionsTotal.WithLabelValues("illegal_transition").Inc()
	case errors.Is(err, errs.ErrMissingInput):
		telemetry.WorkflowRejectionsTotal.WithLabelValues("missing_input").Inc()
	}
}

func (o *Orchestrator) candidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := o.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("candidate", id)
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	return &c, nil
}
