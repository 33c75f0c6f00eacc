/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package booking is the ledger of interview schedules and the only writer
// of booking state.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/lock"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// Directory resolves the records a booking refers to.
type Directory interface {
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	GetInterviewer(ctx context.Context, id string) (*models.Interviewer, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
}

// Config holds ledger limits.
type Config struct {
	DefaultDurationMinutes int
	MaxDurationMinutes     int
}

// Ledger owns interview schedules.
type Ledger struct {
	db       *gorm.DB
	dir      Directory
	resolver *scheduling.Resolver
	locker   lock.Locker
	bus      events.Broker
	cfg      Config
	logger   zerolog.Logger
}

// NewLedger creates the booking ledger.
func NewLedger(db *gorm.DB, dir Directory, locker lock.Locker, bus events.Broker, cfg Config, logger zerolog.Logger) *Ledger {
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = 60
	}
	if cfg.MaxDurationMinutes < cfg.DefaultDurationMinutes {
		cfg.MaxDurationMinutes = scheduling.MinutesPerDay
	}
	return &Ledger{
		db:       db,
		dir:      dir,
		resolver: scheduling.NewResolver(logger),
		locker:   locker,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With().Str("component", "booking_ledger").Logger(),
	}
}

// Check runs the conflict resolver for a request without writing anything.
func (l *Ledger) Check(ctx context.Context, req CreateRequest) error {
	p, err := l.prepare(req)
	if err != nil {
		return err
	}
	return l.resolver.Check(ctx, l.db, p.proposal())
}

// Create validates the request, checks both resources for overlaps and
// persists a scheduled booking. The overlap check and the insert run in one
// transaction while the interviewer and room day locks are held.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*models.InterviewSchedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking", "ledger.create")
	defer span.End()

	p, err := l.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := l.checkReferences(ctx, &p.booking); err != nil {
		return nil, err
	}

	p.booking.ID = uuid.NewString()
	err = l.withLocks(ctx, lockKeys(p.proposal()), func(tx *gorm.DB) error {
		if err := l.resolver.Check(ctx, tx, p.proposal()); err != nil {
			return err
		}
		if err := tx.Create(&p.booking).Error; err != nil {
			return fmt.Errorf("insert interview: %w", err)
		}
		return nil
	})
	if err != nil {
		l.recordConflict(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	b := p.booking
	telemetry.BookingsCreatedTotal.WithLabelValues(string(b.InterviewMode)).Inc()
	telemetry.AddSpanAttributes(span, map[string]any{
		"booking.id":     b.ID,
		"interviewer.id": b.InterviewerID,
		"date":           b.ScheduledDate,
	})

	l.bus.Publish(events.EventBookingCreated, bookingPayload(&b, b.CreatedBy))
	l.logger.Info().
		Str("booking_id", b.ID).
		Str("candidate_id", b.CandidateID).
		Str("interviewer_id", b.InterviewerID).
		Str("date", b.ScheduledDate).
		Str("time", b.ScheduledTime).
		Int("duration", b.DurationMinutes).
		Msg("interview scheduled")

	return &b, nil
}

// Get loads one booking.
func (l *Ledger) Get(ctx context.Context, id string) (*models.InterviewSchedule, error) {
	return l.load(l.db.WithContext(ctx), id)
}

// List returns bookings matching f ordered by date, time and id.
func (l *Ledger) List(ctx context.Context, f Filter) ([]models.InterviewSchedule, error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, errs.Invalid("status", "unknown interview status %q", f.Status)
	}
	for field, v := range map[string]string{"scheduled_date": f.Date, "start_date": f.DateFrom, "end_date": f.DateTo} {
		if v == "" {
			continue
		}
		if _, err := scheduling.ParseDate(field, v); err != nil {
			return nil, err
		}
	}

	q := l.db.WithContext(ctx).Order("scheduled_date ASC, start_minute ASC, id ASC")
	if f.CandidateID != "" {
		q = q.Where("candidate_id = ?", f.CandidateID)
	}
	if f.InterviewerID != "" {
		q = q.Where("interviewer_id = ?", f.InterviewerID)
	}
	if f.RoomID != "" {
		q = q.Where("room_id = ?", f.RoomID)
	}
	switch {
	case f.Date != "":
		q = q.Where("scheduled_date = ?", f.Date)
	case f.DateFrom != "" || f.DateTo != "":
		if f.DateFrom != "" {
			q = q.Where("scheduled_date >= ?", f.DateFrom)
		}
		if f.DateTo != "" {
			q = q.Where("scheduled_date <= ?", f.DateTo)
		}
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []models.InterviewSchedule
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	return out, nil
}

// UpdateStatus moves a scheduled booking to completed, cancelled or
// rescheduled. Cancelling a cancelled booking succeeds without change.
// Re-entering scheduled is not possible here; see Reinstate.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, status models.InterviewStatus, notes *string) (*models.InterviewSchedule, error) {
	if !validStatus(status) {
		return nil, errs.Invalid("status", "must be one of scheduled, completed, cancelled, rescheduled; got %q", status)
	}

	b, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == models.InterviewCancelled && status == models.InterviewCancelled {
		return b, nil
	}
	if b.Status != models.InterviewScheduled || status == models.InterviewScheduled {
		return nil, errs.IllegalTransition(string(b.Status), string(status))
	}

	updates := map[string]any{"status": status}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := l.db.WithContext(ctx).Model(&models.InterviewSchedule{}).
		Where("id = ? AND status = ?", id, models.InterviewScheduled).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update interview status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race; judge the request against whatever won.
		current, err := l.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == models.InterviewCancelled && status == models.InterviewCancelled {
			return current, nil
		}
		return nil, errs.IllegalTransition(string(current.Status), string(status))
	}

	from := b.Status
	b, err = l.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	telemetry.BookingStatusChangesTotal.WithLabelValues(string(status)).Inc()
	payload := bookingPayload(b, "")
	payload["from_status"] = string(from)
	l.bus.Publish(events.EventBookingStatusChanged, payload)
	l.logger.Info().Str("booking_id", id).Str("from", string(from)).Str("to", string(status)).Msg("interview status changed")
	return b, nil
}

// Cancel is UpdateStatus(id, cancelled) and is idempotent.
func (l *Ledger) Cancel(ctx context.Context, id string) (*models.InterviewSchedule, error) {
	return l.UpdateStatus(ctx, id, models.InterviewCancelled, nil)
}

// Reinstate returns a booking to scheduled, undoing an earlier status
// change. It is used only for compensation and re-runs the conflict check
// because the interval may have been taken in the meantime.
func (l *Ledger) Reinstate(ctx context.Context, id string) (*models.InterviewSchedule, error) {
	b, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == models.InterviewScheduled {
		return b, nil
	}
	p := prepared{booking: *b, interval: scheduling.Interval{Start: b.StartMinute, End: b.EndMinute}}
	from := b.Status
	err = l.withLocks(ctx, lockKeys(p.proposal()), func(tx *gorm.DB) error {
		if err := l.resolver.Check(ctx, tx, p.proposal()); err != nil {
			return err
		}
		res := tx.Model(&models.InterviewSchedule{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": models.InterviewScheduled, "superseded_by": nil})
		if res.Error != nil {
			return fmt.Errorf("reinstate interview: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.IllegalTransition(string(from), string(models.InterviewScheduled))
		}
		return nil
	})
	if err != nil {
		l.recordConflict(err)
		return nil, err
	}

	b, err = l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := bookingPayload(b, "")
	payload["from_status"] = string(from)
	l.bus.Publish(events.EventBookingStatusChanged, payload)
	l.logger.Info().Str("booking_id", id).Str("from", string(from)).Msg("interview reinstated")
	return b, nil
}

// Reschedule moves a scheduled booking. The locks of both the old and the
// new interval are held for one transaction that marks the old booking
// rescheduled, checks the replacement against the resolver and inserts it.
// A conflict rolls the whole transaction back, so the old slot is never
// observably free. The old record keeps superseded_by; the new one keeps
// rescheduled_from.
func (l *Ledger) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*models.InterviewSchedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking", "ledger.reschedule")
	defer span.End()

	old, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Status != models.InterviewScheduled {
		return nil, errs.IllegalTransition(string(old.Status), "reschedule")
	}

	next := CreateRequest{
		CandidateID:     old.CandidateID,
		InterviewerID:   old.InterviewerID,
		RoomID:          old.RoomID,
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		DurationMinutes: req.DurationMinutes,
		InterviewType:   old.InterviewType,
		InterviewMode:   old.InterviewMode,
		Notes:           old.Notes,
		MeetingLink:     old.MeetingLink,
		CreatedBy:       req.PerformedBy,
		rescheduledFrom: &old.ID,
	}
	if next.ScheduledDate == "" {
		next.ScheduledDate = old.ScheduledDate
	}
	if next.ScheduledTime == "" {
		next.ScheduledTime = old.ScheduledTime
	}
	if next.DurationMinutes == nil {
		d := old.DurationMinutes
		next.DurationMinutes = &d
	}
	if req.InterviewerID != nil {
		next.InterviewerID = *req.InterviewerID
	}
	if req.RoomID != nil {
		next.RoomID = req.RoomID
	}
	if req.MeetingLink != nil {
		next.MeetingLink = *req.MeetingLink
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}
	if next.CreatedBy == "" {
		next.CreatedBy = old.CreatedBy
	}

	// Reject malformed input before touching the old booking.
	p, err := l.prepare(next)
	if err != nil {
		return nil, err
	}
	if err := l.checkReferences(ctx, &p.booking); err != nil {
		return nil, err
	}

	oldProposal := prepared{booking: *old, interval: scheduling.Interval{Start: old.StartMinute, End: old.EndMinute}}.proposal()
	p.booking.ID = uuid.NewString()
	keys := append(lockKeys(oldProposal), lockKeys(p.proposal())...)

	err = l.withLocks(ctx, keys, func(tx *gorm.DB) error {
		res := tx.Model(&models.InterviewSchedule{}).
			Where("id = ? AND status = ?", old.ID, models.InterviewScheduled).
			Update("status", models.InterviewRescheduled)
		if res.Error != nil {
			return fmt.Errorf("mark interview rescheduled: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			current, err := l.load(tx, old.ID)
			if err != nil {
				return err
			}
			return errs.IllegalTransition(string(current.Status), "reschedule")
		}
		if err := l.resolver.Check(ctx, tx, p.proposal()); err != nil {
			return err
		}
		if err := tx.Create(&p.booking).Error; err != nil {
			return fmt.Errorf("insert interview: %w", err)
		}
		if err := tx.Model(&models.InterviewSchedule{}).
			Where("id = ?", old.ID).
			Update("superseded_by", p.booking.ID).Error; err != nil {
			return fmt.Errorf("link superseded interview: %w", err)
		}
		return nil
	})
	if err != nil {
		l.recordConflict(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	replacement := p.booking
	telemetry.BookingStatusChangesTotal.WithLabelValues(string(models.InterviewRescheduled)).Inc()
	telemetry.BookingsCreatedTotal.WithLabelValues(string(replacement.InterviewMode)).Inc()

	old.Status = models.InterviewRescheduled
	old.SupersededBy = &replacement.ID
	changed := bookingPayload(old, req.PerformedBy)
	changed["from_status"] = string(models.InterviewScheduled)
	l.bus.Publish(events.EventBookingStatusChanged, changed)

	payload := bookingPayload(&replacement, req.PerformedBy)
	payload["rescheduled_from"] = old.ID
	l.bus.Publish(events.EventBookingRescheduled, payload)
	l.logger.Info().
		Str("booking_id", replacement.ID).
		Str("rescheduled_from", old.ID).
		Str("date", replacement.ScheduledDate).
		Str("time", replacement.ScheduledTime).
		Msg("interview rescheduled")
	return &replacement, nil
}

// ActiveForCandidate returns the candidate's scheduled bookings.
func (l *Ledger) ActiveForCandidate(ctx context.Context, candidateID string) ([]models.InterviewSchedule, error) {
	return l.List(ctx, Filter{CandidateID: candidateID, Status: models.InterviewScheduled})
}

func (l *Ledger) load(tx *gorm.DB, id string) (*models.InterviewSchedule, error) {
	var b models.InterviewSchedule
	if err := tx.First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("interview", id)
		}
		return nil, fmt.Errorf("load interview: %w", err)
	}
	return &b, nil
}

// checkReferences resolves candidate, interviewer and room, and enforces
// that resources are active and event rooms serve only their event.
func (l *Ledger) checkReferences(ctx context.Context, b *models.InterviewSchedule) error {
	candidate, err := l.dir.GetCandidate(ctx, b.CandidateID)
	if err != nil {
		return err
	}
	interviewer, err := l.dir.GetInterviewer(ctx, b.InterviewerID)
	if err != nil {
		return err
	}
	if !interviewer.IsActive {
		return errs.Invalid("interviewer_id", "interviewer %s is inactive", interviewer.ID)
	}
	if b.RoomID == nil {
		return nil
	}
	room, err := l.dir.GetRoom(ctx, *b.RoomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return errs.Invalid("room_id", "room %s is inactive", room.ID)
	}
	if room.EventID != nil && (candidate.EventID == nil || *candidate.EventID != *room.EventID) {
		return errs.Invalid("room_id", "room %s is reserved for event %s", room.ID, *room.EventID)
	}
	return nil
}

// lockKeys names the interviewer and room day locks a proposal touches.
func lockKeys(p scheduling.Proposal) []string {
	keys := []string{lock.InterviewerKey(p.InterviewerID, p.Date)}
	if p.RoomID != "" {
		keys = append(keys, lock.RoomKey(p.RoomID, p.Date))
	}
	return keys
}

// withLocks holds keys around a transaction.
func (l *Ledger) withLocks(ctx context.Context, keys []string, fn func(tx *gorm.DB) error) error {
	unlock, err := l.locker.Lock(ctx, keys...)
	if err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	defer unlock()

	return l.db.WithContext(ctx).Transaction(fn)
}

func (l *Ledger) recordConflict(err error) {
	var conflict *errs.ConflictError
	if errors.As(err, &conflict) {
		telemetry.BookingConflictsTotal.WithLabelValues(conflict.Resource).Inc()
	}
}

func bookingPayload(b *models.InterviewSchedule, actor string) events.Payload {
	p := events.Payload{
		"booking_id":     b.ID,
		"candidate_id":   b.CandidateID,
		"interviewer_id": b.InterviewerID,
		"scheduled_date": b.ScheduledDate,
		"scheduled_time": b.ScheduledTime,
		"duration":       b.DurationMinutes,
		"status":         string(b.Status),
	}
	if b.RoomID != nil {
		p["room_id"] = *b.RoomID
	}
	if actor != "" {
		p["actor"] = actor
	}
	return p
}
