/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
)

// Proposal describes a booking to be checked before it is written.
type Proposal struct {
	BookingID     string // excluded from the conflict set; empty for new bookings
	InterviewerID string
	RoomID        string // empty when no room is requested
	Date          string
	Interval      Interval
}

// Detect checks a proposal against existing bookings. Only scheduled
// bookings on the same date count. The interviewer is checked before the
// room, and within each resource the earliest colliding booking is reported,
// so the same inputs always yield the same error.
func Detect(p Proposal, existing []models.InterviewSchedule) error {
	candidates := make([]models.InterviewSchedule, 0, len(existing))
	for _, b := range existing {
		if b.ID == p.BookingID || b.Status != models.InterviewScheduled || b.ScheduledDate != p.Date {
			continue
		}
		if !p.Interval.Overlaps(Interval{Start: b.StartMinute, End: b.EndMinute}) {
			continue
		}
		candidates = append(candidates, b)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].StartMinute != candidates[j].StartMinute {
			return candidates[i].StartMinute < candidates[j].StartMinute
		}
		return candidates[i].ID < candidates[j].ID
	})

	for _, b := range candidates {
		if b.InterviewerID == p.InterviewerID {
			return &errs.ConflictError{Resource: "interviewer", OwnerID: p.InterviewerID, BookingID: b.ID}
		}
	}
	if p.RoomID == "" {
		return nil
	}
	for _, b := range candidates {
		if b.RoomID != nil && *b.RoomID == p.RoomID {
			return &errs.ConflictError{Resource: "room", OwnerID: p.RoomID, BookingID: b.ID}
		}
	}
	return nil
}

// Resolver loads the bookings a proposal could collide with and runs Detect.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a conflict resolver.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		logger: logger.With().Str("component", "conflict_resolver").Logger(),
	}
}

// Check returns a *errs.ConflictError when p overlaps a scheduled booking of
// the same interviewer or room. Pass the transaction the booking will be
// written in so the check and the write see the same state.
func (r *Resolver) Check(ctx context.Context, tx *gorm.DB, p Proposal) error {
	var existing []models.InterviewSchedule
	q := tx.WithContext(ctx).
		Where("scheduled_date = ? AND status = ?", p.Date, models.InterviewScheduled).
		Where("start_minute < ? AND end_minute > ?", p.Interval.End, p.Interval.Start)
	if p.RoomID != "" {
		q = q.Where("(interviewer_id = ? OR room_id = ?)", p.InterviewerID, p.RoomID)
	} else {
		q = q.Where("interviewer_id = ?", p.InterviewerID)
	}
	if err := q.Find(&existing).Error; err != nil {
		return fmt.Errorf("load overlapping interviews: %w", err)
	}

	if err := Detect(p, existing); err != nil {
		r.logger.Debug().
			Str("interviewer_id", p.InterviewerID).
			Str("room_id", p.RoomID).
			Str("date", p.Date).
			Str("interval", p.Interval.String()).
			Err(err).
			Msg("proposal rejected")
		return err
	}
	return nil
}
