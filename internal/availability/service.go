/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/booking"
	"github.com/friendsincode/recruitd/internal/directory"
	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// Directory is the subset of the directory service availability reads.
type Directory interface {
	GetInterviewer(ctx context.Context, id string) (*models.Interviewer, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListInterviewers(ctx context.Context, f directory.InterviewerFilter) ([]models.Interviewer, error)
	ListRooms(ctx context.Context, f directory.RoomFilter) ([]models.Room, error)
}

// Bookings lists ledger entries.
type Bookings interface {
	List(ctx context.Context, f booking.Filter) ([]models.InterviewSchedule, error)
}

// Config controls the slot grid and the accepted range.
type Config struct {
	SlotMinutes    int
	MaxRangeDays   int
	RoomHoursStart string
	RoomHoursEnd   string
}

// Service answers availability queries against the current ledger state.
type Service struct {
	dir       Directory
	bookings  Bookings
	cfg       Config
	roomHours models.WeeklyPattern
	logger    zerolog.Logger
}

// NewService validates the room operating hours and builds a Service.
func NewService(dir Directory, bookings Bookings, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.SlotMinutes <= 0 {
		return nil, fmt.Errorf("slot minutes must be positive, got %d", cfg.SlotMinutes)
	}
	hours, err := scheduling.NormalizePattern(scheduling.EveryDay(cfg.RoomHoursStart, cfg.RoomHoursEnd))
	if err != nil {
		return nil, fmt.Errorf("room operating hours: %w", err)
	}
	return &Service{
		dir:       dir,
		bookings:  bookings,
		cfg:       cfg,
		roomHours: hours,
		logger:    logger.With().Str("component", "availability").Logger(),
	}, nil
}

// Summary is the bulk calendar read.
type Summary struct {
	Interviewers        []models.Interviewer       `json:"interviewers"`
	Rooms               []models.Room              `json:"rooms"`
	ScheduledInterviews []models.InterviewSchedule `json:"scheduled_interviews"`
	StartDate           string                     `json:"start_date"`
	EndDate             string                     `json:"end_date"`
}

// ForInterviewer computes the interviewer's slots for [startDate, endDate].
func (s *Service) ForInterviewer(ctx context.Context, id, startDate, endDate string) ([]DayAvailability, error) {
	days, err := s.days(startDate, endDate)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "availability", "availability.interviewer")
	defer span.End()

	iv, err := s.dir.GetInterviewer(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := s.bookings.List(ctx, booking.Filter{
		InterviewerID: id,
		DateFrom:      startDate,
		DateTo:        endDate,
		Status:        models.InterviewScheduled,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return Compute(iv.AvailabilityPattern, days, list, s.cfg.SlotMinutes), nil
}

// ForRoom computes the room's slots. Rooms without their own pattern use the
// configured operating hours on every day.
func (s *Service) ForRoom(ctx context.Context, id, startDate, endDate string) ([]DayAvailability, error) {
	days, err := s.days(startDate, endDate)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "availability", "availability.room")
	defer span.End()

	room, err := s.dir.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	pattern := room.AvailabilityPattern
	if len(pattern) == 0 {
		pattern = s.roomHours
	}
	list, err := s.bookings.List(ctx, booking.Filter{
		RoomID:   id,
		DateFrom: startDate,
		DateTo:   endDate,
		Status:   models.InterviewScheduled,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return Compute(pattern, days, list, s.cfg.SlotMinutes), nil
}

// Summary returns active interviewers and rooms plus every scheduled
// interview in the range.
func (s *Service) Summary(ctx context.Context, startDate, endDate string) (*Summary, error) {
	if _, err := s.days(startDate, endDate); err != nil {
		return nil, err
	}
	interviewers, err := s.dir.ListInterviewers(ctx, directory.InterviewerFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	rooms, err := s.dir.ListRooms(ctx, directory.RoomFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	interviews, err := s.bookings.List(ctx, booking.Filter{
		DateFrom: startDate,
		DateTo:   endDate,
		Status:   models.InterviewScheduled,
	})
	if err != nil {
		return nil, err
	}
	return &Summary{
		Interviewers:        interviewers,
		Rooms:               rooms,
		ScheduledInterviews: interviews,
		StartDate:           startDate,
		EndDate:             endDate,
	}, nil
}

func (s *Service) days(startDate, endDate string) ([]time.Time, error) {
	if startDate == "" {
		return nil, errs.Invalid("start_date", "is required")
	}
	if endDate == "" {
		return nil, errs.Invalid("end_date", "is required")
	}
	start, err := scheduling.ParseDate("start_date", startDate)
	if err != nil {
		return nil, err
	}
	end, err := scheduling.ParseDate("end_date", endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, errs.Invalid("end_date", "must not be before start_date")
	}
	if span := int(end.Sub(start).Hours()/24) + 1; s.cfg.MaxRangeDays > 0 && span > s.cfg.MaxRangeDays {
		return nil, errs.Invalid("end_date", "range of %d days exceeds the limit of %d", span, s.cfg.MaxRangeDays)
	}
	days, err := Days(start, end)
	if err != nil {
		return nil, errs.Invalid("end_date", "%v", err)
	}
	return days, nil
}
