/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package booking

import (
	"strings"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

// CreateRequest is the body of a booking creation.
type CreateRequest struct {
	CandidateID     string               `json:"candidate_id"`
	InterviewerID   string               `json:"interviewer_id"`
	RoomID          *string              `json:"room_id,omitempty"`
	ScheduledDate   string               `json:"scheduled_date"`
	ScheduledTime   string               `json:"scheduled_time"`
	DurationMinutes *int                 `json:"duration_minutes,omitempty"`
	InterviewType   models.InterviewType `json:"interview_type,omitempty"`
	InterviewMode   models.InterviewMode `json:"interview_mode,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	MeetingLink     string               `json:"meeting_link,omitempty"`
	CreatedBy       string               `json:"created_by,omitempty"`

	rescheduledFrom *string
}

// RescheduleRequest moves a booking. Omitted fields keep the old values.
type RescheduleRequest struct {
	ScheduledDate   string  `json:"scheduled_date"`
	ScheduledTime   string  `json:"scheduled_time"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	InterviewerID   *string `json:"interviewer_id,omitempty"`
	RoomID          *string `json:"room_id,omitempty"`
	MeetingLink     *string `json:"meeting_link,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	PerformedBy     string  `json:"performed_by,omitempty"`
}

// prepared is a validated request ready for the conflict check.
type prepared struct {
	booking  models.InterviewSchedule
	interval scheduling.Interval
}

func (p prepared) proposal() scheduling.Proposal {
	roomID := ""
	if p.booking.RoomID != nil {
		roomID = *p.booking.RoomID
	}
	return scheduling.Proposal{
		BookingID:     p.booking.ID,
		InterviewerID: p.booking.InterviewerID,
		RoomID:        roomID,
		Date:          p.booking.ScheduledDate,
		Interval:      p.interval,
	}
}

// prepare checks shape only; no lookups happen here.
func (l *Ledger) prepare(req CreateRequest) (prepared, error) {
	candidateID := strings.TrimSpace(req.CandidateID)
	interviewerID := strings.TrimSpace(req.InterviewerID)
	if candidateID == "" {
		return prepared{}, errs.Invalid("candidate_id", "is required")
	}
	if interviewerID == "" {
		return prepared{}, errs.Invalid("interviewer_id", "is required")
	}
	if strings.TrimSpace(req.ScheduledDate) == "" {
		return prepared{}, errs.Invalid("scheduled_date", "is required")
	}
	if strings.TrimSpace(req.ScheduledTime) == "" {
		return prepared{}, errs.Invalid("scheduled_time", "is required")
	}

	date, err := scheduling.ParseDate("scheduled_date", req.ScheduledDate)
	if err != nil {
		return prepared{}, err
	}

	duration := l.cfg.DefaultDurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	if duration > l.cfg.MaxDurationMinutes {
		return prepared{}, errs.Invalid("duration_minutes", "must be at most %d, got %d", l.cfg.MaxDurationMinutes, duration)
	}
	iv, err := scheduling.BookingInterval(req.ScheduledTime, duration)
	if err != nil {
		return prepared{}, err
	}

	itype := req.InterviewType
	if itype == "" {
		itype = models.InterviewTechnical
	}
	switch itype {
	case models.InterviewTechnical, models.InterviewHR, models.InterviewCultural, models.InterviewFinal:
	default:
		return prepared{}, errs.Invalid("interview_type", "must be one of technical, hr, cultural, final; got %q", itype)
	}

	var roomID *string
	if req.RoomID != nil && strings.TrimSpace(*req.RoomID) != "" {
		id := strings.TrimSpace(*req.RoomID)
		roomID = &id
	}
	link := strings.TrimSpace(req.MeetingLink)

	mode, err := resolveMode(req.InterviewMode, roomID != nil, link != "")
	if err != nil {
		return prepared{}, err
	}

	return prepared{
		booking: models.InterviewSchedule{
			CandidateID:     candidateID,
			InterviewerID:   interviewerID,
			RoomID:          roomID,
			ScheduledDate:   date.Format(scheduling.DateLayout),
			ScheduledTime:   scheduling.FormatClock(iv.Start),
			DurationMinutes: duration,
			StartMinute:     iv.Start,
			EndMinute:       iv.End,
			InterviewType:   itype,
			InterviewMode:   mode,
			Status:          models.InterviewScheduled,
			MeetingLink:     link,
			Notes:           req.Notes,
			CreatedBy:       strings.TrimSpace(req.CreatedBy),
			RescheduledFrom: req.rescheduledFrom,
		},
		interval: iv,
	}, nil
}

// resolveMode applies the required-field matrix: in-person needs a room,
// virtual needs a meeting link, hybrid needs both. An omitted mode is
// inferred from what was supplied.
func resolveMode(mode models.InterviewMode, hasRoom, hasLink bool) (models.InterviewMode, error) {
	if mode == "" {
		switch {
		case hasRoom:
			mode = models.ModeInPerson
		case hasLink:
			mode = models.ModeVirtual
		default:
			return "", errs.Invalid("interview_mode", "cannot be inferred without room_id or meeting_link")
		}
	}

	switch mode {
	case models.ModeInPerson:
		if !hasRoom {
			return "", errs.Invalid("room_id", "is required for in-person interviews")
		}
	case models.ModeVirtual:
		if !hasLink {
			return "", errs.Invalid("meeting_link", "is required for virtual interviews")
		}
	case models.ModeHybrid:
		if !hasRoom {
			return "", errs.Invalid("room_id", "is required for hybrid interviews")
		}
		if !hasLink {
			return "", errs.Invalid("meeting_link", "is required for hybrid interviews")
		}
	default:
		return "", errs.Invalid("interview_mode", "must be one of in-person, virtual, hybrid; got %q", mode)
	}
	return mode, nil
}

// Filter narrows List. Empty fields match everything; Date wins over the
// DateFrom/DateTo range.
type Filter struct {
	CandidateID   string
	InterviewerID string
	RoomID        string
	Date          string
	DateFrom      string
	DateTo        string
	Status        models.InterviewStatus
}

func validStatus(s models.InterviewStatus) bool {
	switch s {
	case models.InterviewScheduled, models.InterviewCompleted, models.InterviewCancelled, models.InterviewRescheduled:
		return true
	}
	return false
}
