/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// InterviewStatus is the lifecycle state of a booking.
type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewRescheduled InterviewStatus = "rescheduled"
)

// InterviewType classifies what an interview assesses.
type InterviewType string

const (
	InterviewTechnical InterviewType = "technical"
	InterviewHR        InterviewType = "hr"
	InterviewCultural  InterviewType = "cultural"
	InterviewFinal     InterviewType = "final"
)

// InterviewMode is how participants attend.
type InterviewMode string

const (
	ModeInPerson InterviewMode = "in-person"
	ModeVirtual  InterviewMode = "virtual"
	ModeHybrid   InterviewMode = "hybrid"
)

// InterviewSchedule is a booking of an interviewer (and optionally a room)
// for a candidate. References are by id only and never cascade.
type InterviewSchedule struct {
	ID            string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	CandidateID   string  `gorm:"type:varchar(36);index:idx_interviews_candidate;not null" json:"candidate_id"`
	InterviewerID string  `gorm:"type:varchar(36);index:idx_interviews_interviewer_date;not null" json:"interviewer_id"`
	RoomID        *string `gorm:"type:varchar(36);index:idx_interviews_room_date" json:"room_id,omitempty"`

	ScheduledDate   string `gorm:"type:varchar(10);index:idx_interviews_interviewer_date;index:idx_interviews_room_date;not null" json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime   string `gorm:"type:varchar(5);not null" json:"scheduled_time"`                                                                      // HH:MM
	DurationMinutes int    `gorm:"not null;default:60" json:"duration_minutes"`

	// Minutes since midnight, derived from ScheduledTime/DurationMinutes for overlap queries.
	StartMinute int `gorm:"not null" json:"-"`
	EndMinute   int `gorm:"not null" json:"-"`

	InterviewType InterviewType   `gorm:"type:varchar(16);not null;default:'technical'" json:"interview_type"`
	InterviewMode InterviewMode   `gorm:"type:varchar(16);not null;default:'in-person'" json:"interview_mode"`
	Status        InterviewStatus `gorm:"type:varchar(16);not null;default:'scheduled';index:idx_interviews_interviewer_date;index:idx_interviews_room_date" json:"status"`
	MeetingLink   string          `gorm:"type:varchar(1024)" json:"meeting_link,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy     string          `gorm:"type:varchar(255)" json:"created_by,omitempty"`

	// Reschedule chain
	RescheduledFrom *string `gorm:"type:varchar(36)" json:"rescheduled_from,omitempty"`
	SupersededBy    *string `gorm:"type:varchar(36)" json:"superseded_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (InterviewSchedule) TableName() string {
	return "interview_schedules"
}
