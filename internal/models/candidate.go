/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Stage is one discrete state of the hiring pipeline.
type Stage string

const (
	StageApplied             Stage = "applied"
	StageScreened            Stage = "screened"
	StageShortlisted         Stage = "shortlisted"
	StageOnHold              Stage = "on-hold"
	StageInterviewScheduled  Stage = "interview-scheduled"
	StageInterviewing        Stage = "interviewing"
	StageInterviewCompleted  Stage = "interview-completed"
	StageAdditionalInterview Stage = "additional-interview"
	StageFinalReview         Stage = "final-review"
	StageOfferExtended       Stage = "offer-extended"
	StageNegotiating         Stage = "negotiating"
	StageHired               Stage = "hired"
	StageRejected            Stage = "rejected"
)

// Candidate is a person moving through the pipeline. Stage is only written
// through the workflow engine.
type Candidate struct {
	ID       string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name     string  `gorm:"type:varchar(255);not null" json:"name"`
	Email    string  `gorm:"type:varchar(255);index" json:"email"`
	Phone    string  `gorm:"type:varchar(64)" json:"phone,omitempty"`
	Stage    Stage   `gorm:"type:varchar(32);not null;default:'applied';index:idx_candidates_stage" json:"stage"`
	EventID  *string `gorm:"type:varchar(36);index:idx_candidates_event" json:"event_id,omitempty"`
	JobID    *string `gorm:"type:varchar(36);index:idx_candidates_job" json:"job_id,omitempty"`
	Notes    string  `gorm:"type:text" json:"notes,omitempty"`

	// Evaluation is opaque to scheduling and workflow.
	Evaluation map[string]any `gorm:"type:text;serializer:json" json:"evaluation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Candidate) TableName() string {
	return "candidates"
}

// CandidateStageHistory records each applied pipeline transition.
type CandidateStageHistory struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CandidateID string    `gorm:"type:varchar(36);index:idx_stage_history_candidate;not null" json:"candidate_id"`
	FromStage   Stage     `gorm:"type:varchar(32);not null" json:"from_stage"`
	ToStage     Stage     `gorm:"type:varchar(32);not null" json:"to_stage"`
	Action      string    `gorm:"type:varchar(64);not null" json:"action"`
	PerformedBy string    `gorm:"type:varchar(255)" json:"performed_by,omitempty"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	BookingID   *string   `gorm:"type:varchar(36)" json:"booking_id,omitempty"`
	CreatedAt   time.Time `gorm:"index:idx_stage_history_candidate" json:"created_at"`
}

// TableName returns the table name for GORM.
func (CandidateStageHistory) TableName() string {
	return "candidate_stage_history"
}
