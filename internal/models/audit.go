/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for booking and pipeline operations.
const (
	AuditActionInterviewCreate       AuditAction = "interview.create"
	AuditActionInterviewStatusChange AuditAction = "interview.status_change"
	AuditActionInterviewReschedule   AuditAction = "interview.reschedule"
	AuditActionCandidateStageChange  AuditAction = "candidate.stage_change"
	AuditActionPipelineInconsistency AuditAction = "pipeline.inconsistency"
)

// AuditLog records booking and pipeline operations for later review.
type AuditLog struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	Actor        string         `gorm:"type:varchar(255)" json:"actor,omitempty"` // performed_by / created_by, empty for system actions
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(64)" json:"resource_type"` // "interview", "candidate"
	ResourceID   string         `gorm:"type:varchar(36);index:idx_audit_resource" json:"resource_id"`
	Details      map[string]any `gorm:"type:text;serializer:json" json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
