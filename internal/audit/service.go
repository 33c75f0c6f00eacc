/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// resource names the audited record carried by an event.
type resource struct {
	kind  string
	idKey string
}

var (
	interviewResource = resource{kind: "interview", idKey: "booking_id"}
	candidateResource = resource{kind: "candidate", idKey: "candidate_id"}
)

// Start subscribes to domain events and logs them as audit entries until
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	created := s.bus.Subscribe(events.EventBookingCreated)
	statusChanged := s.bus.Subscribe(events.EventBookingStatusChanged)
	rescheduled := s.bus.Subscribe(events.EventBookingRescheduled)
	stageChanged := s.bus.Subscribe(events.EventCandidateStage)
	inconsistent := s.bus.Subscribe(events.EventPipelineInconsistent)

	defer func() {
		s.bus.Unsubscribe(events.EventBookingCreated, created)
		s.bus.Unsubscribe(events.EventBookingStatusChanged, statusChanged)
		s.bus.Unsubscribe(events.EventBookingRescheduled, rescheduled)
		s.bus.Unsubscribe(events.EventCandidateStage, stageChanged)
		s.bus.Unsubscribe(events.EventPipelineInconsistent, inconsistent)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-created:
			s.logAuditEntry(ctx, models.AuditActionInterviewCreate, interviewResource, payload)

		case payload := <-statusChanged:
			s.logAuditEntry(ctx, models.AuditActionInterviewStatusChange, interviewResource, payload)

		case payload := <-rescheduled:
			s.logAuditEntry(ctx, models.AuditActionInterviewReschedule, interviewResource, payload)

		case payload := <-stageChanged:
			s.logAuditEntry(ctx, models.AuditActionCandidateStageChange, candidateResource, payload)

		case payload := <-inconsistent:
			s.logAuditEntry(ctx, models.AuditActionPipelineInconsistency, interviewResource, payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, res resource, payload events.Payload) {
	now := time.Now().UTC()
	entry := &models.AuditLog{
		ID:           uuid.NewString(),
		Timestamp:    now,
		Action:       action,
		ResourceType: res.kind,
		Details:      make(map[string]any),
		CreatedAt:    now,
	}

	if id, ok := payload[res.idKey].(string); ok {
		entry.ResourceID = id
	}
	for _, key := range []string{"actor", "performed_by"} {
		if actor, ok := payload[key].(string); ok && actor != "" {
			entry.Actor = actor
			break
		}
	}

	// Copy remaining fields to details
	for k, v := range payload {
		switch k {
		case res.idKey, "actor", "performed_by":
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = entry.Timestamp
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	ResourceType string
	ResourceID   string
	Action       *models.AuditAction
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit logs with filters.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	// Count total
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	// Most recent first
	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
