/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
)

// CreateCandidateInput is the body of a candidate intake.
type CreateCandidateInput struct {
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	EventID    *string        `json:"event_id"`
	JobID      *string        `json:"job_id"`
	Notes      string         `json:"notes"`
	Evaluation map[string]any `json:"evaluation"`
}

// CreateCandidate stores a new candidate in the applied stage.
func (s *Service) CreateCandidate(ctx context.Context, in CreateCandidateInput) (*models.Candidate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Invalid("name", "is required")
	}

	c := &models.Candidate{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Stage:      models.StageApplied,
		EventID:    blankToNil(in.EventID),
		JobID:      blankToNil(in.JobID),
		Notes:      in.Notes,
		Evaluation: in.Evaluation,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}

	s.logger.Info().Str("candidate_id", c.ID).Msg("candidate created")
	return c, nil
}

// GetCandidate loads one candidate.
func (s *Service) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("candidate", id)
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	return &c, nil
}

// StageHistory returns a candidate's applied transitions, oldest first.
func (s *Service) StageHistory(ctx context.Context, candidateID string) ([]models.CandidateStageHistory, error) {
	if _, err := s.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	var out []models.CandidateStageHistory
	if err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load stage history: %w", err)
	}
	return out, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
