/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package directory stores the bookable resources (interviewers, rooms) and
// candidates. It never changes a candidate's stage.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/cache"
	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

// Service reads and writes directory records.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a directory service. c may be nil to disable caching.
func NewService(db *gorm.DB, c *cache.Cache, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		cache:  c,
		bus:    bus,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// InterviewerFilter narrows ListInterviewers.
type InterviewerFilter struct {
	ActiveOnly bool
}

func (f InterviewerFilter) key() string {
	return fmt.Sprintf("active=%t", f.ActiveOnly)
}

// ListInterviewers returns interviewers ordered by name.
func (s *Service) ListInterviewers(ctx context.Context, f InterviewerFilter) ([]models.Interviewer, error) {
	var out []models.Interviewer
	if s.cache.GetList(ctx, cache.KeyInterviewerList, f.key(), &out) {
		return out, nil
	}

	q := s.db.WithContext(ctx).Order("name ASC, id ASC")
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list interviewers: %w", err)
	}

	if err := s.cache.SetList(ctx, cache.KeyInterviewerList, f.key(), out); err != nil {
		s.logger.Debug().Err(err).Msg("cache interviewer list")
	}
	return out, nil
}

// GetInterviewer loads one interviewer.
func (s *Service) GetInterviewer(ctx context.Context, id string) (*models.Interviewer, error) {
	var iv models.Interviewer
	if err := s.db.WithContext(ctx).First(&iv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("interviewer", id)
		}
		return nil, fmt.Errorf("load interviewer: %w", err)
	}
	return &iv, nil
}

// CreateInterviewerInput is the body of an interviewer registration.
type CreateInterviewerInput struct {
	Name                string               `json:"name"`
	Email               string               `json:"email"`
	Role                string               `json:"role"`
	IsActive            *bool                `json:"is_active"`
	AvailabilityPattern models.WeeklyPattern `json:"availability_pattern"`
}

// CreateInterviewer validates and stores an interviewer. Active defaults to true.
func (s *Service) CreateInterviewer(ctx context.Context, in CreateInterviewerInput) (*models.Interviewer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Invalid("name", "is required")
	}
	pattern, err := scheduling.NormalizePattern(in.AvailabilityPattern)
	if err != nil {
		return nil, err
	}

	iv := &models.Interviewer{
		ID:                  uuid.NewString(),
		Name:                name,
		Email:               strings.TrimSpace(in.Email),
		Role:                strings.TrimSpace(in.Role),
		IsActive:            in.IsActive == nil || *in.IsActive,
		AvailabilityPattern: pattern,
	}
	if err := s.db.WithContext(ctx).Create(iv).Error; err != nil {
		return nil, fmt.Errorf("create interviewer: %w", err)
	}

	s.invalidate(ctx, cache.KeyInterviewerList)
	s.bus.Publish(events.EventInterviewerCreated, events.Payload{"interviewer_id": iv.ID})
	s.logger.Info().Str("interviewer_id", iv.ID).Str("name", iv.Name).Msg("interviewer created")
	return iv, nil
}

// RoomFilter narrows ListRooms.
type RoomFilter struct {
	ActiveOnly bool
	Type       models.RoomType
	EventID    string
}

func (f RoomFilter) key() string {
	return fmt.Sprintf("active=%t:type=%s:event=%s", f.ActiveOnly, f.Type, f.EventID)
}

// ListRooms returns rooms ordered by name.
func (s *Service) ListRooms(ctx context.Context, f RoomFilter) ([]models.Room, error) {
	var out []models.Room
	if s.cache.GetList(ctx, cache.KeyRoomList, f.key(), &out) {
		return out, nil
	}

	q := s.db.WithContext(ctx).Order("name ASC, id ASC")
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	if err := s.cache.SetList(ctx, cache.KeyRoomList, f.key(), out); err != nil {
		s.logger.Debug().Err(err).Msg("cache room list")
	}
	return out, nil
}

// GetRoom loads one room.
func (s *Service) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("room", id)
		}
		return nil, fmt.Errorf("load room: %w", err)
	}
	return &room, nil
}

// CreateRoomInput is the body of a room registration.
type CreateRoomInput struct {
	Name                string               `json:"name"`
	Capacity            int                  `json:"capacity"`
	Type                models.RoomType      `json:"type"`
	EventID             *string              `json:"event_id"`
	IsActive            *bool                `json:"is_active"`
	Equipment           []string             `json:"equipment"`
	AvailabilityPattern models.WeeklyPattern `json:"availability_pattern"`
}

// CreateRoom validates and stores a room. Type defaults to general.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Invalid("name", "is required")
	}
	if in.Capacity <= 0 {
		return nil, errs.Invalid("capacity", "must be a positive integer, got %d", in.Capacity)
	}
	roomType := in.Type
	if roomType == "" {
		roomType = models.RoomGeneral
	}
	switch roomType {
	case models.RoomGeneral, models.RoomEvent, models.RoomVirtual:
	default:
		return nil, errs.Invalid("type", "must be one of general, event, virtual; got %q", roomType)
	}

	var pattern models.WeeklyPattern
	if len(in.AvailabilityPattern) > 0 {
		p, err := scheduling.NormalizePattern(in.AvailabilityPattern)
		if err != nil {
			return nil, err
		}
		pattern = p
	}

	var eventID *string
	if in.EventID != nil && strings.TrimSpace(*in.EventID) != "" {
		id := strings.TrimSpace(*in.EventID)
		eventID = &id
	}

	room := &models.Room{
		ID:                  uuid.NewString(),
		Name:                name,
		Capacity:            in.Capacity,
		Type:                roomType,
		EventID:             eventID,
		IsActive:            in.IsActive == nil || *in.IsActive,
		Equipment:           in.Equipment,
		AvailabilityPattern: pattern,
	}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.invalidate(ctx, cache.KeyRoomList)
	s.bus.Publish(events.EventRoomCreated, events.Payload{"room_id": room.ID})
	s.logger.Info().Str("room_id", room.ID).Str("name", room.Name).Msg("room created")
	return room, nil
}

// WatchInvalidations drops cached listings when another instance creates
// a resource. It returns when ctx is done.
func (s *Service) WatchInvalidations(ctx context.Context) {
	interviewers := s.bus.Subscribe(events.EventInterviewerCreated)
	rooms := s.bus.Subscribe(events.EventRoomCreated)
	defer s.bus.Unsubscribe(events.EventInterviewerCreated, interviewers)
	defer s.bus.Unsubscribe(events.EventRoomCreated, rooms)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-interviewers:
			if !ok {
				return
			}
			s.invalidate(ctx, cache.KeyInterviewerList)
		case _, ok := <-rooms:
			if !ok {
				return
			}
			s.invalidate(ctx, cache.KeyRoomList)
		}
	}
}

func (s *Service) invalidate(ctx context.Context, prefix string) {
	if err := s.cache.InvalidateList(ctx, prefix); err != nil {
		s.logger.Warn().Err(err).Str("prefix", prefix).Msg("failed to invalidate cache")
	}
}
