/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// TimeRange is a ["HH:MM","HH:MM") wall-clock window.
type TimeRange [2]string

// Start returns the opening HH:MM of the range.
func (r TimeRange) Start() string { return r[0] }

// End returns the closing HH:MM of the range.
func (r TimeRange) End() string { return r[1] }

// WeeklyPattern maps a lowercase weekday name ("monday") to its ordered,
// non-overlapping bookable ranges.
type WeeklyPattern map[string][]TimeRange

// Interviewer is a person who can be booked for interviews.
type Interviewer struct {
	ID                  string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name                string        `gorm:"type:varchar(255);not null" json:"name"`
	Email               string        `gorm:"type:varchar(255)" json:"email,omitempty"`
	Role                string        `gorm:"type:varchar(128)" json:"role,omitempty"`
	IsActive            bool          `gorm:"not null;index" json:"is_active"`
	AvailabilityPattern WeeklyPattern `gorm:"type:text;serializer:json" json:"availability_pattern"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Interviewer) TableName() string {
	return "interviewers"
}

// RoomType classifies a room.
type RoomType string

const (
	RoomGeneral RoomType = "general"
	RoomEvent   RoomType = "event"
	RoomVirtual RoomType = "virtual"
)

// Room is a bookable space, optionally scoped to one event.
type Room struct {
	ID        string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string   `gorm:"type:varchar(255);not null" json:"name"`
	Capacity  int      `gorm:"not null" json:"capacity"`
	Type      RoomType `gorm:"type:varchar(16);not null;default:'general';index" json:"type"`
	EventID   *string  `gorm:"type:varchar(36);index" json:"event_id,omitempty"`
	IsActive  bool     `gorm:"not null;index" json:"is_active"`
	Equipment []string `gorm:"type:text;serializer:json" json:"equipment,omitempty"`

	// AvailabilityPattern overrides operating hours when set.
	AvailabilityPattern WeeklyPattern `gorm:"type:text;serializer:json" json:"availability_pattern,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Room) TableName() string {
	return "rooms"
}
