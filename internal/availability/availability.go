/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package availability derives bookable slots from a weekly pattern and the
// scheduled bookings of an interviewer or room. Nothing here is persisted;
// every answer is recomputed from the ledger.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

// SlotStatus is the tri-state of a slot.
type SlotStatus string

const (
	StatusAvailable   SlotStatus = "available"
	StatusBooked      SlotStatus = "booked"
	StatusUnavailable SlotStatus = "unavailable"
)

// TimeSlot is one fixed-size cell of a day.
type TimeSlot struct {
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	IsAvailable bool       `json:"is_available"`
	Status      SlotStatus `json:"status"`
	BookingID   string     `json:"booking_id,omitempty"`
}

// DayAvailability holds the slots of one calendar date.
type DayAvailability struct {
	Date    string     `json:"date"`
	Weekday string     `json:"weekday"`
	Slots   []TimeSlot `json:"slots"`
}

// Days expands [start, end] into one midnight per calendar date.
func Days(start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", end.Format(scheduling.DateLayout), start.Format(scheduling.DateLayout))
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("expand days: %w", err)
	}
	return rule.All(), nil
}

// Grid cuts one weekday into slots of slotMinutes. Each pattern range is
// partitioned from its own start and its trailing partial slot is dropped.
// A weekday without ranges gets the weekly envelope grid, or a whole-day
// grid for an empty pattern, and open is false.
func Grid(p models.WeeklyPattern, weekday string, slotMinutes int) (cells []scheduling.Interval, open bool) {
	if slotMinutes <= 0 {
		return nil, false
	}
	ranges := scheduling.DayRanges(p, weekday)
	if len(ranges) == 0 {
		env, ok := scheduling.Envelope(p)
		if !ok {
			env = scheduling.Interval{Start: 0, End: scheduling.MinutesPerDay}
		}
		return partition(env, slotMinutes, nil), false
	}
	for _, r := range ranges {
		cells = partition(r, slotMinutes, cells)
	}
	return cells, true
}

func partition(iv scheduling.Interval, slotMinutes int, out []scheduling.Interval) []scheduling.Interval {
	for start := iv.Start; start+slotMinutes <= iv.End; start += slotMinutes {
		out = append(out, scheduling.Interval{Start: start, End: start + slotMinutes})
	}
	return out
}

// Compute builds the availability of one entity for the given days. The
// pattern must be normalized. Bookings that are not scheduled, or fall on
// other dates, are ignored.
func Compute(p models.WeeklyPattern, days []time.Time, bookings []models.InterviewSchedule, slotMinutes int) []DayAvailability {
	byDate := make(map[string][]models.InterviewSchedule)
	for _, b := range bookings {
		if b.Status != models.InterviewScheduled {
			continue
		}
		byDate[b.ScheduledDate] = append(byDate[b.ScheduledDate], b)
	}
	for date := range byDate {
		list := byDate[date]
		sort.Slice(list, func(i, j int) bool {
			if list[i].StartMinute != list[j].StartMinute {
				return list[i].StartMinute < list[j].StartMinute
			}
			return list[i].ID < list[j].ID
		})
	}

	out := make([]DayAvailability, 0, len(days))
	for _, day := range days {
		date := day.Format(scheduling.DateLayout)
		weekday := scheduling.WeekdayName(day)
		grid, open := Grid(p, weekday, slotMinutes)
		booked := byDate[date]

		slots := make([]TimeSlot, 0, len(grid))
		for _, cell := range grid {
			slot := TimeSlot{
				StartTime: scheduling.FormatClock(cell.Start),
				EndTime:   scheduling.FormatClock(cell.End),
				Status:    StatusUnavailable,
			}
			if id, ok := bookedBy(cell, booked); ok {
				slot.Status = StatusBooked
				slot.BookingID = id
			} else if open {
				slot.Status = StatusAvailable
				slot.IsAvailable = true
			}
			slots = append(slots, slot)
		}
		out = append(out, DayAvailability{Date: date, Weekday: weekday, Slots: slots})
	}
	return out
}

func bookedBy(cell scheduling.Interval, bookings []models.InterviewSchedule) (string, bool) {
	for _, b := range bookings {
		if cell.Overlaps(scheduling.Interval{Start: b.StartMinute, End: b.EndMinute}) {
			return b.ID, true
		}
	}
	return "", false
}
