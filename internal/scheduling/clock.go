/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/recruitd/internal/errs"
)

const (
	// DateLayout is the calendar date format used on the wire and in storage.
	DateLayout = "2006-01-02"

	// MinutesPerDay bounds every interval on a single date.
	MinutesPerDay = 24 * 60
)

// Weekdays lists pattern keys in calendar order starting Monday.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether a and b share at least one minute.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether b lies entirely within a.
func (a Interval) Contains(b Interval) bool {
	return a.Start <= b.Start && b.End <= a.End
}

// Minutes returns the length of the interval.
func (a Interval) Minutes() int {
	return a.End - a.Start
}

func (a Interval) String() string {
	return FormatClock(a.Start) + "-" + FormatClock(a.End)
}

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC
// and only carries the date; wall-clock times live alongside as minutes.
func ParseDate(field, s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, errs.Invalid(field, "must be a date in YYYY-MM-DD form, got %q", s)
	}
	return d, nil
}

// ParseClock parses HH:MM into minutes since midnight. "24:00" is accepted
// only when allowMidnight is set, for the closing edge of a range.
func ParseClock(field, s string, allowMidnight bool) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, errs.Invalid(field, "must be a time in HH:MM form, got %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, errs.Invalid(field, "must be a time in HH:MM form, got %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, errs.Invalid(field, "must be a time in HH:MM form, got %q", s)
	}
	if h == 24 && m == 0 && allowMidnight {
		return MinutesPerDay, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errs.Invalid(field, "time %q is out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// WeekdayName returns the lowercase pattern key for the date.
func WeekdayName(d time.Time) string {
	return strings.ToLower(d.Weekday().String())
}

// BookingInterval validates a start time and duration on one date.
func BookingInterval(scheduledTime string, durationMinutes int) (Interval, error) {
	start, err := ParseClock("scheduled_time", scheduledTime, false)
	if err != nil {
		return Interval{}, err
	}
	if durationMinutes <= 0 {
		return Interval{}, errs.Invalid("duration_minutes", "must be positive, got %d", durationMinutes)
	}
	end := start + durationMinutes
	if end > MinutesPerDay {
		return Interval{}, errs.Invalid("duration_minutes", "interview starting at %s for %d minutes runs past midnight", FormatClock(start), durationMinutes)
	}
	return Interval{Start: start, End: end}, nil
}
