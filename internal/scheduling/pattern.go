/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"slices"
	"strings"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
)

// NormalizePattern lowercases weekday keys and checks that every day holds
// sorted, non-overlapping HH:MM ranges with start before end.
func NormalizePattern(p models.WeeklyPattern) (models.WeeklyPattern, error) {
	out := make(models.WeeklyPattern, len(p))
	for day, ranges := range p {
		key := strings.ToLower(strings.TrimSpace(day))
		if !slices.Contains(Weekdays, key) {
			return nil, errs.Invalid("availability_pattern", "unknown weekday %q", day)
		}
		if _, dup := out[key]; dup {
			return nil, errs.Invalid("availability_pattern", "weekday %q given more than once", key)
		}

		prevEnd := -1
		for _, r := range ranges {
			iv, err := rangeInterval(r)
			if err != nil {
				return nil, err
			}
			if iv.Start < prevEnd {
				return nil, errs.Invalid("availability_pattern", "%s ranges must be sorted and non-overlapping at %s", key, iv)
			}
			prevEnd = iv.End
		}
		out[key] = append([]models.TimeRange(nil), ranges...)
	}
	return out, nil
}

// DayRanges returns the bookable intervals of a weekday. The pattern is
// assumed normalized.
func DayRanges(p models.WeeklyPattern, weekday string) []Interval {
	ranges := p[weekday]
	out := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		iv, err := rangeInterval(r)
		if err != nil {
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Envelope spans the earliest start to the latest end across the week.
// ok is false for an empty pattern.
func Envelope(p models.WeeklyPattern) (env Interval, ok bool) {
	for _, day := range Weekdays {
		for _, iv := range DayRanges(p, day) {
			if !ok {
				env, ok = iv, true
				continue
			}
			env.Start = min(env.Start, iv.Start)
			env.End = max(env.End, iv.End)
		}
	}
	return env, ok
}

// EveryDay builds a pattern that opens the same range on all weekdays.
func EveryDay(start, end string) models.WeeklyPattern {
	p := make(models.WeeklyPattern, len(Weekdays))
	for _, day := range Weekdays {
		p[day] = []models.TimeRange{{start, end}}
	}
	return p
}

func rangeInterval(r models.TimeRange) (Interval, error) {
	start, err := ParseClock("availability_pattern", r.Start(), false)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock("availability_pattern", r.End(), true)
	if err != nil {
		return Interval{}, err
	}
	if start >= end {
		return Interval{}, errs.Invalid("availability_pattern", "range %s-%s must start before it ends", r.Start(), r.End())
	}
	return Interval{Start: start, End: end}, nil
}
