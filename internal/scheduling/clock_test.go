package scheduling

import (
	"errors"
	"testing"

	"github.com/friendsincode/recruitd/internal/errs"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in            string
		allowMidnight bool
		want          int
		wantErr       bool
	}{
		{"09:00", false, 540, false},
		{"00:00", false, 0, false},
		{"23:59", false, 1439, false},
		{"24:00", true, 1440, false},
		{"24:00", false, 0, true},
		{"9:00", false, 0, true},
		{"09:60", false, 0, true},
		{"25:00", true, 0, true},
		{"noon", false, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock("t", tt.in, tt.allowMidnight)
		if tt.wantErr {
			if !errors.Is(err, errs.ErrValidation) {
				t.Errorf("ParseClock(%q) err = %v, want validation error", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseClock(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestIntervalOverlapIsHalfOpen(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", Interval{600, 660}, Interval{600, 660}, true},
		{"partial", Interval{600, 660}, Interval{630, 660}, true},
		{"contained", Interval{600, 720}, Interval{630, 660}, true},
		{"adjacent after", Interval{600, 660}, Interval{660, 720}, false},
		{"adjacent before", Interval{660, 720}, Interval{600, 660}, false},
		{"disjoint", Interval{600, 630}, Interval{700, 730}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("%v overlaps %v = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("overlap is not symmetric for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestBookingIntervalRejectsPastMidnight(t *testing.T) {
	if _, err := BookingInterval("23:30", 60); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	iv, err := BookingInterval("23:00", 60)
	if err != nil {
		t.Fatalf("booking ending at midnight: %v", err)
	}
	if iv.End != MinutesPerDay {
		t.Fatalf("end = %d", iv.End)
	}
	if _, err := BookingInterval("10:00", 0); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected zero duration to fail, got %v", err)
	}
}

func TestWeekdayName(t *testing.T) {
	d, err := ParseDate("date", "2024-03-18")
	if err != nil {
		t.Fatal(err)
	}
	if got := WeekdayName(d); got != "monday" {
		t.Fatalf("weekday = %q", got)
	}
	if _, err := ParseDate("date", "2024-02-30"); err == nil {
		t.Fatal("expected invalid date to fail")
	}
}
