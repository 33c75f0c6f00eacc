package scheduling

import (
	"errors"
	"testing"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
)

func booked(id, interviewer, room, date string, start, end int) models.InterviewSchedule {
	b := models.InterviewSchedule{
		ID:            id,
		InterviewerID: interviewer,
		ScheduledDate: date,
		StartMinute:   start,
		EndMinute:     end,
		Status:        models.InterviewScheduled,
	}
	if room != "" {
		b.RoomID = &room
	}
	return b
}

func TestDetectRoomAndInterviewerConflicts(t *testing.T) {
	existing := []models.InterviewSchedule{
		booked("b1", "I", "R", "2024-03-20", 600, 660), // 10:00-11:00
	}

	tests := []struct {
		name         string
		proposal     Proposal
		wantResource string
	}{
		{
			name:         "same interviewer overlapping",
			proposal:     Proposal{InterviewerID: "I", Date: "2024-03-20", Interval: Interval{630, 660}},
			wantResource: "interviewer",
		},
		{
			name:         "different interviewer same room",
			proposal:     Proposal{InterviewerID: "J", RoomID: "R", Date: "2024-03-20", Interval: Interval{600, 660}},
			wantResource: "room",
		},
		{
			name:     "same interviewer different room and time",
			proposal: Proposal{InterviewerID: "I", RoomID: "R2", Date: "2024-03-20", Interval: Interval{720, 780}},
		},
		{
			name:     "back to back",
			proposal: Proposal{InterviewerID: "I", RoomID: "R", Date: "2024-03-20", Interval: Interval{660, 720}},
		},
		{
			name:     "other date",
			proposal: Proposal{InterviewerID: "I", RoomID: "R", Date: "2024-03-21", Interval: Interval{600, 660}},
		},
		{
			name:     "update of itself",
			proposal: Proposal{BookingID: "b1", InterviewerID: "I", RoomID: "R", Date: "2024-03-20", Interval: Interval{615, 675}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Detect(tt.proposal, existing)
			if tt.wantResource == "" {
				if err != nil {
					t.Fatalf("expected accept, got %v", err)
				}
				return
			}
			var conflict *errs.ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected conflict, got %v", err)
			}
			if conflict.Resource != tt.wantResource || conflict.BookingID != "b1" {
				t.Fatalf("conflict = %+v", conflict)
			}
		})
	}
}

func TestDetectIgnoresInactiveBookings(t *testing.T) {
	cancelled := booked("b1", "I", "", "2024-03-20", 600, 660)
	cancelled.Status = models.InterviewCancelled
	moved := booked("b2", "I", "", "2024-03-20", 600, 660)
	moved.Status = models.InterviewRescheduled

	p := Proposal{InterviewerID: "I", Date: "2024-03-20", Interval: Interval{600, 660}}
	if err := Detect(p, []models.InterviewSchedule{cancelled, moved}); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	existing := []models.InterviewSchedule{
		booked("b3", "I", "", "2024-03-20", 630, 700),
		booked("b2", "I", "", "2024-03-20", 600, 640),
		booked("b1", "X", "R", "2024-03-20", 600, 640),
	}
	p := Proposal{InterviewerID: "I", RoomID: "R", Date: "2024-03-20", Interval: Interval{600, 720}}

	for i := 0; i < 5; i++ {
		var conflict *errs.ConflictError
		if !errors.As(Detect(p, existing), &conflict) {
			t.Fatal("expected conflict")
		}
		// Interviewer is checked first, earliest booking wins.
		if conflict.Resource != "interviewer" || conflict.BookingID != "b2" {
			t.Fatalf("conflict = %+v", conflict)
		}
		existing[0], existing[2] = existing[2], existing[0]
	}
}
