package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/db"
	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(database, nil, bus, zerolog.Nop()), bus
}

func TestCreateAndListInterviewers(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()
	created := bus.Subscribe(events.EventInterviewerCreated)

	inactive := false
	a, err := svc.CreateInterviewer(ctx, CreateInterviewerInput{
		Name:                "Ada",
		Role:                "Staff Engineer",
		AvailabilityPattern: models.WeeklyPattern{"Monday": {{"09:00", "12:00"}}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateInterviewer(ctx, CreateInterviewerInput{Name: "Bob", IsActive: &inactive}); err != nil {
		t.Fatalf("create inactive: %v", err)
	}

	if !a.IsActive {
		t.Fatal("interviewers are active by default")
	}
	if _, ok := a.AvailabilityPattern["monday"]; !ok {
		t.Fatalf("pattern keys not normalized: %v", a.AvailabilityPattern)
	}
	select {
	case p := <-created:
		if p["interviewer_id"] != a.ID {
			t.Fatalf("event payload = %v", p)
		}
	default:
		t.Fatal("expected interviewer created event")
	}

	all, err := svc.ListInterviewers(ctx, InterviewerFilter{})
	if err != nil {
		t.Fatal(err)
	}
	active, err := svc.ListInterviewers(ctx, InterviewerFilter{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("all=%d active=%v", len(all), active)
	}

	got, err := svc.GetInterviewer(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AvailabilityPattern["monday"][0] != (models.TimeRange{"09:00", "12:00"}) {
		t.Fatalf("pattern did not round trip: %v", got.AvailabilityPattern)
	}
}

func TestCreateInterviewerValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInterviewerInput
	}{
		{"missing name", CreateInterviewerInput{}},
		{"overlapping pattern", CreateInterviewerInput{Name: "X", AvailabilityPattern: models.WeeklyPattern{"monday": {{"09:00", "11:00"}, {"10:00", "12:00"}}}}},
		{"unknown day", CreateInterviewerInput{Name: "X", AvailabilityPattern: models.WeeklyPattern{"someday": {{"09:00", "11:00"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateInterviewer(ctx, tt.in); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestRooms(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	event := "evt-1"
	if _, err := svc.CreateRoom(ctx, CreateRoomInput{Name: "Fjord", Capacity: 4}); err != nil {
		t.Fatal(err)
	}
	hall, err := svc.CreateRoom(ctx, CreateRoomInput{Name: "Hall B", Capacity: 20, Type: models.RoomEvent, EventID: &event})
	if err != nil {
		t.Fatal(err)
	}

	eventRooms, err := svc.ListRooms(ctx, RoomFilter{EventID: event})
	if err != nil {
		t.Fatal(err)
	}
	if len(eventRooms) != 1 || eventRooms[0].ID != hall.ID {
		t.Fatalf("event rooms = %v", eventRooms)
	}
	general, err := svc.ListRooms(ctx, RoomFilter{Type: models.RoomGeneral, ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(general) != 1 || general[0].Type != models.RoomGeneral {
		t.Fatalf("general rooms = %v", general)
	}

	for _, in := range []CreateRoomInput{
		{Name: "Zero", Capacity: 0},
		{Name: "Odd", Capacity: 2, Type: "closet"},
		{Capacity: 2},
	} {
		if _, err := svc.CreateRoom(ctx, in); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%+v: err = %v, want validation", in, err)
		}
	}

	if _, err := svc.GetRoom(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCandidatesStartApplied(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	blank := " "
	c, err := svc.CreateCandidate(ctx, CreateCandidateInput{Name: "Grace", Email: "grace@example.com", JobID: &blank})
	if err != nil {
		t.Fatal(err)
	}
	if c.Stage != models.StageApplied || c.JobID != nil {
		t.Fatalf("candidate = %+v", c)
	}

	history, err := svc.StageHistory(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %v", history)
	}
	if _, err := svc.StageHistory(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.CreateCandidate(ctx, CreateCandidateInput{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestInactiveResourcesStayInactive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inactive := false

	iv, err := svc.CreateInterviewer(ctx, CreateInterviewerInput{Name: "Off", IsActive: &inactive})
	if err != nil {
		t.Fatal(err)
	}
	room, err := svc.CreateRoom(ctx, CreateRoomInput{Name: "Closed", Capacity: 4, IsActive: &inactive})
	if err != nil {
		t.Fatal(err)
	}

	gotIV, err := svc.GetInterviewer(ctx, iv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotIV.IsActive {
		t.Fatal("interviewer created inactive was stored as active")
	}
	gotRoom, err := svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotRoom.IsActive {
		t.Fatal("room created inactive was stored as active")
	}

	rooms, err := svc.ListRooms(ctx, RoomFilter{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 0 {
		t.Fatalf("active rooms = %v", rooms)
	}
}
