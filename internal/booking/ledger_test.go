package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/db"
	"github.com/friendsincode/recruitd/internal/directory"
	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/lock"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

type fixture struct {
	ledger *Ledger
	dir    *directory.Service
	bus    *events.Bus

	candidate   *models.Candidate
	interviewer *models.Interviewer
	other       *models.Interviewer
	room        *models.Room
	room2       *models.Room
}

func newFixture(t *testing.T) *fixture {
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
	dir := directory.NewService(database, nil, bus, zerolog.Nop())
	ledger := NewLedger(database, dir, lock.NewLocal(), bus, Config{DefaultDurationMinutes: 60, MaxDurationMinutes: 480}, zerolog.Nop())

	ctx := context.Background()
	f := &fixture{ledger: ledger, dir: dir, bus: bus}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	f.candidate, err = dir.CreateCandidate(ctx, directory.CreateCandidateInput{Name: "Grace"})
	must(err)
	f.interviewer, err = dir.CreateInterviewer(ctx, directory.CreateInterviewerInput{Name: "Ada"})
	must(err)
	f.other, err = dir.CreateInterviewer(ctx, directory.CreateInterviewerInput{Name: "Linus"})
	must(err)
	f.room, err = dir.CreateRoom(ctx, directory.CreateRoomInput{Name: "R", Capacity: 4})
	must(err)
	f.room2, err = dir.CreateRoom(ctx, directory.CreateRoomInput{Name: "R2", Capacity: 4})
	must(err)
	return f
}

func (f *fixture) request(interviewer *models.Interviewer, room *models.Room, date, at string, minutes int) CreateRequest {
	req := CreateRequest{
		CandidateID:     f.candidate.ID,
		InterviewerID:   interviewer.ID,
		ScheduledDate:   date,
		ScheduledTime:   at,
		DurationMinutes: &minutes,
	}
	if room != nil {
		req.RoomID = &room.ID
	} else {
		req.MeetingLink = "https://meet.example.com/x"
	}
	return req
}

func TestInterviewerAndRoomConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Same interviewer, overlapping.
	_, err = f.ledger.Create(ctx, f.request(f.interviewer, nil, "2024-03-20", "10:30", 30))
	var conflict *errs.ConflictError
	if !errors.As(err, &conflict) || conflict.Resource != "interviewer" || conflict.BookingID != first.ID {
		t.Fatalf("expected interviewer conflict with %s, got %v", first.ID, err)
	}

	// Different interviewer, same room and time.
	_, err = f.ledger.Create(ctx, f.request(f.other, f.room, "2024-03-20", "10:00", 60))
	if !errors.As(err, &conflict) || conflict.Resource != "room" || conflict.BookingID != first.ID {
		t.Fatalf("expected room conflict, got %v", err)
	}

	// Same interviewer, different room, different time.
	if _, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room2, "2024-03-20", "13:00", 60)); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}

	// Standalone check agrees with create.
	err = f.ledger.Check(ctx, f.request(f.other, f.room, "2024-03-20", "10:15", 30))
	if !errors.As(err, &conflict) || conflict.Resource != "room" {
		t.Fatalf("standalone check = %v", err)
	}
}

func TestCreateIsVisibleToList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, CreateRequest{
		CandidateID:   f.candidate.ID,
		InterviewerID: f.interviewer.ID,
		RoomID:        &f.room.ID,
		ScheduledDate: "2024-03-20",
		ScheduledTime: "09:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.DurationMinutes != 60 || b.InterviewType != models.InterviewTechnical || b.InterviewMode != models.ModeInPerson {
		t.Fatalf("defaults not applied: %+v", b)
	}
	if b.Status != models.InterviewScheduled || b.EndMinute != 600 {
		t.Fatalf("booking = %+v", b)
	}

	list, err := f.ledger.List(ctx, Filter{InterviewerID: f.interviewer.ID, Date: "2024-03-20"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("list = %v", list)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	zero := 0
	long := 600

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"missing candidate", func(r *CreateRequest) { r.CandidateID = "" }, "candidate_id"},
		{"missing interviewer", func(r *CreateRequest) { r.InterviewerID = "" }, "interviewer_id"},
		{"missing date", func(r *CreateRequest) { r.ScheduledDate = "" }, "scheduled_date"},
		{"missing time", func(r *CreateRequest) { r.ScheduledTime = "" }, "scheduled_time"},
		{"bad date", func(r *CreateRequest) { r.ScheduledDate = "20/03/2024" }, "scheduled_date"},
		{"bad time", func(r *CreateRequest) { r.ScheduledTime = "10am" }, "scheduled_time"},
		{"zero duration", func(r *CreateRequest) { r.DurationMinutes = &zero }, "duration_minutes"},
		{"too long", func(r *CreateRequest) { r.DurationMinutes = &long }, "duration_minutes"},
		{"past midnight", func(r *CreateRequest) { r.ScheduledTime = "23:30" }, "duration_minutes"},
		{"bad type", func(r *CreateRequest) { r.InterviewType = "vibes" }, "interview_type"},
		{"in-person without room", func(r *CreateRequest) { r.RoomID = nil; r.InterviewMode = models.ModeInPerson }, "room_id"},
		{"virtual without link", func(r *CreateRequest) { r.InterviewMode = models.ModeVirtual }, "meeting_link"},
		{"hybrid without link", func(r *CreateRequest) { r.InterviewMode = models.ModeHybrid }, "meeting_link"},
		{"nothing to infer", func(r *CreateRequest) { r.RoomID = nil }, "interview_mode"},
		{"bad mode", func(r *CreateRequest) { r.InterviewMode = "telepathy" }, "interview_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateRequest{
				CandidateID:   f.candidate.ID,
				InterviewerID: f.interviewer.ID,
				RoomID:        &f.room.ID,
				ScheduledDate: "2024-03-20",
				ScheduledTime: "10:00",
			}
			tt.mutate(&req)

			_, err := f.ledger.Create(ctx, req)
			var verr *errs.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("field = %q, want %q (%v)", verr.Field, tt.field, err)
			}
		})
	}

	list, err := f.ledger.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("validation failures wrote %d bookings", len(list))
	}
}

func TestCreateModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	virtual, err := f.ledger.Create(ctx, CreateRequest{
		CandidateID: f.candidate.ID, InterviewerID: f.interviewer.ID,
		ScheduledDate: "2024-03-21", ScheduledTime: "09:00", MeetingLink: "https://meet.example.com/a",
	})
	if err != nil {
		t.Fatal(err)
	}
	if virtual.InterviewMode != models.ModeVirtual || virtual.RoomID != nil {
		t.Fatalf("virtual = %+v", virtual)
	}

	hybrid, err := f.ledger.Create(ctx, CreateRequest{
		CandidateID: f.candidate.ID, InterviewerID: f.interviewer.ID, RoomID: &f.room.ID,
		ScheduledDate: "2024-03-21", ScheduledTime: "11:00", MeetingLink: "https://meet.example.com/b",
		InterviewMode: models.ModeHybrid, InterviewType: models.InterviewFinal,
	})
	if err != nil {
		t.Fatal(err)
	}
	if hybrid.InterviewMode != models.ModeHybrid || hybrid.InterviewType != models.InterviewFinal {
		t.Fatalf("hybrid = %+v", hybrid)
	}
}

func TestCreateReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := "missing"
	req := f.request(f.interviewer, f.room, "2024-03-20", "10:00", 30)
	req.RoomID = &missing
	if _, err := f.ledger.Create(ctx, req); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown room: %v", err)
	}
	req = f.request(f.interviewer, f.room, "2024-03-20", "10:00", 30)
	req.CandidateID = missing
	if _, err := f.ledger.Create(ctx, req); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown candidate: %v", err)
	}

	inactive := false
	sleepy, err := f.dir.CreateInterviewer(ctx, directory.CreateInterviewerInput{Name: "Off", IsActive: &inactive})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Create(ctx, f.request(sleepy, f.room, "2024-03-20", "10:00", 30)); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("inactive interviewer: %v", err)
	}

	event := "evt-1"
	hall, err := f.dir.CreateRoom(ctx, directory.CreateRoomInput{Name: "Hall", Capacity: 30, Type: models.RoomEvent, EventID: &event})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Create(ctx, f.request(f.interviewer, hall, "2024-03-20", "10:00", 30)); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("event room for outside candidate: %v", err)
	}
	attendee, err := f.dir.CreateCandidate(ctx, directory.CreateCandidateInput{Name: "Attendee", EventID: &event})
	if err != nil {
		t.Fatal(err)
	}
	req = f.request(f.interviewer, hall, "2024-03-20", "10:00", 30)
	req.CandidateID = attendee.ID
	if _, err := f.ledger.Create(ctx, req); err != nil {
		t.Fatalf("event room for attendee: %v", err)
	}
}

func TestStatusMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatal(err)
	}
	changes := f.bus.Subscribe(events.EventBookingStatusChanged)

	notes := "went well"
	done, err := f.ledger.UpdateStatus(ctx, b.ID, models.InterviewCompleted, &notes)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.InterviewCompleted || done.Notes != notes {
		t.Fatalf("completed = %+v", done)
	}
	select {
	case p := <-changes:
		if p["from_status"] != "scheduled" || p["status"] != "completed" {
			t.Fatalf("event = %v", p)
		}
	default:
		t.Fatal("expected status event")
	}

	for _, target := range []models.InterviewStatus{models.InterviewCancelled, models.InterviewScheduled, models.InterviewRescheduled} {
		if _, err := f.ledger.UpdateStatus(ctx, b.ID, target, nil); !errors.Is(err, errs.ErrIllegalTransition) {
			t.Fatalf("completed -> %s: %v", target, err)
		}
	}
	if _, err := f.ledger.UpdateStatus(ctx, b.ID, "archived", nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("unknown status: %v", err)
	}
	if _, err := f.ledger.UpdateStatus(ctx, "missing", models.InterviewCancelled, nil); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown booking: %v", err)
	}
}

func TestCancelIsIdempotentAndFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		got, err := f.ledger.Cancel(ctx, b.ID)
		if err != nil {
			t.Fatalf("cancel #%d: %v", i+1, err)
		}
		if got.Status != models.InterviewCancelled {
			t.Fatalf("status = %s", got.Status)
		}
	}
	got, err := f.ledger.Get(ctx, b.ID)
	if err != nil || got.Status != models.InterviewCancelled {
		t.Fatalf("re-query = %+v, %v", got, err)
	}

	if _, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60)); err != nil {
		t.Fatalf("cancelled slot should be free: %v", err)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatal(err)
	}

	// Overlapping its own old interval is fine.
	moved, err := f.ledger.Reschedule(ctx, b.ID, RescheduleRequest{ScheduledTime: "10:30"})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.RescheduledFrom == nil || *moved.RescheduledFrom != b.ID || moved.ScheduledTime != "10:30" {
		t.Fatalf("replacement = %+v", moved)
	}
	old, err := f.ledger.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old.Status != models.InterviewRescheduled || old.SupersededBy == nil || *old.SupersededBy != moved.ID {
		t.Fatalf("old = %+v", old)
	}

	if _, err := f.ledger.Reschedule(ctx, b.ID, RescheduleRequest{ScheduledTime: "15:00"}); !errors.Is(err, errs.ErrIllegalTransition) {
		t.Fatalf("reschedule of superseded booking: %v", err)
	}
}

func TestRescheduleConflictKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatal(err)
	}
	blocker, err := f.ledger.Create(ctx, f.request(f.other, f.room2, "2024-03-20", "14:00", 60))
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.ledger.Reschedule(ctx, b.ID, RescheduleRequest{ScheduledTime: "14:00", RoomID: &f.room2.ID})
	var conflict *errs.ConflictError
	if !errors.As(err, &conflict) || conflict.BookingID != blocker.ID {
		t.Fatalf("expected conflict with blocker, got %v", err)
	}

	old, err := f.ledger.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old.Status != models.InterviewScheduled {
		t.Fatalf("original status = %s", old.Status)
	}
	active, err := f.ledger.List(ctx, Filter{Status: models.InterviewScheduled})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active bookings = %d", len(active))
	}
}

// hookLocker runs onLock once, the first time a lock is granted.
type hookLocker struct {
	lock.Locker
	once   sync.Once
	onLock func(keys []string)
}

func (h *hookLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	unlock, err := h.Locker.Lock(ctx, keys...)
	if err == nil && h.onLock != nil {
		h.once.Do(func() { h.onLock(keys) })
	}
	return unlock, err
}

func TestRescheduleHoldsOldSlotUntilCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room2, "2024-03-21", "14:00", 60)); err != nil {
		t.Fatal(err)
	}

	locker := &hookLocker{Locker: lock.NewLocal()}
	f.ledger.locker = locker
	var granted []string
	competitor := make(chan error, 1)
	locker.onLock = func(keys []string) {
		granted = keys
		go func() {
			_, err := f.ledger.Create(ctx, f.request(f.other, f.room, "2024-03-20", "10:00", 60))
			competitor <- err
		}()
	}

	_, err = f.ledger.Reschedule(ctx, b.ID, RescheduleRequest{ScheduledDate: "2024-03-21", ScheduledTime: "14:00"})
	if !errors.Is(err, errs.ErrSchedulingConflict) {
		t.Fatalf("reschedule onto a busy slot: %v", err)
	}

	for _, want := range []string{
		lock.InterviewerKey(f.interviewer.ID, "2024-03-20"),
		lock.RoomKey(f.room.ID, "2024-03-20"),
		lock.InterviewerKey(f.interviewer.ID, "2024-03-21"),
	} {
		if !slices.Contains(granted, want) {
			t.Fatalf("locks %v missing %s", granted, want)
		}
	}

	var conflict *errs.ConflictError
	if err := <-competitor; !errors.As(err, &conflict) || conflict.BookingID != b.ID {
		t.Fatalf("competing booking on the old slot: %v", err)
	}
	old, err := f.ledger.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old.Status != models.InterviewScheduled || old.SupersededBy != nil {
		t.Fatalf("original = %+v", old)
	}
}

func TestReinstateRechecksConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, f.request(f.interviewer, f.room, "2024-03-20", "10:00", 60))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Cancel(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Create(ctx, f.request(f.other, f.room, "2024-03-20", "10:30", 30)); err != nil {
		t.Fatal(err)
	}

	if _, err := f.ledger.Reinstate(ctx, b.ID); !errors.Is(err, errs.ErrSchedulingConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, err := f.ledger.Get(ctx, b.ID)
	if err != nil || got.Status != models.InterviewCancelled {
		t.Fatalf("booking = %+v, %v", got, err)
	}
}

func TestConcurrentCreatesNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := scheduling.FormatClock(9*60 + (i%8)*15)
			_, err := f.ledger.Create(ctx, f.request(f.interviewer, nil, "2024-03-20", at, 45))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, errs.ErrSchedulingConflict) {
				t.Errorf("create %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if accepted == 0 {
		t.Fatal("no booking accepted")
	}
	list, err := f.ledger.List(ctx, Filter{InterviewerID: f.interviewer.ID, Status: models.InterviewScheduled})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != accepted {
		t.Fatalf("listed %d, accepted %d", len(list), accepted)
	}
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			a := scheduling.Interval{Start: list[i].StartMinute, End: list[i].EndMinute}
			b := scheduling.Interval{Start: list[j].StartMinute, End: list[j].EndMinute}
			if a.Overlaps(b) {
				t.Fatalf("overlap: %s %v and %s %v", list[i].ID, a, list[j].ID, b)
			}
		}
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, date := range []string{"2024-03-22", "2024-03-20", "2024-03-21"} {
		if _, err := f.ledger.Create(ctx, f.request(f.interviewer, nil, date, fmt.Sprintf("%02d:00", 9+i), 30)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := f.ledger.List(ctx, Filter{CandidateID: f.candidate.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ScheduledDate != "2024-03-20" || all[2].ScheduledDate != "2024-03-22" {
		t.Fatalf("ordering = %v", all)
	}

	ranged, err := f.ledger.List(ctx, Filter{DateFrom: "2024-03-21", DateTo: "2024-03-22"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 {
		t.Fatalf("ranged = %d", len(ranged))
	}

	if _, err := f.ledger.List(ctx, Filter{Status: "archived"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad status: %v", err)
	}
	if _, err := f.ledger.List(ctx, Filter{Date: "tomorrow"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad date: %v", err)
	}
}
