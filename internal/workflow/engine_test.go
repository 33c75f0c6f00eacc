package workflow

import (
	"errors"
	"testing"

	"github.com/friendsincode/recruitd/internal/errs"
	"github.com/friendsincode/recruitd/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("load default catalogue: %v", err)
	}
	return NewEngine(c)
}

func TestApplyTransitions(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		from   models.Stage
		action string
		input  Input
		want   models.Stage
	}{
		{models.StageApplied, "shortlist", nil, models.StageScreened},
		{models.StageApplied, "reject", Reason{"not a fit"}, models.StageRejected},
		{models.StageApplied, "hold", Reason{"role paused"}, models.StageOnHold},
		{models.StageOnHold, "resume", nil, models.StageApplied},
		{models.StageScreened, "schedule-interview", nil, models.StageInterviewScheduled},
		{models.StageShortlisted, "schedule-interview", nil, models.StageInterviewScheduled},
		{models.StageInterviewScheduled, "start-interview", nil, models.StageInterviewing},
		{models.StageInterviewScheduled, "reschedule", nil, models.StageInterviewScheduled},
		{models.StageInterviewing, "complete-interview", nil, models.StageInterviewCompleted},
		{models.StageInterviewCompleted, "move-to-final-review", nil, models.StageFinalReview},
		{models.StageInterviewCompleted, "request-additional-interview", nil, models.StageAdditionalInterview},
		{models.StageAdditionalInterview, "schedule-interview", nil, models.StageInterviewScheduled},
		{models.StageFinalReview, "extend-offer", nil, models.StageOfferExtended},
		{models.StageFinalReview, "final-reject", Reason{"budget"}, models.StageRejected},
		{models.StageOfferExtended, "accept-offer", nil, models.StageHired},
		{models.StageOfferExtended, "negotiate", nil, models.StageNegotiating},
		{models.StageNegotiating, "revise-offer", nil, models.StageOfferExtended},
		{models.StageNegotiating, "decline-offer", Reason{"salary"}, models.StageRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+tt.action, func(t *testing.T) {
			tr, err := e.Apply(tt.from, tt.action, tt.input)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if tr.To != tt.want || tr.From != tt.from {
				t.Fatalf("transition = %s -> %s, want %s", tr.From, tr.To, tt.want)
			}
			if tr.Message == "" {
				t.Fatal("expected confirmation message")
			}
		})
	}
}

func TestApplyRejectsIllegalActions(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		from   models.Stage
		action string
	}{
		{models.StageApplied, "final-reject"},
		{models.StageApplied, "schedule-interview"},
		{models.StageInterviewing, "reject"},
		{models.StageHired, "schedule-interview"},
		{models.StageRejected, "resume"},
		{"unknown", "shortlist"},
	}

	for _, tt := range tests {
		_, err := e.Apply(tt.from, tt.action, Reason{"x"})
		if !errors.Is(err, errs.ErrIllegalTransition) {
			t.Errorf("%s/%s: err = %v, want illegal transition", tt.from, tt.action, err)
		}
	}
}

func TestApplyRequiresReason(t *testing.T) {
	e := newTestEngine(t)

	for _, in := range []Input{nil, NoInput{}, InputFrom("   ")} {
		_, err := e.Apply(models.StageApplied, "reject", in)
		var missing *errs.MissingInputError
		if !errors.As(err, &missing) {
			t.Fatalf("input %#v: err = %v, want missing input", in, err)
		}
		if missing.Input != "reason" {
			t.Fatalf("missing = %+v", missing)
		}
	}

	tr, err := e.Apply(models.StageApplied, "reject", InputFrom("no visa"))
	if err != nil {
		t.Fatal(err)
	}
	if Notes(tr.Input) != "no visa" {
		t.Fatalf("notes = %q", Notes(tr.Input))
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	e := newTestEngine(t)
	first, err := e.Apply(models.StageOfferExtended, "negotiate", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Apply(models.StageOfferExtended, "negotiate", nil)
		if err != nil || again.To != first.To || again.Message != first.Message {
			t.Fatalf("run %d differs: %+v, %v", i, again, err)
		}
	}
}

func TestTerminalStagesHaveNoActions(t *testing.T) {
	e := newTestEngine(t)
	for _, st := range []models.Stage{models.StageHired, models.StageRejected} {
		if got := e.Available(st); len(got) != 0 {
			t.Fatalf("%s has actions %v", st, got)
		}
		if !e.Catalogue().Terminal(st) {
			t.Fatalf("%s should be terminal", st)
		}
	}
	got := e.Available(models.StageApplied)
	want := []string{"shortlist", "reject", "hold"}
	if len(got) != len(want) {
		t.Fatalf("available = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("available = %v, want %v", got, want)
		}
	}
}
