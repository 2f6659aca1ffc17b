package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/model"
)

type stubActions struct {
	actions []model.JobAction
	err     error
}

func (s *stubActions) ListActions(context.Context, model.ActionKind, string) ([]model.JobAction, error) {
	return s.actions, s.err
}

func listings() []jobs.Listing {
	return []jobs.Listing{
		jobs.Local{Posting: jobs.Posting{ID: "1", Title: "Teacher", CompanyName: "Brookhouse"}},
		jobs.External{Posting: jobs.Posting{ID: "1", Title: "Nurse", CompanyName: "Aga Khan"}},
		jobs.External{Posting: jobs.Posting{ID: "2", Title: "Driver", CompanyName: "Little Cabs"}},
	}
}

func ids(ls []jobs.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, string(l.Source())+"/"+l.Details().ID)
	}
	return out
}

func TestAppliedFilterMatchesSourceAndID(t *testing.T) {
	t.Parallel()

	actions := &stubActions{actions: []model.JobAction{
		{JobID: "1", Source: jobs.SourceAdzuna},
		{JobID: "99", Source: jobs.SourceLocal},
	}}

	got, step, err := NewApplied(actions, "u1", nil).Apply(context.Background(), listings())
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if step != (Step{Initial: 3, Dropped: 1, Left: 2}) {
		t.Fatalf("unexpected step: %+v", step)
	}
	want := []string{"local/1", "adzuna/2"}
	if gotIDs := ids(got); len(gotIDs) != 2 || gotIDs[0] != want[0] || gotIDs[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, gotIDs)
	}
}

func TestExcludedCompanies(t *testing.T) {
	t.Parallel()

	got, step, err := NewExcludedCompanies([]string{" aga khan ", ""}, nil).Apply(context.Background(), listings())
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if step.Dropped != 1 || len(got) != 2 {
		t.Fatalf("unexpected result: %+v %v", step, ids(got))
	}

	all, step, _ := NewExcludedCompanies(nil, nil).Apply(context.Background(), listings())
	if len(all) != 3 || step.Dropped != 0 {
		t.Fatalf("empty exclusion list should keep everything")
	}
}

func TestRunSkipsDisabledAndStopsOnError(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	failing := NewApplied(&stubActions{err: errors.New("db down")}, "u1", nil)
	failing.Disable("requested")
	companies := NewExcludedCompanies([]string{"Little Cabs"}, nil)

	got, err := Run(context.Background(), log, []Filter{failing, companies}, listings())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %v", ids(got))
	}
	if logs.FilterMessage("filter disabled").Len() != 1 || logs.FilterMessage("filter step").Len() != 1 {
		t.Fatalf("unexpected log entries: %v", logs.All())
	}

	statuses := Describe([]Filter{failing, companies})
	if statuses[0].Enabled || statuses[0].Reason != "requested" || !statuses[1].Enabled {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}

	enabled := NewApplied(&stubActions{err: errors.New("db down")}, "u1", nil)
	if _, err := Run(context.Background(), log, []Filter{enabled}, listings()); err == nil {
		t.Fatalf("expected error from failing filter")
	}
}
