// Package filtering narrows the candidate listings of a match run before they
// are scored.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
)

// Filter represents a single filtering step applied to listings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, listings []jobs.Listing) ([]jobs.Listing, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
}

// Run executes the filters in order. A failing filter stops the run.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, listings []jobs.Listing) ([]jobs.Listing, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, listings)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		listings = next
	}
	return listings, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		s := Status{Name: step.Name(), Enabled: step.IsEnabled()}
		if r, ok := step.(interface{ reason() string }); ok {
			s.Reason = r.reason()
		}
		statuses = append(statuses, s)
	}
	return statuses
}

// exclude keeps the listings for which drop returns false.
func exclude(listings []jobs.Listing, drop func(jobs.Listing) bool) ([]jobs.Listing, Step, []string) {
	kept := make([]jobs.Listing, 0, len(listings))
	var dropped []string
	for _, l := range listings {
		if drop(l) {
			dropped = append(dropped, l.Details().ID)
			continue
		}
		kept = append(kept, l)
	}
	return kept, Step{Initial: len(listings), Dropped: len(dropped), Left: len(kept)}, dropped
}

type toggle struct {
	disabled bool
	why      string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.why = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) reason() string { return t.why }
