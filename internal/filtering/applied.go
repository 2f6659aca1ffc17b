package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/model"
)

// ActionLister reads a user's applied or saved jobs.
type ActionLister interface {
	ListActions(ctx context.Context, kind model.ActionKind, userID string) ([]model.JobAction, error)
}

type appliedFilter struct {
	toggle
	actions ActionLister
	userID  string
	logger  *zap.Logger
}

// NewApplied creates a filter that removes listings the user already applied to.
func NewApplied(actions ActionLister, userID string, log *zap.Logger) Filter {
	if log == nil {
		log = zap.NewNop()
	}
	return &appliedFilter{actions: actions, userID: userID, logger: log}
}

func (f *appliedFilter) Name() string { return "applied_history" }

func (f *appliedFilter) Apply(ctx context.Context, listings []jobs.Listing) ([]jobs.Listing, Step, error) {
	if f.actions == nil {
		return nil, Step{}, fmt.Errorf("action store is required")
	}

	applied, err := f.actions.ListActions(ctx, model.ActionApplied, f.userID)
	if err != nil {
		return nil, Step{}, fmt.Errorf("get applied jobs: %w", err)
	}

	seen := make(map[string]struct{}, len(applied))
	for _, a := range applied {
		seen[key(a.Source, a.JobID)] = struct{}{}
	}

	kept, step, dropped := exclude(listings, func(l jobs.Listing) bool {
		_, ok := seen[key(l.Source(), l.Details().ID)]
		return ok
	})
	if len(dropped) > 0 {
		f.logger.Info("excluding jobs based on applications",
			zap.String(logger.FieldUserID, f.userID),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", step.Left),
		)
	}
	return kept, step, nil
}

func key(source jobs.Source, id string) string {
	return string(source) + "/" + id
}
