package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/filtering"
	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

// Fetcher loads external listings. *adzuna.Source implements it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]jobs.Listing, error)
}

type Store interface {
	storage.ProfileStore
	storage.JobStore
	storage.ActionStore
}

type Options struct {
	IncludeLocal     bool
	IncludeExternal  bool
	IncludeApplied   bool
	ExcludeCompanies []string
}

type Service struct {
	store    Store
	external Fetcher
	scorer   *Scorer
	opts     Options
	logger   *zap.Logger
}

// NewService wires a match run. external may be nil when no job search
// provider is configured.
func NewService(store Store, external Fetcher, scorer *Scorer, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, external: external, scorer: scorer, opts: opts, logger: log}
}

// Run scores the active local jobs and the external listings for a user. An
// external fetch failure fails the whole run.
func (s *Service) Run(ctx context.Context, userID string) ([]Result, error) {
	log := s.logger.With(zap.String(logger.FieldUserID, userID))

	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		profile = &model.Profile{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var listings []jobs.Listing
	if s.opts.IncludeLocal {
		local, err := s.store.ListJobs(ctx, model.JobFilter{Status: model.JobStatusActive})
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		for _, j := range local {
			listings = append(listings, j.Listing())
		}
	}
	if s.opts.IncludeExternal && s.external != nil {
		external, err := s.external.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		listings = append(listings, external...)
	}

	listings, err = filtering.Run(ctx, log, s.filters(userID, log), listings)
	if err != nil {
		return nil, err
	}

	log.Info("scoring jobs", zap.Int("jobs", len(listings)), zap.Bool("has_resume", profile.HasResume()))
	results := s.scorer.Score(ctx, *profile, listings)
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// Filters reports which filters a run for userID applies.
func (s *Service) Filters(userID string) []filtering.Status {
	return filtering.Describe(s.filters(userID, s.logger))
}

func (s *Service) filters(userID string, log *zap.Logger) []filtering.Filter {
	applied := filtering.NewApplied(s.store, userID, log)
	if s.opts.IncludeApplied {
		applied.Disable("applied jobs included by configuration")
	}
	return []filtering.Filter{
		applied,
		filtering.NewExcludedCompanies(s.opts.ExcludeCompanies, log),
	}
}

// Listings returns the jobs of results in ranked order.
func Listings(results []Result) []jobs.Listing {
	out := make([]jobs.Listing, 0, len(results))
	for _, r := range results {
		out = append(out, r.Job)
	}
	return out
}

// DumpToTmpFile writes results as indented JSON to a new temporary file and
// returns its path.
func DumpToTmpFile(results []Result) (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", err
	}
	return file.Name(), nil
}
