package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
)

type companiesFilter struct {
	toggle
	companies map[string]struct{}
	logger    *zap.Logger
}

// NewExcludedCompanies creates a filter that removes listings by company
// name, compared case-insensitively.
func NewExcludedCompanies(names []string, log *zap.Logger) Filter {
	if log == nil {
		log = zap.NewNop()
	}
	companies := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			companies[n] = struct{}{}
		}
	}
	return &companiesFilter{companies: companies, logger: log}
}

func (f *companiesFilter) Name() string { return "excluded_companies" }

func (f *companiesFilter) Apply(_ context.Context, listings []jobs.Listing) ([]jobs.Listing, Step, error) {
	if len(f.companies) == 0 {
		return listings, Step{Initial: len(listings), Left: len(listings)}, nil
	}

	kept, step, dropped := exclude(listings, func(l jobs.Listing) bool {
		_, ok := f.companies[strings.ToLower(strings.TrimSpace(l.Details().CompanyName))]
		return ok
	})
	if len(dropped) > 0 {
		f.logger.Info("excluding jobs by company",
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", step.Left),
		)
	}
	return kept, step, nil
}
