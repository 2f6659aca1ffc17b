package adzuna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
)

// UserMessage is shown when external jobs could not be loaded.
const UserMessage = "Failed to fetch external jobs. Please try again later."

var ErrNoResults = errors.New("adzuna response has no results array")

// FetchError is the single error a Source returns for any fetch failure.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch adzuna jobs: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch adzuna jobs: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Result is one entry of the Adzuna results array.
type Result struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	RedirectURL  string   `json:"redirect_url"`
	ContractType string   `json:"contract_type"`
	SalaryMin    *float64 `json:"salary_min"`
	SalaryMax    *float64 `json:"salary_max"`
	Company      struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
}

// Listing converts a result to an external listing, filling absent fields
// with jobs.NotAvailable.
func (r Result) Listing() jobs.External {
	salary := jobs.NotAvailable
	if r.SalaryMin != nil && r.SalaryMax != nil {
		salary = formatAmount(*r.SalaryMin) + " - " + formatAmount(*r.SalaryMax)
	}

	return jobs.External{
		Posting: jobs.Posting{
			ID:             strings.TrimSpace(r.ID),
			Title:          orNA(sanitize.Text(r.Title)),
			CompanyName:    orNA(sanitize.Text(r.Company.DisplayName)),
			CompanyWebsite: orNA(strings.TrimSpace(r.RedirectURL)),
			Description:    orNA(sanitize.Text(r.Description)),
			ContractType:   orNA(strings.TrimSpace(r.ContractType)),
			Location:       orNA(sanitize.Text(r.Location.DisplayName)),
			SalaryRange:    salary,
			SourceURL:      strings.TrimSpace(r.RedirectURL),
		},
		Provider: jobs.SourceAdzuna,
	}
}

// Decode reads the results array of an Adzuna search body. Numeric ids and
// amounts sent as strings are accepted.
func Decode(body []byte) ([]Result, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode adzuna body: %w", err)
	}
	items, ok := payload["results"].([]any)
	if !ok {
		return nil, ErrNoResults
	}

	var results []Result
	cfg := &mapstructure.DecoderConfig{
		Result:           &results,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode adzuna results: %w", err)
	}
	return results, nil
}

// Source fetches one page of external listings with a fixed request.
type Source struct {
	searcher Searcher
	request  SearchRequest
	logger   *zap.Logger
}

func NewSource(searcher Searcher, request SearchRequest, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if request.Country == "" {
		request.Country = DefaultCountry
	}
	return &Source{searcher: searcher, request: request, logger: logger}
}

func (s *Source) Fetch(ctx context.Context) ([]jobs.Listing, error) {
	resp, err := s.searcher.Search(ctx, s.request)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, &FetchError{Status: resp.Status, Err: fmt.Errorf("unexpected status")}
	}

	results, err := Decode(resp.Body)
	if err != nil {
		return nil, &FetchError{Status: resp.Status, Err: err}
	}

	listings := make([]jobs.Listing, 0, len(results))
	for _, r := range results {
		l := r.Listing()
		if l.ID == "" {
			s.logger.Debug("skip adzuna result without id", zap.String("title", l.Title))
			continue
		}
		listings = append(listings, l)
	}

	s.logger.Info("external jobs fetched", zap.String("country", s.request.Country), zap.Int("count", len(listings)))
	return listings, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return jobs.NotAvailable
	}
	return s
}
