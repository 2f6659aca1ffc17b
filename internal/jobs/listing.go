// Package jobs defines the listing variants the matcher works with. A listing
// is either Local, backed by a persisted job record, or External, fetched
// from a job-search provider. The variant is chosen where the listing is
// built and never inferred later from field presence.
package jobs

import (
	"encoding/json"
	"strings"
)

// Source tags where a listing, application or saved job came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceAdzuna Source = "adzuna"
)

// NotAvailable fills fields an external provider did not supply.
const NotAvailable = "N/A"

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceLocal || s == SourceAdzuna
}

// Posting holds the fields shared by every listing variant.
type Posting struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CompanyName    string `json:"company_name"`
	CompanyWebsite string `json:"company_website,omitempty"`
	Description    string `json:"description"`
	ContractType   string `json:"contract_type,omitempty"`
	Location       string `json:"location"`
	SalaryRange    string `json:"salary_range,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
}

// Details returns the common fields of a listing.
func (p Posting) Details() Posting { return p }

// Listing is implemented only by Local and External.
type Listing interface {
	Details() Posting
	Source() Source
	HasStableCompanyReference() bool
	isListing()
}

// Local is a listing stored in the job board's own database.
type Local struct {
	Posting
	CompanyID    string   `json:"company_id"`
	Requirements []string `json:"requirements"`
}

func (Local) Source() Source                  { return SourceLocal }
func (Local) HasStableCompanyReference() bool { return true }
func (Local) isListing()                      {}

func (l Local) MarshalJSON() ([]byte, error) {
	type local Local
	return json.Marshal(struct {
		local
		Source Source `json:"source"`
	}{local(l), SourceLocal})
}

// External is a listing returned by a job-search provider.
type External struct {
	Posting
	Provider Source `json:"-"`
}

func (e External) Source() Source {
	if e.Provider == "" {
		return SourceAdzuna
	}
	return e.Provider
}

func (External) HasStableCompanyReference() bool { return false }
func (External) isListing()                      {}

func (e External) MarshalJSON() ([]byte, error) {
	type external External
	return json.Marshal(struct {
		external
		Source Source `json:"source"`
	}{external(e), e.Source()})
}

// Text is the lower-cased title and description used for keyword matching.
func Text(l Listing) string {
	d := l.Details()
	return strings.ToLower(d.Title + " " + d.Description)
}
