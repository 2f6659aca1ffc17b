// Package model holds the persisted entities of the job board.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
)

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

type JobStatus string

const (
	JobStatusActive JobStatus = "active"
	JobStatusClosed JobStatus = "closed"
)

func (s JobStatus) Valid() bool {
	return s == JobStatusActive || s == JobStatusClosed
}

// CompanySize is one of the head count bands in the Company validate tag.
type CompanySize string

type ResourceType string

const (
	ResourceArticle ResourceType = "article"
	ResourceVideo   ResourceType = "video"
	ResourceCourse  ResourceType = "course"
	ResourceBook    ResourceType = "book"
	ResourceTool    ResourceType = "tool"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceArticle, ResourceVideo, ResourceCourse, ResourceBook, ResourceTool:
		return true
	}
	return false
}

const DefaultCurrency = "KES"

type Salary struct {
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// Range renders the salary as "CUR min - max", or an empty string when
// either bound is missing.
func (s Salary) Range() string {
	if s.Min <= 0 || s.Max <= 0 {
		return ""
	}
	currency := s.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("%s %.0f - %.0f", currency, s.Min, s.Max)
}

type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title" validate:"required"`
	CompanyID    string    `json:"company_id" validate:"required"`
	CompanyName  string    `json:"company_name,omitempty"`
	Website      string    `json:"company_website,omitempty"`
	Description  string    `json:"description" validate:"required"`
	Requirements []string  `json:"requirements"`
	Location     string    `json:"location" validate:"required"`
	Salary       Salary    `json:"salary"`
	Type         JobType   `json:"type" validate:"oneof=full-time part-time contract internship"`
	Status       JobStatus `json:"status" validate:"oneof=active closed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Listing converts a stored job into a matchable local listing.
func (j Job) Listing() jobs.Local {
	return jobs.Local{
		Posting: jobs.Posting{
			ID:             j.ID,
			Title:          j.Title,
			CompanyName:    j.CompanyName,
			CompanyWebsite: j.Website,
			Description:    j.Description,
			ContractType:   string(j.Type),
			Location:       j.Location,
			SalaryRange:    j.Salary.Range(),
		},
		CompanyID:    j.CompanyID,
		Requirements: j.Requirements,
	}
}

type Company struct {
	ID          string      `json:"id"`
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description,omitempty" validate:"required"`
	Logo        string      `json:"logo,omitempty"`
	Website     string      `json:"website,omitempty" validate:"omitempty,http_url"`
	Industry    string      `json:"industry,omitempty" validate:"required"`
	Size        CompanySize `json:"size,omitempty" validate:"oneof=1-10 11-50 51-200 201-500 501-1000 1000+"`
	Location    string      `json:"location,omitempty" validate:"required"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Resource struct {
	ID          string       `json:"id"`
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description,omitempty" validate:"required"`
	Type        ResourceType `json:"type" validate:"oneof=article video course book tool"`
	URL         string       `json:"url" validate:"required,http_url"`
	Tags        []string     `json:"tags"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	UserID     string    `json:"user_id"`
	FullName   string    `json:"full_name"`
	Bio        string    `json:"bio"`
	ResumeText string    `json:"resume_text,omitempty"`
	Skills     []string  `json:"skills"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CVURL      string    `json:"cv_url,omitempty"`
	LinkedIn   string    `json:"linkedin,omitempty"`
	GitHub     string    `json:"github,omitempty"`
	Twitter    string    `json:"twitter,omitempty"`
	Website    string    `json:"website,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasResume reports whether AI matching can use the profile's résumé text.
func (p Profile) HasResume() bool {
	return strings.TrimSpace(p.ResumeText) != ""
}

// ActionKind separates applications from saved jobs.
type ActionKind string

const (
	ActionApplied ActionKind = "applied"
	ActionSaved   ActionKind = "saved"
)

// JobAction records an application or a bookmark on a local or external
// listing.
type JobAction struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	JobID       string      `json:"job_id"`
	Source      jobs.Source `json:"source"`
	Title       string      `json:"title"`
	CompanyName string      `json:"company_name,omitempty"`
	URL         string      `json:"url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ActionFor builds a JobAction from a listing.
func ActionFor(userID string, l jobs.Listing) JobAction {
	d := l.Details()
	return JobAction{
		UserID:      userID,
		JobID:       d.ID,
		Source:      l.Source(),
		Title:       d.Title,
		CompanyName: d.CompanyName,
		URL:         d.SourceURL,
	}
}

type JobFilter struct {
	Status JobStatus
}

type ResourceFilter struct {
	Type ResourceType
	Tags []string
}
