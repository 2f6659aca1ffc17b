package sqlite

import (
	"time"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/model"

	"gorm.io/datatypes"
)

type jobRow struct {
	ID             string `gorm:"primaryKey"`
	Title          string
	CompanyID      string `gorm:"index"`
	Description    string
	Requirements   datatypes.JSONSlice[string]
	Location       string
	SalaryMin      float64
	SalaryMax      float64
	SalaryCurrency string
	Type           string
	Status         string `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (jobRow) TableName() string { return "jobs" }

func newJobRow(j *model.Job) jobRow {
	return jobRow{
		ID:             j.ID,
		Title:          j.Title,
		CompanyID:      j.CompanyID,
		Description:    j.Description,
		Requirements:   datatypes.NewJSONSlice(nonNil(j.Requirements)),
		Location:       j.Location,
		SalaryMin:      j.Salary.Min,
		SalaryMax:      j.Salary.Max,
		SalaryCurrency: j.Salary.Currency,
		Type:           string(j.Type),
		Status:         string(j.Status),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

func (r jobRow) model() model.Job {
	return model.Job{
		ID:           r.ID,
		Title:        r.Title,
		CompanyID:    r.CompanyID,
		Description:  r.Description,
		Requirements: nonNil(r.Requirements),
		Location:     r.Location,
		Salary:       model.Salary{Min: r.SalaryMin, Max: r.SalaryMax, Currency: r.SalaryCurrency},
		Type:         model.JobType(r.Type),
		Status:       model.JobStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type companyRow struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	Description string
	Logo        string
	Website     string
	Industry    string
	Size        string
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (companyRow) TableName() string { return "companies" }

func newCompanyRow(c *model.Company) companyRow {
	return companyRow{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Logo:        c.Logo,
		Website:     c.Website,
		Industry:    c.Industry,
		Size:        string(c.Size),
		Location:    c.Location,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (r companyRow) model() model.Company {
	return model.Company{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Logo:        r.Logo,
		Website:     r.Website,
		Industry:    r.Industry,
		Size:        model.CompanySize(r.Size),
		Location:    r.Location,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type resourceRow struct {
	ID          string `gorm:"primaryKey"`
	Title       string
	Description string
	Type        string `gorm:"index"`
	URL         string
	Tags        datatypes.JSONSlice[string]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (resourceRow) TableName() string { return "resources" }

func newResourceRow(r *model.Resource) resourceRow {
	return resourceRow{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        string(r.Type),
		URL:         r.URL,
		Tags:        datatypes.NewJSONSlice(nonNil(r.Tags)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r resourceRow) model() model.Resource {
	return model.Resource{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        model.ResourceType(r.Type),
		URL:         r.URL,
		Tags:        nonNil(r.Tags),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type userRow struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex"`
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) model() model.User {
	return model.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         model.Role(r.Role),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

type profileRow struct {
	UserID     string `gorm:"primaryKey"`
	FullName   string
	Bio        string
	ResumeText string
	Skills     datatypes.JSONSlice[string]
	AvatarURL  string
	CVURL      string
	LinkedIn   string
	GitHub     string
	Twitter    string
	Website    string
	UpdatedAt  time.Time
}

func (profileRow) TableName() string { return "profiles" }

func newProfileRow(p *model.Profile) profileRow {
	return profileRow{
		UserID:     p.UserID,
		FullName:   p.FullName,
		Bio:        p.Bio,
		ResumeText: p.ResumeText,
		Skills:     datatypes.NewJSONSlice(nonNil(p.Skills)),
		AvatarURL:  p.AvatarURL,
		CVURL:      p.CVURL,
		LinkedIn:   p.LinkedIn,
		GitHub:     p.GitHub,
		Twitter:    p.Twitter,
		Website:    p.Website,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (r profileRow) model() model.Profile {
	return model.Profile{
		UserID:     r.UserID,
		FullName:   r.FullName,
		Bio:        r.Bio,
		ResumeText: r.ResumeText,
		Skills:     nonNil(r.Skills),
		AvatarURL:  r.AvatarURL,
		CVURL:      r.CVURL,
		LinkedIn:   r.LinkedIn,
		GitHub:     r.GitHub,
		Twitter:    r.Twitter,
		Website:    r.Website,
		UpdatedAt:  r.UpdatedAt,
	}
}

// actionRow backs both applied_jobs and saved_jobs.
type actionRow struct {
	UserID      string `gorm:"primaryKey"`
	JobID       string `gorm:"primaryKey"`
	Source      string `gorm:"primaryKey"`
	ID          string
	Title       string
	CompanyName string
	URL         string
	CreatedAt   time.Time
}

func (r actionRow) model() model.JobAction {
	return model.JobAction{
		ID:          r.ID,
		UserID:      r.UserID,
		JobID:       r.JobID,
		Source:      jobs.Source(r.Source),
		Title:       r.Title,
		CompanyName: r.CompanyName,
		URL:         r.URL,
		CreatedAt:   r.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
