// Package catalog manages the public job board records: jobs, companies and
// learning resources.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

var (
	ErrCompanyExists    = errors.New("company already exists")
	ErrCompanyNameTaken = errors.New("company name already exists")
)

type Store interface {
	storage.JobStore
	storage.CompanyStore
	storage.ResourceStore
}

// JobInput carries a create or partial update. Nil fields are left unchanged
// on update.
type JobInput struct {
	Title        *string          `json:"title"`
	CompanyID    *string          `json:"company_id"`
	Description  *string          `json:"description"`
	Requirements []string         `json:"requirements"`
	Location     *string          `json:"location"`
	Salary       *model.Salary    `json:"salary"`
	Type         *model.JobType   `json:"type"`
	Status       *model.JobStatus `json:"status"`
}

type CompanyInput struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Logo        *string            `json:"logo"`
	Website     *string            `json:"website"`
	Industry    *string            `json:"industry"`
	Size        *model.CompanySize `json:"size"`
	Location    *string            `json:"location"`
}

type ResourceInput struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Type        *model.ResourceType `json:"type"`
	URL         *string             `json:"url"`
	Tags        []string            `json:"tags"`
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	return s.store.ListJobs(ctx, filter)
}

func (s *Service) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return s.store.GetJob(ctx, id)
}

func (s *Service) CreateJob(ctx context.Context, in JobInput) (*model.Job, error) {
	job := &model.Job{Status: model.JobStatusActive, Requirements: []string{}}
	in.apply(job)
	if job.Salary.Currency == "" {
		job.Salary.Currency = model.DefaultCurrency
	}
	if err := s.checkJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("job created", zap.String("job_id", job.ID), zap.String("company_id", job.CompanyID))
	return s.store.GetJob(ctx, job.ID)
}

func (s *Service) UpdateJob(ctx context.Context, id string, in JobInput) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(job)
	if job.Salary.Currency == "" {
		job.Salary.Currency = model.DefaultCurrency
	}
	if err := s.checkJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return s.store.GetJob(ctx, id)
}

func (s *Service) checkJob(ctx context.Context, job *model.Job) error {
	if err := validateJob(job); err != nil {
		return err
	}
	if _, err := s.store.GetCompany(ctx, job.CompanyID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ValidationError{Fields: map[string]string{"company_id": "unknown company"}}
		}
		return fmt.Errorf("load company: %w", err)
	}
	return nil
}

func (s *Service) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return s.store.ListCompanies(ctx)
}

func (s *Service) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	return s.store.GetCompany(ctx, id)
}

func (s *Service) CreateCompany(ctx context.Context, in CompanyInput) (*model.Company, error) {
	company := &model.Company{}
	in.apply(company)
	if err := validateCompany(company); err != nil {
		return nil, err
	}

	if err := s.store.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrCompanyExists, err)
		}
		return nil, err
	}
	s.logger.Info("company created", zap.String("company_id", company.ID))
	return company, nil
}

func (s *Service) UpdateCompany(ctx context.Context, id string, in CompanyInput) (*model.Company, error) {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(company)
	if err := validateCompany(company); err != nil {
		return nil, err
	}

	if err := s.store.UpdateCompany(ctx, company); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrCompanyNameTaken, err)
		}
		return nil, err
	}
	return company, nil
}

func (s *Service) ListResources(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"type": "unknown resource type"}}
	}
	filter.Tags = cleanList(filter.Tags)
	return s.store.ListResources(ctx, filter)
}

func (s *Service) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return s.store.GetResource(ctx, id)
}

func (s *Service) CreateResource(ctx context.Context, in ResourceInput) (*model.Resource, error) {
	resource := &model.Resource{Tags: []string{}}
	in.apply(resource)
	if err := validateResource(resource); err != nil {
		return nil, err
	}

	if err := s.store.CreateResource(ctx, resource); err != nil {
		return nil, err
	}
	s.logger.Info("resource created", zap.String("resource_id", resource.ID))
	return resource, nil
}

func (s *Service) UpdateResource(ctx context.Context, id string, in ResourceInput) (*model.Resource, error) {
	resource, err := s.store.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(resource)
	if err := validateResource(resource); err != nil {
		return nil, err
	}

	if err := s.store.UpdateResource(ctx, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (in JobInput) apply(j *model.Job) {
	setText(&j.Title, in.Title)
	setPlain(&j.CompanyID, in.CompanyID)
	setText(&j.Description, in.Description)
	setText(&j.Location, in.Location)
	if in.Requirements != nil {
		j.Requirements = cleanList(sanitize.StripAll(in.Requirements))
	}
	if in.Salary != nil {
		j.Salary = *in.Salary
		j.Salary.Currency = strings.ToUpper(strings.TrimSpace(j.Salary.Currency))
	}
	if in.Type != nil {
		j.Type = *in.Type
	}
	if in.Status != nil {
		j.Status = *in.Status
	}
}

func (in CompanyInput) apply(c *model.Company) {
	setText(&c.Name, in.Name)
	setText(&c.Description, in.Description)
	setPlain(&c.Logo, in.Logo)
	setPlain(&c.Website, in.Website)
	setText(&c.Industry, in.Industry)
	setText(&c.Location, in.Location)
	if in.Size != nil {
		c.Size = *in.Size
	}
}

func (in ResourceInput) apply(r *model.Resource) {
	setText(&r.Title, in.Title)
	setText(&r.Description, in.Description)
	setPlain(&r.URL, in.URL)
	if in.Type != nil {
		r.Type = *in.Type
	}
	if in.Tags != nil {
		r.Tags = cleanList(sanitize.StripAll(in.Tags))
	}
}

// setText stores markup-free text.
func setText(dst *string, v *string) {
	if v != nil {
		*dst = sanitize.Text(*v)
	}
}

func setPlain(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
