// Package storage declares the persistence contract shared by the PostgreSQL
// and SQLite backends.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/kaziconnect/kaziconnect/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	UpdateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error)
}

type CompanyStore interface {
	CreateCompany(ctx context.Context, company *model.Company) error
	UpdateCompany(ctx context.Context, company *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
}

type ResourceStore interface {
	CreateResource(ctx context.Context, resource *model.Resource) error
	UpdateResource(ctx context.Context, resource *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	ListResources(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	SaveProfile(ctx context.Context, profile *model.Profile) error
}

type ActionStore interface {
	AddAction(ctx context.Context, kind model.ActionKind, action *model.JobAction) error
	ListActions(ctx context.Context, kind model.ActionKind, userID string) ([]model.JobAction, error)
}

// Store is implemented by every backend.
type Store interface {
	JobStore
	CompanyStore
	ResourceStore
	UserStore
	ProfileStore
	ActionStore

	Ping(ctx context.Context) error
	Close() error
}

// MatchesResourceFilter applies the type and any-of tag filter in memory.
// Backends without array operators use it after loading rows.
func MatchesResourceFilter(r model.Resource, filter model.ResourceFilter) bool {
	if filter.Type != "" && r.Type != filter.Type {
		return false
	}
	if len(filter.Tags) == 0 {
		return true
	}
	for _, want := range filter.Tags {
		for _, tag := range r.Tags {
			if strings.EqualFold(strings.TrimSpace(tag), strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}
