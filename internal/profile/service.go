// Package profile owns the user profile and the user's applied and saved
// jobs.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/logger"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/resume"
	"github.com/kaziconnect/kaziconnect/internal/sanitize"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

var ErrInvalidInput = errors.New("invalid profile input")

type Store interface {
	storage.ProfileStore
	storage.ActionStore
	storage.JobStore
}

// Input is a partial profile update. Nil fields are left unchanged.
type Input struct {
	FullName   *string  `json:"full_name"`
	Bio        *string  `json:"bio"`
	ResumeText *string  `json:"resume_text"`
	Skills     []string `json:"skills"`
	AvatarURL  *string  `json:"avatar_url"`
	CVURL      *string  `json:"cv_url"`
	LinkedIn   *string  `json:"linkedin"`
	GitHub     *string  `json:"github"`
	Twitter    *string  `json:"twitter"`
	Website    *string  `json:"website"`
}

// ActionInput describes a job to apply to or save.
type ActionInput struct {
	JobID       string      `json:"job_id"`
	Source      jobs.Source `json:"source"`
	Title       string      `json:"title"`
	CompanyName string      `json:"company_name"`
	URL         string      `json:"url"`
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, logger: log}
}

// Get returns the stored profile or an empty one when the user has none yet.
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &model.Profile{UserID: userID, Skills: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, userID string, in Input) (*model.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	setText(&p.FullName, in.FullName)
	setText(&p.Bio, in.Bio)
	if in.ResumeText != nil {
		p.ResumeText = sanitize.Input(*in.ResumeText)
	}
	if in.Skills != nil {
		p.Skills = resume.MergeSkills(nil, sanitize.StripAll(in.Skills))
	}
	for _, f := range []struct {
		dst *string
		src *string
	}{
		{&p.AvatarURL, in.AvatarURL},
		{&p.CVURL, in.CVURL},
		{&p.LinkedIn, in.LinkedIn},
		{&p.GitHub, in.GitHub},
		{&p.Twitter, in.Twitter},
		{&p.Website, in.Website},
	} {
		if f.src != nil {
			*f.dst = strings.TrimSpace(*f.src)
		}
	}

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddSkills merges skills into the profile. Skills already present, in any
// letter case, are not added again.
func (s *Service) AddSkills(ctx context.Context, userID string, skills []string) (*model.Profile, error) {
	cleaned := sanitize.StripAll(skills)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no skills given", ErrInvalidInput)
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := resume.MergeSkills(p.Skills, cleaned)
	if len(merged) == len(p.Skills) {
		return p, nil
	}
	p.Skills = merged
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("skills added", zap.String(logger.FieldUserID, userID), zap.Int("skills", len(merged)))
	return p, nil
}

func (s *Service) RemoveSkill(ctx context.Context, userID, skill string) (*model.Profile, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil, fmt.Errorf("%w: empty skill", ErrInvalidInput)
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(p.Skills))
	for _, existing := range p.Skills {
		if !strings.EqualFold(existing, skill) {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(p.Skills) {
		return p, nil
	}
	p.Skills = kept
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AppendStrengths adds strengths to the end of the bio.
func (s *Service) AppendStrengths(ctx context.Context, userID string, strengths []string) (*model.Profile, error) {
	cleaned := sanitize.StripAll(strengths)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no strengths given", ErrInvalidInput)
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Bio = resume.StrengthsToBio(p.Bio, cleaned)
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply records an application. Local jobs must exist and their stored title
// and company are used.
func (s *Service) Apply(ctx context.Context, userID string, in ActionInput) (*model.JobAction, error) {
	return s.record(ctx, model.ActionApplied, userID, in)
}

func (s *Service) Save(ctx context.Context, userID string, in ActionInput) (*model.JobAction, error) {
	return s.record(ctx, model.ActionSaved, userID, in)
}

// ApplyListing and SaveListing record an action on a listing produced by the
// match flow.
func (s *Service) ApplyListing(ctx context.Context, userID string, l jobs.Listing) (*model.JobAction, error) {
	return s.recordListing(ctx, model.ActionApplied, userID, l)
}

func (s *Service) SaveListing(ctx context.Context, userID string, l jobs.Listing) (*model.JobAction, error) {
	return s.recordListing(ctx, model.ActionSaved, userID, l)
}

func (s *Service) Applications(ctx context.Context, userID string) ([]model.JobAction, error) {
	return s.list(ctx, model.ActionApplied, userID)
}

func (s *Service) SavedJobs(ctx context.Context, userID string) ([]model.JobAction, error) {
	return s.list(ctx, model.ActionSaved, userID)
}

func (s *Service) list(ctx context.Context, kind model.ActionKind, userID string) ([]model.JobAction, error) {
	actions, err := s.store.ListActions(ctx, kind, userID)
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []model.JobAction{}
	}
	return actions, nil
}

func (s *Service) record(ctx context.Context, kind model.ActionKind, userID string, in ActionInput) (*model.JobAction, error) {
	in.JobID = strings.TrimSpace(in.JobID)
	if in.JobID == "" {
		return nil, fmt.Errorf("%w: job_id is required", ErrInvalidInput)
	}
	if in.Source == "" {
		in.Source = jobs.SourceLocal
	}
	if !in.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, in.Source)
	}

	action := model.JobAction{
		UserID:      userID,
		JobID:       in.JobID,
		Source:      in.Source,
		Title:       sanitize.Text(in.Title),
		CompanyName: sanitize.Text(in.CompanyName),
		URL:         strings.TrimSpace(in.URL),
	}

	if in.Source == jobs.SourceLocal {
		job, err := s.store.GetJob(ctx, in.JobID)
		if err != nil {
			return nil, err
		}
		action = model.ActionFor(userID, job.Listing())
	}

	return s.add(ctx, kind, &action)
}

func (s *Service) recordListing(ctx context.Context, kind model.ActionKind, userID string, l jobs.Listing) (*model.JobAction, error) {
	action := model.ActionFor(userID, l)
	if action.JobID == "" {
		return nil, fmt.Errorf("%w: listing has no id", ErrInvalidInput)
	}
	return s.add(ctx, kind, &action)
}

func (s *Service) add(ctx context.Context, kind model.ActionKind, action *model.JobAction) (*model.JobAction, error) {
	if err := s.store.AddAction(ctx, kind, action); err != nil {
		return nil, err
	}
	s.logger.Info("job "+string(kind),
		append(logger.JobFields(action.JobID, string(action.Source)), zap.String(logger.FieldUserID, action.UserID))...,
	)
	return action, nil
}

// Completion scores how complete a profile is, from 0 to 100.
func Completion(p model.Profile) int {
	checks := []bool{
		strings.TrimSpace(p.FullName) != "",
		len(p.Skills) > 0,
		strings.TrimSpace(p.CVURL) != "",
		strings.TrimSpace(p.AvatarURL) != "",
		strings.TrimSpace(p.Bio) != "",
		p.LinkedIn != "" || p.GitHub != "" || p.Twitter != "" || p.Website != "",
	}

	score := 0
	for _, ok := range checks {
		if ok {
			score += 15
		}
	}
	if score > 0 {
		score += 10
	}
	return min(score, 100)
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = sanitize.Text(*v)
	}
}
