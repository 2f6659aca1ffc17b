// Package sqlite is the embedded storage backend used for local runs and
// tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var actionTables = map[model.ActionKind]string{
	model.ActionApplied: "applied_jobs",
	model.ActionSaved:   "saved_jobs",
}

// Store implements storage.Store on top of gorm and SQLite.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open creates the database file if needed and migrates every table.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&jobRow{}, &companyRow{}, &resourceRow{}, &userRow{}, &profileRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}
	for _, table := range actionTables {
		if err := db.Table(table).AutoMigrate(&actionRow{}); err != nil {
			return nil, fmt.Errorf("auto migrate %s: %w", table, err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	s.stamp(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	row := newJobRow(job)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create job", err)
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = s.now().UTC()
	row := newJobRow(job)
	return s.update(ctx, "update job", job.ID, &row)
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var row jobRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get job", err)
	}
	list, err := s.withCompanies(ctx, []jobRow{row})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListJobs returns jobs newest first with company name and website filled in.
func (s *Store) ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []jobRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate("list jobs", err)
	}
	return s.withCompanies(ctx, rows)
}

func (s *Store) withCompanies(ctx context.Context, rows []jobRow) ([]model.Job, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.CompanyID != "" {
			ids = append(ids, r.CompanyID)
		}
	}

	companies := make(map[string]companyRow, len(ids))
	if len(ids) > 0 {
		var found []companyRow
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
			return nil, translate("load job companies", err)
		}
		for _, c := range found {
			companies[c.ID] = c
		}
	}

	out := make([]model.Job, 0, len(rows))
	for _, r := range rows {
		job := r.model()
		if c, ok := companies[r.CompanyID]; ok {
			job.CompanyName = c.Name
			job.Website = c.Website
		}
		out = append(out, job)
	}
	return out, nil
}

func (s *Store) CreateCompany(ctx context.Context, company *model.Company) error {
	s.stamp(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	row := newCompanyRow(company)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create company", err)
	}
	return nil
}

func (s *Store) UpdateCompany(ctx context.Context, company *model.Company) error {
	company.UpdatedAt = s.now().UTC()
	row := newCompanyRow(company)
	return s.update(ctx, "update company", company.ID, &row)
}

func (s *Store) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var row companyRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get company", err)
	}
	c := row.model()
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]model.Company, error) {
	var rows []companyRow
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate("list companies", err)
	}
	out := make([]model.Company, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) CreateResource(ctx context.Context, resource *model.Resource) error {
	s.stamp(&resource.ID, &resource.CreatedAt, &resource.UpdatedAt)
	row := newResourceRow(resource)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create resource", err)
	}
	return nil
}

func (s *Store) UpdateResource(ctx context.Context, resource *model.Resource) error {
	resource.UpdatedAt = s.now().UTC()
	row := newResourceRow(resource)
	return s.update(ctx, "update resource", resource.ID, &row)
}

func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	var row resourceRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get resource", err)
	}
	r := row.model()
	return &r, nil
}

// ListResources filters by type in SQL and by tags in memory since tags are
// stored as a JSON array.
func (s *Store) ListResources(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}

	var rows []resourceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate("list resources", err)
	}

	out := make([]model.Resource, 0, len(rows))
	for _, r := range rows {
		res := r.model()
		if storage.MatchesResourceFilter(res, filter) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	var updated time.Time
	s.stamp(&user.ID, &user.CreatedAt, &updated)
	row := userRow{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create user", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return nil, translate("get user by email", err)
	}
	u := row.model()
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get user", err)
	}
	u := row.model()
	return &u, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var row profileRow
	if err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, translate("get profile", err)
	}
	p := row.model()
	return &p, nil
}

// SaveProfile inserts or fully replaces the profile row.
func (s *Store) SaveProfile(ctx context.Context, profile *model.Profile) error {
	profile.UpdatedAt = s.now().UTC()
	row := newProfileRow(profile)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return translate("save profile", err)
	}
	return nil
}

func (s *Store) AddAction(ctx context.Context, kind model.ActionKind, action *model.JobAction) error {
	table, ok := actionTables[kind]
	if !ok {
		return fmt.Errorf("unknown job action %q", kind)
	}

	var updated time.Time
	s.stamp(&action.ID, &action.CreatedAt, &updated)
	row := actionRow{
		UserID:      action.UserID,
		JobID:       action.JobID,
		Source:      string(action.Source),
		ID:          action.ID,
		Title:       action.Title,
		CompanyName: action.CompanyName,
		URL:         action.URL,
		CreatedAt:   action.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Table(table).Create(&row).Error; err != nil {
		return translate("add "+string(kind)+" job", err)
	}
	return nil
}

func (s *Store) ListActions(ctx context.Context, kind model.ActionKind, userID string) ([]model.JobAction, error) {
	table, ok := actionTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown job action %q", kind)
	}

	var rows []actionRow
	if err := s.db.WithContext(ctx).Table(table).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, translate("list "+string(kind)+" jobs", err)
	}

	out := make([]model.JobAction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) update(ctx context.Context, op string, id string, row any) error {
	if id == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	res := s.db.WithContext(ctx).Model(row).Where("id = ?", id).Select("*").Omit("id", "created_at").Updates(row)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := s.now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
