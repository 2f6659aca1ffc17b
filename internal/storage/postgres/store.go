// Package postgres is the production storage backend built on pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

var actionTables = map[model.ActionKind]string{
	model.ActionApplied: "applied_jobs",
	model.ActionSaved:   "saved_jobs",
}

type Config struct {
	DSN            string
	MaxConns       int32
	ConnectTimeout time.Duration
}

// querier is the subset of pgxpool.Pool used by Store.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	db   querier
	now  func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: p, db: p, now: time.Now}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("nil db")
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const jobColumns = `j.id, j.title, COALESCE(j.company_id, ''), COALESCE(c.name, ''), COALESCE(c.website, ''),
	j.description, j.requirements, j.location, j.salary_min, j.salary_max, j.salary_currency,
	j.type, j.status, j.created_at, j.updated_at`

const jobFrom = ` FROM jobs j LEFT JOIN companies c ON c.id = j.company_id`

func scanJob(row pgx.Row) (model.Job, error) {
	var j model.Job
	var typ, status string
	err := row.Scan(&j.ID, &j.Title, &j.CompanyID, &j.CompanyName, &j.Website,
		&j.Description, &j.Requirements, &j.Location, &j.Salary.Min, &j.Salary.Max, &j.Salary.Currency,
		&typ, &status, &j.CreatedAt, &j.UpdatedAt)
	j.Type = model.JobType(typ)
	j.Status = model.JobStatus(status)
	return j, err
}

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	s.stamp(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	_, err := s.db.Exec(ctx, `INSERT INTO jobs (id, title, company_id, description, requirements, location,
		salary_min, salary_max, salary_currency, type, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.Title, job.CompanyID, job.Description, nonNil(job.Requirements), job.Location,
		job.Salary.Min, job.Salary.Max, job.Salary.Currency, string(job.Type), string(job.Status), job.CreatedAt, job.UpdatedAt)
	return translate("create job", err)
}

func (s *Store) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = s.now().UTC()
	tag, err := s.db.Exec(ctx, `UPDATE jobs SET title = $2, company_id = NULLIF($3, ''), description = $4,
		requirements = $5, location = $6, salary_min = $7, salary_max = $8, salary_currency = $9,
		type = $10, status = $11, updated_at = $12 WHERE id = $1`,
		job.ID, job.Title, job.CompanyID, job.Description, nonNil(job.Requirements), job.Location,
		job.Salary.Min, job.Salary.Max, job.Salary.Currency, string(job.Type), string(job.Status), job.UpdatedAt)
	return affected("update job", tag, err)
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	j, err := scanJob(s.db.QueryRow(ctx, `SELECT `+jobColumns+jobFrom+` WHERE j.id = $1`, id))
	if err != nil {
		return nil, translate("get job", err)
	}
	return &j, nil
}

func (s *Store) ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + jobFrom
	var args []any
	if filter.Status != "" {
		query += ` WHERE j.status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY j.created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list jobs", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, translate("scan job", err)
		}
		out = append(out, j)
	}
	return out, translate("list jobs", rows.Err())
}

const companyColumns = `id, name, description, logo, website, industry, size, location, created_at, updated_at`

func scanCompany(row pgx.Row) (model.Company, error) {
	var c model.Company
	var size string
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Logo, &c.Website, &c.Industry, &size, &c.Location, &c.CreatedAt, &c.UpdatedAt)
	c.Size = model.CompanySize(size)
	return c, err
}

func (s *Store) CreateCompany(ctx context.Context, company *model.Company) error {
	s.stamp(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	_, err := s.db.Exec(ctx, `INSERT INTO companies (`+companyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		company.ID, company.Name, company.Description, company.Logo, company.Website, company.Industry,
		string(company.Size), company.Location, company.CreatedAt, company.UpdatedAt)
	return translate("create company", err)
}

func (s *Store) UpdateCompany(ctx context.Context, company *model.Company) error {
	company.UpdatedAt = s.now().UTC()
	tag, err := s.db.Exec(ctx, `UPDATE companies SET name = $2, description = $3, logo = $4, website = $5,
		industry = $6, size = $7, location = $8, updated_at = $9 WHERE id = $1`,
		company.ID, company.Name, company.Description, company.Logo, company.Website, company.Industry,
		string(company.Size), company.Location, company.UpdatedAt)
	return affected("update company", tag, err)
}

func (s *Store) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	c, err := scanCompany(s.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get company", err)
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, translate("list companies", err)
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, translate("scan company", err)
		}
		out = append(out, c)
	}
	return out, translate("list companies", rows.Err())
}

const resourceColumns = `id, title, description, type, url, tags, created_at, updated_at`

func scanResource(row pgx.Row) (model.Resource, error) {
	var r model.Resource
	var typ string
	err := row.Scan(&r.ID, &r.Title, &r.Description, &typ, &r.URL, &r.Tags, &r.CreatedAt, &r.UpdatedAt)
	r.Type = model.ResourceType(typ)
	return r, err
}

func (s *Store) CreateResource(ctx context.Context, resource *model.Resource) error {
	s.stamp(&resource.ID, &resource.CreatedAt, &resource.UpdatedAt)
	_, err := s.db.Exec(ctx, `INSERT INTO resources (`+resourceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		resource.ID, resource.Title, resource.Description, string(resource.Type), resource.URL,
		nonNil(resource.Tags), resource.CreatedAt, resource.UpdatedAt)
	return translate("create resource", err)
}

func (s *Store) UpdateResource(ctx context.Context, resource *model.Resource) error {
	resource.UpdatedAt = s.now().UTC()
	tag, err := s.db.Exec(ctx, `UPDATE resources SET title = $2, description = $3, type = $4, url = $5,
		tags = $6, updated_at = $7 WHERE id = $1`,
		resource.ID, resource.Title, resource.Description, string(resource.Type), resource.URL,
		nonNil(resource.Tags), resource.UpdatedAt)
	return affected("update resource", tag, err)
}

func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	r, err := scanResource(s.db.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get resource", err)
	}
	return &r, nil
}

func (s *Store) ListResources(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, error) {
	query, args := resourceQuery(filter)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list resources", err)
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, translate("scan resource", err)
		}
		out = append(out, r)
	}
	return out, translate("list resources", rows.Err())
}

// resourceQuery filters by type and by any-of tags using the array overlap
// operator.
func resourceQuery(filter model.ResourceFilter) (string, []any) {
	var where []string
	var args []any
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		tags := make([]string, 0, len(filter.Tags))
		for _, t := range filter.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) > 0 {
			args = append(args, tags)
			where = append(where, fmt.Sprintf("ARRAY(SELECT lower(t) FROM unnest(tags) t) && $%d", len(args)))
		}
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + ` ORDER BY created_at DESC`, args
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	var updated time.Time
	s.stamp(&user.ID, &user.CreatedAt, &updated)
	_, err := s.db.Exec(ctx, `INSERT INTO users (id, email, name, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.CreatedAt)
	return translate("create user", err)
}

func (s *Store) getUser(ctx context.Context, op, where string, arg any) (*model.User, error) {
	var u model.User
	var role string
	err := s.db.QueryRow(ctx, `SELECT id, email, name, role, password_hash, created_at FROM users WHERE `+where+` = $1`, arg).
		Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(op, err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "get user by email", "email", email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "get user", "id", id)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRow(ctx, `SELECT user_id, full_name, bio, resume_text, skills, avatar_url, cv_url,
		linkedin, github, twitter, website, updated_at FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.FullName, &p.Bio, &p.ResumeText, &p.Skills, &p.AvatarURL, &p.CVURL,
			&p.LinkedIn, &p.GitHub, &p.Twitter, &p.Website, &p.UpdatedAt)
	if err != nil {
		return nil, translate("get profile", err)
	}
	return &p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = s.now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO profiles (user_id, full_name, bio, resume_text, skills, avatar_url,
		cv_url, linkedin, github, twitter, website, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET full_name = EXCLUDED.full_name, bio = EXCLUDED.bio,
		resume_text = EXCLUDED.resume_text, skills = EXCLUDED.skills, avatar_url = EXCLUDED.avatar_url,
		cv_url = EXCLUDED.cv_url, linkedin = EXCLUDED.linkedin, github = EXCLUDED.github,
		twitter = EXCLUDED.twitter, website = EXCLUDED.website, updated_at = EXCLUDED.updated_at`,
		p.UserID, p.FullName, p.Bio, p.ResumeText, nonNil(p.Skills), p.AvatarURL, p.CVURL,
		p.LinkedIn, p.GitHub, p.Twitter, p.Website, p.UpdatedAt)
	return translate("save profile", err)
}

func (s *Store) AddAction(ctx context.Context, kind model.ActionKind, a *model.JobAction) error {
	table, ok := actionTables[kind]
	if !ok {
		return fmt.Errorf("unknown job action %q", kind)
	}

	var updated time.Time
	s.stamp(&a.ID, &a.CreatedAt, &updated)
	_, err := s.db.Exec(ctx, `INSERT INTO `+table+` (id, user_id, job_id, source, title, company_name, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.JobID, string(a.Source), a.Title, a.CompanyName, a.URL, a.CreatedAt)
	return translate("add "+string(kind)+" job", err)
}

func (s *Store) ListActions(ctx context.Context, kind model.ActionKind, userID string) ([]model.JobAction, error) {
	table, ok := actionTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown job action %q", kind)
	}

	rows, err := s.db.Query(ctx, `SELECT id, user_id, job_id, source, title, company_name, url, created_at
		FROM `+table+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, translate("list "+string(kind)+" jobs", err)
	}
	defer rows.Close()

	var out []model.JobAction
	for rows.Next() {
		var a model.JobAction
		var source string
		if err := rows.Scan(&a.ID, &a.UserID, &a.JobID, &source, &a.Title, &a.CompanyName, &a.URL, &a.CreatedAt); err != nil {
			return nil, translate("scan "+string(kind)+" job", err)
		}
		a.Source = jobs.Source(source)
		out = append(out, a)
	}
	return out, translate("list "+string(kind)+" jobs", rows.Err())
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

func affected(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
