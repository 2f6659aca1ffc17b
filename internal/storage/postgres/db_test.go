package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kaziconnect/kaziconnect/internal/jobs"
	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

type call struct {
	sql  string
	args []any
}

// fakeDB answers every statement with the configured results.
type fakeDB struct {
	calls   []call
	tag     pgconn.CommandTag
	execErr error
	row     []any
	rowErr  error
	rows    [][]any
	rowsErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return f.tag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return fakeRow{values: f.row, err: f.rowErr}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx], nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.rows[r.idx])
}

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: %s into %s", i, v.Type(), target.Type())
		}
		target.Set(v)
	}
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newFakeStore(db *fakeDB) *Store {
	return &Store{db: db, now: func() time.Time { return fixedNow }}
}

func TestCreateJobStampsAndNormalizes(t *testing.T) {
	t.Parallel()

	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	s := newFakeStore(db)

	job := &model.Job{Title: "Go Engineer", Type: model.JobTypeFullTime, Status: model.JobStatusActive}
	if err := s.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}

	if _, err := uuid.Parse(job.ID); err != nil {
		t.Fatalf("expected a generated uuid, got %q", job.ID)
	}
	if !job.CreatedAt.Equal(fixedNow) || !job.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected timestamps from the clock, got %v %v", job.CreatedAt, job.UpdatedAt)
	}

	c := db.calls[0]
	if !strings.HasPrefix(c.sql, "INSERT INTO jobs") || !strings.Contains(c.sql, "NULLIF($3, '')") {
		t.Fatalf("unexpected statement: %s", c.sql)
	}
	if reqs, ok := c.args[4].([]string); !ok || reqs == nil {
		t.Fatalf("requirements must be a non-nil array, got %#v", c.args[4])
	}
	if c.args[9] != "full-time" || c.args[10] != "active" {
		t.Fatalf("enums must be sent as text, got %#v %#v", c.args[9], c.args[10])
	}
}

func TestStoreTranslatesDriverErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		name string
		db   *fakeDB
		run  func(s *Store) error
		want error
	}{
		{
			name: "duplicate company",
			db:   &fakeDB{execErr: &pgconn.PgError{Code: uniqueViolation}},
			run:  func(s *Store) error { return s.CreateCompany(ctx, &model.Company{Name: "Pesa Labs"}) },
			want: storage.ErrDuplicate,
		},
		{
			name: "duplicate applied job",
			db:   &fakeDB{execErr: &pgconn.PgError{Code: uniqueViolation}},
			run: func(s *Store) error {
				return s.AddAction(ctx, model.ActionApplied, &model.JobAction{UserID: "u1", JobID: "j1", Source: jobs.SourceLocal})
			},
			want: storage.ErrDuplicate,
		},
		{
			name: "update missing job",
			db:   &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")},
			run:  func(s *Store) error { return s.UpdateJob(ctx, &model.Job{ID: "missing"}) },
			want: storage.ErrNotFound,
		},
		{
			name: "update missing resource",
			db:   &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")},
			run:  func(s *Store) error { return s.UpdateResource(ctx, &model.Resource{ID: "missing"}) },
			want: storage.ErrNotFound,
		},
		{
			name: "get missing job",
			db:   &fakeDB{rowErr: pgx.ErrNoRows},
			run: func(s *Store) error {
				_, err := s.GetJob(ctx, "missing")
				return err
			},
			want: storage.ErrNotFound,
		},
		{
			name: "get missing user",
			db:   &fakeDB{rowErr: pgx.ErrNoRows},
			run: func(s *Store) error {
				_, err := s.GetUserByEmail(ctx, "nobody@example.com")
				return err
			},
			want: storage.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := tt.run(newFakeStore(tt.db)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetJobScansJoinedCompany(t *testing.T) {
	t.Parallel()

	db := &fakeDB{row: []any{
		"j1", "Go Engineer", "c1", "Twiga Foods", "https://twiga.com",
		"Logistics APIs", []string{"Go", "SQL"}, "Nairobi", 100000.0, 200000.0, "KES",
		"contract", "closed", fixedNow, fixedNow,
	}}

	job, err := newFakeStore(db).GetJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.CompanyName != "Twiga Foods" || job.Type != model.JobTypeContract || job.Status != model.JobStatusClosed {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Salary.Range() != "KES 100000 - 200000" {
		t.Fatalf("unexpected salary: %+v", job.Salary)
	}
	if c := db.calls[0]; !strings.Contains(c.sql, "LEFT JOIN companies") || c.args[0] != "j1" {
		t.Fatalf("unexpected query: %s %v", c.sql, c.args)
	}
}

func TestListJobsFiltersByStatus(t *testing.T) {
	t.Parallel()

	row := func(id string) []any {
		return []any{id, "t", "", "", "", "d", []string{}, "l", 0.0, 0.0, "KES", "full-time", "active", fixedNow, fixedNow}
	}
	db := &fakeDB{rows: [][]any{row("j1"), row("j2")}}

	list, err := newFakeStore(db).ListJobs(context.Background(), model.JobFilter{Status: model.JobStatusActive})
	if err != nil {
		t.Fatalf("ListJobs error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "j1" || list[1].ID != "j2" {
		t.Fatalf("unexpected jobs: %+v", list)
	}
	c := db.calls[0]
	if !strings.Contains(c.sql, "WHERE j.status = $1") || len(c.args) != 1 || c.args[0] != "active" {
		t.Fatalf("unexpected query: %s %v", c.sql, c.args)
	}

	db = &fakeDB{rowsErr: errors.New("connection reset")}
	if _, err := newFakeStore(db).ListJobs(context.Background(), model.JobFilter{}); err == nil || !strings.HasPrefix(err.Error(), "list jobs: ") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if strings.Contains(db.calls[0].sql, "WHERE") {
		t.Fatalf("unfiltered list must not filter: %s", db.calls[0].sql)
	}
}

func TestActionsUseKindTable(t *testing.T) {
	t.Parallel()

	db := &fakeDB{rows: [][]any{{"a1", "u1", "ext-1", "adzuna", "Barista", "Java House", "https://adzuna/1", fixedNow}}}
	s := newFakeStore(db)

	list, err := s.ListActions(context.Background(), model.ActionSaved, "u1")
	if err != nil {
		t.Fatalf("ListActions error: %v", err)
	}
	if len(list) != 1 || list[0].Source != jobs.SourceAdzuna || list[0].JobID != "ext-1" {
		t.Fatalf("unexpected actions: %+v", list)
	}
	if !strings.Contains(db.calls[0].sql, "FROM saved_jobs") {
		t.Fatalf("expected saved_jobs table, got %s", db.calls[0].sql)
	}

	if err := s.AddAction(context.Background(), model.ActionKind("liked"), &model.JobAction{}); err == nil {
		t.Fatal("expected an error for an unknown action kind")
	}
	if len(db.calls) != 1 {
		t.Fatalf("unknown kinds must not reach the database, got %d calls", len(db.calls))
	}
}

func TestMigrateExecutesSchema(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	if err := newFakeStore(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if len(db.calls) != 1 || db.calls[0].sql != schema {
		t.Fatalf("expected the embedded schema to run once, got %d calls", len(db.calls))
	}

	db = &fakeDB{execErr: errors.New("permission denied")}
	if err := newFakeStore(db).Migrate(context.Background()); err == nil || !strings.Contains(err.Error(), "apply schema") {
		t.Fatalf("expected wrapped migrate error, got %v", err)
	}
}

// TestPostgresRoundTrip runs against a real server when
// KAZI_TEST_POSTGRES_DSN is set.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("KAZI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KAZI_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, Config{DSN: dsn, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate error: %v", err)
	}

	suffix := uuid.NewString()
	company := &model.Company{Name: "Twiga " + suffix, Size: "51-200"}
	if err := s.CreateCompany(ctx, company); err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}
	if err := s.CreateCompany(ctx, &model.Company{Name: company.Name}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	job := &model.Job{Title: "Go Engineer", CompanyID: company.ID, Type: model.JobTypeFullTime, Status: model.JobStatusActive, Requirements: []string{"Go"}}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}
	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if got.CompanyName != company.Name || len(got.Requirements) != 1 {
		t.Fatalf("unexpected job: %+v", got)
	}

	tag := "tag-" + suffix
	if err := s.CreateResource(ctx, &model.Resource{Title: "t", Type: model.ResourceTool, URL: "https://example.com", Tags: []string{tag}}); err != nil {
		t.Fatalf("CreateResource error: %v", err)
	}
	resources, err := s.ListResources(ctx, model.ResourceFilter{Tags: []string{strings.ToUpper(tag)}})
	if err != nil || len(resources) != 1 {
		t.Fatalf("expected one tagged resource, got %d, %v", len(resources), err)
	}

	action := &model.JobAction{UserID: "u-" + suffix, JobID: job.ID, Source: jobs.SourceLocal}
	if err := s.AddAction(ctx, model.ActionApplied, action); err != nil {
		t.Fatalf("AddAction error: %v", err)
	}
	if err := s.AddAction(ctx, model.ActionApplied, &model.JobAction{UserID: action.UserID, JobID: job.ID, Source: jobs.SourceLocal}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a repeated action, got %v", err)
	}
}
