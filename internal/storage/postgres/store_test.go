package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/storage"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	if err := translate("noop", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: storage.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: storage.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: storage.ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := translate("op", tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if !strings.HasPrefix(got.Error(), "op: ") {
				t.Fatalf("expected operation prefix, got %q", got.Error())
			}
		})
	}

	other := translate("op", &pgconn.PgError{Code: "23503"})
	if errors.Is(other, storage.ErrDuplicate) || errors.Is(other, storage.ErrNotFound) {
		t.Fatalf("foreign key violation must not map to a sentinel: %v", other)
	}
}

func TestAffected(t *testing.T) {
	t.Parallel()

	if err := affected("update", pgconn.NewCommandTag("UPDATE 0"), nil); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero rows, got %v", err)
	}
	if err := affected("update", pgconn.NewCommandTag("UPDATE 1"), nil); err != nil {
		t.Fatalf("expected nil for one row, got %v", err)
	}
}

func TestResourceQuery(t *testing.T) {
	t.Parallel()

	query, args := resourceQuery(model.ResourceFilter{})
	if strings.Contains(query, "WHERE") || len(args) != 0 {
		t.Fatalf("expected unfiltered query, got %q %v", query, args)
	}

	query, args = resourceQuery(model.ResourceFilter{Type: model.ResourceCourse, Tags: []string{" Go ", "", "SQL"}})
	if !strings.Contains(query, "type = $1") || !strings.Contains(query, "&& $2") {
		t.Fatalf("unexpected filtered query: %q", query)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	tags, ok := args[1].([]string)
	if !ok || len(tags) != 2 || tags[0] != "go" || tags[1] != "sql" {
		t.Fatalf("expected normalised tags, got %#v", args[1])
	}

	query, args = resourceQuery(model.ResourceFilter{Tags: []string{"career"}})
	if !strings.Contains(query, "&& $1") || len(args) != 1 {
		t.Fatalf("expected tags-only filter, got %q %v", query, args)
	}
}

func TestSchemaDeclaresActionTables(t *testing.T) {
	t.Parallel()

	for _, table := range actionTables {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema is missing %s", table)
		}
	}
}
