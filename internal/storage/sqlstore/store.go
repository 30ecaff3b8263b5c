// Package sqlstore implements the storage queries shared by the SQLite
// and PostgreSQL backends. Queries are written with "?" placeholders and
// rebound for the dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/streakd/internal/errors"
	"github.com/julianstephens/streakd/internal/migration"
)

// Store runs queries against an open *sql.DB. Backends own the connection
// lifecycle and hand the handle over once it is ready.
type Store struct {
	db       *sql.DB
	dialect  migration.Dialect
	greatest string
}

func New(db *sql.DB, dialect migration.Dialect) *Store {
	greatest := "MAX"
	if dialect == migration.Postgres {
		greatest = "GREATEST"
	}
	return &Store{db: db, dialect: dialect, greatest: greatest}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

// inserted reports whether an insert-if-absent statement wrote a row.
func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// notFound maps sql.ErrNoRows onto the shared sentinel.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, apperrors.ErrNotFound)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
