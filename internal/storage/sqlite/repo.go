// Package sqlite implements a SQLite-backed storage.Repository using the
// pure Go modernc.org/sqlite driver. Handy for local dry runs against a file
// copy of the table and for tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"flatloader/internal/storage"
	"flatloader/internal/storage/sqldb"
)

// Dialect quotes identifiers with double quotes and binds with "?".
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) QuoteIdent(name string) string { return storage.QuoteFQN(name, ident) }

func (Dialect) Placeholder(int) string { return "?" }

func ident(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// NewRepository opens a SQLite database. The DSN is passed to the driver
// as-is, e.g. "flats.db" or "file:flats.db?_pragma=busy_timeout(5000)".
func NewRepository(ctx context.Context, dsn string) (*sqldb.Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	r, err := sqldb.Open(ctx, db, Dialect{})
	if err != nil {
		return nil, err
	}
	if err := r.Exec(ctx, foreignKeysPragma); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// foreignKeysPragma runs once after open on the pool's single connection.
// Foreign keys are off by default in SQLite.
var foreignKeysPragma = "PRAGMA foreign_keys = ON"

// classify maps SQLite result codes. Extended codes carry the primary code
// in the low byte.
func classify(err error) (storage.ErrorClass, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return "", false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return storage.ClassConstraint, true
	case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_RANGE:
		return storage.ClassData, true
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return storage.ClassConnection, true
	}
	return storage.ClassUnknown, true
}
