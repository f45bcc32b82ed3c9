// Package sqldb implements storage.Repository on top of database/sql. The
// mssql, mysql and sqlite backends share it and only differ in how they open
// the *sql.DB and in their storage.Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"flatloader/internal/storage"
)

// PingTimeout bounds the connectivity check done by Open.
const PingTimeout = 5 * time.Second

// Repository is a database/sql backed storage.Repository.
type Repository struct {
	db      *sql.DB
	dialect storage.Dialect
}

var _ storage.Repository = (*Repository)(nil)

// Open wraps db, restricts it to a single connection and pings it. On
// failure db is closed.
func Open(ctx context.Context, db *sql.DB, d storage.Dialect) (*Repository, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name(), err)
	}
	return &Repository{db: db, dialect: d}, nil
}

func (r *Repository) Dialect() storage.Dialect { return r.dialect }

// DB exposes the underlying handle, mainly for tests and schema setup.
func (r *Repository) DB() *sql.DB { return r.db }

// Begin starts a transaction.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", r.dialect.Name(), err)
	}
	return &sqlTx{tx: tx}, nil
}

// Query runs q and returns each row as a column -> value map. []byte values
// are copied into strings.
func (r *Repository) Query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", r.dialect.Name(), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns: %w", r.dialect.Name(), err)
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", r.dialect.Name(), err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
				continue
			}
			m[c] = vals[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", r.dialect.Name(), err)
	}
	return out, nil
}

// Exec runs a statement outside any transaction. Used for schema setup.
func (r *Repository) Exec(ctx context.Context, q string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", r.dialect.Name(), err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Close closes the pool.
func (r *Repository) Close() { _ = r.db.Close() }

type sqlTx struct{ tx *sql.Tx }

func (t *sqlTx) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (t *sqlTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }
