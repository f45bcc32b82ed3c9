// Package postgres implements storage.Repository using pgx v5. Every write
// runs in its own transaction on a pool capped at one connection.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"flatloader/internal/storage"
)

// pool is the subset of *pgxpool.Pool used by Repository.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Dialect quotes identifiers with double quotes and binds with $n.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) QuoteIdent(name string) string { return storage.QuoteFQN(name, pgIdent) }

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// pgIdent safely quotes an identifier.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool pool
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository parses dsn, opens a single-connection pool and pings it.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 1
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: p}, nil
}

func (r *Repository) Dialect() storage.Dialect { return Dialect{} }

func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// Query collects every row into a column -> value map.
func (r *Repository) Query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("postgres: collect rows: %w", err)
	}
	return out, nil
}

func (r *Repository) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *Repository) Close() { r.pool.Close() }

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// classify buckets *pgconn.PgError by SQLSTATE class.
func classify(err error) (storage.ErrorClass, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return storage.ClassConstraint, true
		case strings.HasPrefix(pgErr.Code, "22"):
			return storage.ClassData, true
		case strings.HasPrefix(pgErr.Code, "08"):
			return storage.ClassConnection, true
		}
		return storage.ClassUnknown, true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return storage.ClassConnection, true
	}
	return "", false
}
