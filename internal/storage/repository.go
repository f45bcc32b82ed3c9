// Package storage contains the backend-agnostic contract used by the row
// executor and the comparison report, plus a small factory that concrete
// backends register themselves with.
//
// Backends live in sub-packages (postgres, mssql, mysql, sqlite) and call
// Register from init. Import flatloader/internal/storage/all to enable all of
// them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Dialect renders identifiers and bind parameters for one SQL flavour.
type Dialect interface {
	// Name is the storage kind, e.g. "postgres".
	Name() string
	// QuoteIdent quotes a possibly schema-qualified identifier such as
	// "public.flats".
	QuoteIdent(name string) string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
}

// Tx is one open transaction.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository is a single-connection handle to the target database.
type Repository interface {
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	// Query runs a read and returns each row keyed by column name.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
	Ping(ctx context.Context) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
