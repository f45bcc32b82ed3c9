// Package mssql implements storage.Repository for Microsoft SQL Server using
// go-mssqldb on top of the shared database/sql repository.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"flatloader/internal/storage"
	"flatloader/internal/storage/sqldb"
)

// Dialect quotes identifiers with brackets and binds with @pN.
type Dialect struct{}

func (Dialect) Name() string { return "mssql" }

func (Dialect) QuoteIdent(name string) string { return storage.QuoteFQN(name, msIdent) }

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func msIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

// NewRepository validates dsn and opens a single connection.
func NewRepository(ctx context.Context, dsn string) (*sqldb.Repository, error) {
	// Fail fast on obvious mistakes before dialing.
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return sqldb.Open(ctx, db, Dialect{})
}

var (
	// unique, FK, NOT NULL
	constraintErrors = map[int32]bool{2627: true, 2601: true, 547: true, 515: true}
	// conversion, truncation, overflow
	dataErrors = map[int32]bool{245: true, 8114: true, 241: true, 242: true, 8115: true, 8152: true, 2628: true}
)

func classify(err error) (storage.ErrorClass, bool) {
	var me mssql.Error
	if !errors.As(err, &me) {
		return "", false
	}
	switch {
	case constraintErrors[me.Number]:
		return storage.ClassConstraint, true
	case dataErrors[me.Number]:
		return storage.ClassData, true
	}
	return storage.ClassUnknown, true
}
