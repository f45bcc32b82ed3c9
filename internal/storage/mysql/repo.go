// Package mysql implements storage.Repository for MySQL and MariaDB using
// go-sql-driver/mysql on top of the shared database/sql repository.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"flatloader/internal/storage"
	"flatloader/internal/storage/sqldb"
)

// Dialect quotes identifiers with backticks and binds with "?".
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(name string) string { return storage.QuoteFQN(name, myIdent) }

func (Dialect) Placeholder(int) string { return "?" }

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// NewRepository parses dsn (user:pass@tcp(host:3306)/db) and opens a single
// connection. DATE and DATETIME columns are scanned into time.Time.
func NewRepository(ctx context.Context, dsn string) (*sqldb.Repository, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	return sqldb.Open(ctx, sql.OpenDB(conn), Dialect{})
}

// parseDSN forces ClientFoundRows so an UPDATE reports matched rows rather
// than changed rows. A row that already holds the new values must not look
// like a missing key.
func parseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg, nil
}

var (
	constraintErrors = map[uint16]bool{1062: true, 1451: true, 1452: true, 1048: true, 1364: true}
	dataErrors       = map[uint16]bool{1366: true, 1292: true, 1264: true, 1406: true}
)

func classify(err error) (storage.ErrorClass, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch {
		case constraintErrors[me.Number]:
			return storage.ClassConstraint, true
		case dataErrors[me.Number]:
			return storage.ClassData, true
		}
		return storage.ClassUnknown, true
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return storage.ClassConnection, true
	}
	return "", false
}
