package mysql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"flatloader/internal/storage"
	"flatloader/internal/storage/sqldb"
)

func TestDialect(t *testing.T) {
	d := Dialect{}
	require.Equal(t, "`crm`.`flats`", d.QuoteIdent("crm.flats"))
	require.Equal(t, "?", d.Placeholder(7))
	require.Equal(t,
		"UPDATE `flats` SET `city` = ?, `rent` = ? WHERE `name` = ?",
		storage.UpdateSQL(d, "flats", []string{"city", "rent"}, "name"))
}

func TestClassify(t *testing.T) {
	cases := map[uint16]storage.ErrorClass{
		1062: storage.ClassConstraint,
		1048: storage.ClassConstraint,
		1452: storage.ClassConstraint,
		1366: storage.ClassData,
		1406: storage.ClassData,
		1146: storage.ClassUnknown,
	}
	for num, want := range cases {
		err := fmt.Errorf("exec: %w", &mysql.MySQLError{Number: num})
		got, ok := classify(err)
		require.True(t, ok, "number %d", num)
		require.Equal(t, want, got, "number %d", num)
	}

	got, ok := classify(mysql.ErrInvalidConn)
	require.True(t, ok)
	require.Equal(t, storage.ClassConnection, got)

	_, ok = classify(errors.New("other"))
	require.False(t, ok)
}

func TestNewRepositoryBadDSN(t *testing.T) {
	_, err := NewRepository(context.Background(), "not a dsn")
	require.ErrorContains(t, err, "mysql: parse dsn")
}

// TestParseDSNCountsMatchedRows makes sure an UPDATE of an unchanged row
// still reports one affected row, even if the DSN asks otherwise.
func TestParseDSNCountsMatchedRows(t *testing.T) {
	for _, dsn := range []string{
		"loader:secret@tcp(db:3306)/crm",
		"loader:secret@tcp(db:3306)/crm?clientFoundRows=false&parseTime=false",
	} {
		cfg, err := parseDSN(dsn)
		require.NoError(t, err, dsn)
		require.True(t, cfg.ClientFoundRows, dsn)
		require.True(t, cfg.ParseTime, dsn)
		require.Equal(t, "crm", cfg.DBName)
	}
}

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	want := errors.New("stubbed")
	var gotDSN string
	newRepository = func(ctx context.Context, dsn string) (*sqldb.Repository, error) {
		gotDSN = dsn
		return nil, want
	}

	_, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(db:3306)/crm"})
	require.ErrorIs(t, err, want)
	require.Equal(t, "u:p@tcp(db:3306)/crm", gotDSN)
}
