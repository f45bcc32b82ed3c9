package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"flatloader/internal/normalize"
	"flatloader/internal/report"
	"flatloader/internal/schema"
	"flatloader/internal/storage"
)

type testDialect struct{}

func (testDialect) Name() string                  { return "test" }
func (testDialect) QuoteIdent(name string) string { return name }
func (testDialect) Placeholder(n int) string      { return fmt.Sprintf("$%d", n) }

type execCall struct {
	query string
	args  []any
}

// fakeRepo records statements and lets each test decide what Exec returns.
type fakeRepo struct {
	mu        sync.Mutex
	exec      func(q string, args []any) (int64, error)
	calls     []execCall
	commits   int
	rollbacks int
}

func (r *fakeRepo) Dialect() storage.Dialect { return testDialect{} }
func (r *fakeRepo) Begin(ctx context.Context) (storage.Tx, error) {
	return &fakeTx{repo: r}, nil
}
func (r *fakeRepo) Query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	return nil, errors.New("not implemented")
}
func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close()                         {}

type fakeTx struct{ repo *fakeRepo }

func (t *fakeTx) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	t.repo.mu.Lock()
	t.repo.calls = append(t.repo.calls, execCall{q, args})
	fn := t.repo.exec
	t.repo.mu.Unlock()
	if fn == nil {
		return 1, nil
	}
	return fn(q, args)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.commits++
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.rollbacks++
	return nil
}

var testHeaders = []string{"Name", "Rent", "City"}

func testNormalizer(t *testing.T) *normalize.Normalizer {
	t.Helper()
	p, err := schema.NewProfile(schema.ProfileSpec{
		Name:   "test",
		Table:  "flats",
		Marker: "Name",
		Key:    "name",
		Aliases: []schema.Alias{
			{Header: "Name", Field: "name"},
			{Header: "Rent", Field: "rent"},
			{Header: "City", Field: "city"},
		},
		Fields: map[string]schema.FieldSpec{"rent": {Kind: schema.KindCurrency}},
	})
	require.NoError(t, err)
	res, err := schema.Resolve(testHeaders, p.Mapping())
	require.NoError(t, err)
	return normalize.New(p, res, nil)
}

func rows(cells ...[]string) []normalize.RawRow {
	out := make([]normalize.RawRow, len(cells))
	for i, c := range cells {
		out[i] = normalize.RawRow{Line: i + 2, Cells: c}
	}
	return out
}

type collect []report.Outcome

func (c *collect) Add(o report.Outcome) { *c = append(*c, o) }

func kinds(c collect) []string {
	out := make([]string, len(c))
	for i, o := range c {
		out[i] = o.Kind.String()
		if o.Reason != "" {
			out[i] += ":" + o.Reason
		}
	}
	return out
}

/*
TestInsertIsolatesFailures checks that one failing row is rolled back and
reported while its neighbours are committed, and that every insert binds all
columns including NULLs.
*/
func TestInsertIsolatesFailures(t *testing.T) {
	repo := &fakeRepo{exec: func(q string, args []any) (int64, error) {
		if args[0] == "B-2" {
			return 0, errors.New("duplicate key value")
		}
		return 1, nil
	}}
	var got collect
	e, err := New(repo, testNormalizer(t), &got, nil, Options{Mode: ModeInsert, Table: "flats", Key: "name"})
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), rows(
		[]string{"A-1", "₹ 12,000", "Pune"},
		[]string{"B-2", "9000", "Goa"},
		[]string{"C-3", "abc"},
	)))

	require.Equal(t, []string{"inserted", "failed:unknown", "inserted"}, kinds(got))
	require.Equal(t, "B-2", got[1].Key)
	require.Equal(t, 3, got[1].Line)
	require.EqualError(t, got[1].Err, "duplicate key value")

	require.Equal(t, 2, repo.commits)
	require.Equal(t, 1, repo.rollbacks)
	require.Equal(t, "INSERT INTO flats (name, rent, city) VALUES ($1, $2, $3)", repo.calls[0].query)
	require.Equal(t, []any{"A-1", 12000.0, "Pune"}, repo.calls[0].args)
	require.Equal(t, []any{"C-3", nil, nil}, repo.calls[2].args)
}

/*
TestUpdate covers the four update paths: a matched row, a key that matches
nothing, a row without a key and a row with nothing but the key. Blank cells
are left out of the SET list.
*/
func TestUpdate(t *testing.T) {
	repo := &fakeRepo{exec: func(q string, args []any) (int64, error) {
		if args[len(args)-1] == "Z-9" {
			return 0, nil
		}
		return 1, nil
	}}
	var got collect
	e, err := New(repo, testNormalizer(t), &got, nil, Options{Mode: ModeUpdate, Table: "flats", Key: "name"})
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), rows(
		[]string{"A-1", "", "Mumbai"},
		[]string{"Z-9", "100", ""},
		[]string{"", "100", "Pune"},
		[]string{"B-2", "n/a", " "},
	)))

	require.Equal(t, []string{
		"updated",
		"skipped:not found",
		"skipped:missing key",
		"skipped:nothing to update",
	}, kinds(got))

	require.Len(t, repo.calls, 2)
	require.Equal(t, "UPDATE flats SET city = $1 WHERE name = $2", repo.calls[0].query)
	require.Equal(t, []any{"Mumbai", "A-1"}, repo.calls[0].args)
	require.Equal(t, "UPDATE flats SET rent = $1 WHERE name = $2", repo.calls[1].query)
}

func TestDryRunNeedsNoRepository(t *testing.T) {
	var got collect
	e, err := New(nil, testNormalizer(t), &got, nil, Options{Mode: ModeInsert, Table: "flats", DryRun: true})
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), rows(
		[]string{"A-1", "1", "Pune"},
		[]string{"", "null", "-"},
	)))
	require.Equal(t, []string{"skipped:dry run", "skipped:empty row"}, kinds(got))
}

func TestSkipDuplicates(t *testing.T) {
	repo := &fakeRepo{}
	var got collect
	e, err := New(repo, testNormalizer(t), &got, nil, Options{
		Mode: ModeInsert, Table: "flats", Key: "name", SkipDuplicates: true,
	})
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), rows(
		[]string{"A-1", "12,000", "Pune"},
		[]string{"A-1", "12000", " Pune "},
		[]string{"A-1", "12001", "Pune"},
		[]string{"A-1", "₹12,000.00", "Pune"},
	)))
	require.Equal(t, []string{
		"inserted",
		"skipped:duplicate of line 2",
		"inserted",
		"skipped:duplicate of line 2",
	}, kinds(got))
	require.Len(t, repo.calls, 2)
}

func TestPanicBecomesFailure(t *testing.T) {
	repo := &fakeRepo{exec: func(q string, args []any) (int64, error) {
		if args[0] == "A-1" {
			panic("driver exploded")
		}
		return 1, nil
	}}
	var got collect
	e, err := New(repo, testNormalizer(t), &got, nil, Options{Mode: ModeInsert, Table: "flats", Key: "name"})
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), rows(
		[]string{"A-1", "1", "Pune"},
		[]string{"B-2", "2", "Goa"},
	)))
	require.Equal(t, []string{"failed:panic", "inserted"}, kinds(got))
	require.ErrorContains(t, got[0].Err, "driver exploded")
	require.Equal(t, 1, repo.rollbacks)
}

func TestCanceledContextStopsBetweenRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := &fakeRepo{exec: func(q string, args []any) (int64, error) {
		cancel()
		return 1, nil
	}}
	var got collect
	e, err := New(repo, testNormalizer(t), &got, nil, Options{Mode: ModeInsert, Table: "flats"})
	require.NoError(t, err)

	err = e.Run(ctx, rows(
		[]string{"A-1", "1", "Pune"},
		[]string{"B-2", "2", "Goa"},
	))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"inserted"}, kinds(got))
}

func TestProgressLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var got collect
	e, err := New(nil, testNormalizer(t), &got, zap.New(core), Options{
		Mode: ModeInsert, Table: "flats", DryRun: true, ProgressEvery: 2,
	})
	require.NoError(t, err)

	in := make([][]string, 5)
	for i := range in {
		in[i] = []string{fmt.Sprintf("F-%d", i), "1", "Pune"}
	}
	require.NoError(t, e.Run(context.Background(), rows(in...)))

	progress := logs.FilterMessage("progress").All()
	require.Len(t, progress, 3)
	require.EqualValues(t, 5, progress[2].ContextMap()["rows"])
	require.EqualValues(t, 5, progress[2].ContextMap()["skipped"])
}

func TestNewValidation(t *testing.T) {
	n := testNormalizer(t)
	sink := &collect{}
	tests := []struct {
		name string
		repo storage.Repository
		opt  Options
		want string
	}{
		{"no repo", nil, Options{Mode: ModeInsert, Table: "flats"}, "no repository"},
		{"bad mode", &fakeRepo{}, Options{Mode: "upsert", Table: "flats"}, "unknown mode"},
		{"no table", &fakeRepo{}, Options{Mode: ModeInsert}, "table is required"},
		{"update without key", &fakeRepo{}, Options{Mode: ModeUpdate, Table: "flats"}, "needs a key"},
		{"update with unknown key", &fakeRepo{}, Options{Mode: ModeUpdate, Table: "flats", Key: "id"}, `"id" is not among`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.repo, n, sink, nil, tt.opt)
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
	_, err := New(&fakeRepo{}, n, nil, nil, Options{Mode: ModeInsert, Table: "flats"})
	require.Error(t, err)
}

/*
TestUpdateFlatsLeavesDerivedFieldsAlone runs updates through the built-in
flats profile. The booking_lock_status constant and the slug derived from
the key must never be written by an update: a locked row stays locked. A
copied field follows its source only when the source is set.
*/
func TestUpdateFlatsLeavesDerivedFieldsAlone(t *testing.T) {
	p, err := schema.Flats()
	require.NoError(t, err)
	res, err := schema.Resolve([]string{
		"Flat Master Name", "Flat Available to Rent Status", "Long Description", "Monthly Rent", "Parking Queue",
	}, p.Mapping())
	require.NoError(t, err)
	norm := normalize.New(p, res, nil)

	repo := &fakeRepo{}
	var got collect
	e, err := New(repo, norm, &got, nil, Options{Mode: ModeUpdate, Table: "flats", Key: "name"})
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), rows(
		[]string{"A-101", "", "", "", ""},
		[]string{"A-102", "Yes", "", "", ""},
		[]string{"A-103", "", "Sea facing", "", ""},
	)))

	require.Equal(t, []string{"skipped:nothing to update", "updated", "updated"}, kinds(got))
	require.Len(t, repo.calls, 2)
	require.Equal(t,
		"UPDATE flats SET flat_available_rent_status = $1, flat_available_status = $2 WHERE name = $3",
		repo.calls[0].query)
	require.Equal(t, []any{int64(1), int64(1), "A-102"}, repo.calls[0].args)
	require.Equal(t, "UPDATE flats SET description = $1 WHERE name = $2", repo.calls[1].query)
	require.Equal(t, []any{"Sea facing", "A-103"}, repo.calls[1].args)
}
