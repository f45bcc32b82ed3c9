// Package importer writes normalized rows to the target table one at a time.
//
// Every row gets its own transaction. A failing row is rolled back, recorded
// as a Failed outcome and the loop moves on, so one bad spreadsheet line
// never aborts the batch. Rows are processed strictly in input order on a
// single connection.
package importer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"flatloader/internal/metrics"
	"flatloader/internal/normalize"
	"flatloader/internal/report"
	"flatloader/internal/schema"
	"flatloader/internal/storage"
)

// Mode selects the statement issued per row.
type Mode string

const (
	ModeInsert Mode = "insert"
	ModeUpdate Mode = "update"
)

// Skip reasons.
const (
	ReasonEmptyRow      = "empty row"
	ReasonDryRun        = "dry run"
	ReasonMissingKey    = "missing key"
	ReasonNothingToSet  = "nothing to update"
	ReasonNotFound      = "not found"
	reasonDuplicateOfFn = "duplicate of line %d"
)

// Options configures an Executor.
type Options struct {
	Mode  Mode
	Table string
	// Key is the match field in update mode and the key shown in reports.
	Key            string
	DryRun         bool
	SkipDuplicates bool
	// ProgressEvery logs a progress line every N rows; 0 disables it.
	ProgressEvery int
	// Job labels metrics.
	Job string
}

// Executor turns normalized records into INSERT or UPDATE statements.
type Executor struct {
	repo storage.Repository
	norm *normalize.Normalizer
	sink report.Sink
	log  *zap.Logger
	opt  Options

	columns   []string
	insertSQL string

	// Update mode only sets mapped source columns, plus derived fields
	// whose source is being set. Constants are never written by an update.
	sources []string
	derived []schema.DerivedField

	seen   map[xxh3.Uint128]int
	fpBuf  []byte
	counts [4]int
}

// New validates opt against the resolved columns. repo may be nil only for
// a dry run.
func New(repo storage.Repository, norm *normalize.Normalizer, sink report.Sink, log *zap.Logger, opt Options) (*Executor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		return nil, errors.New("importer: a report sink is required")
	}
	if repo == nil && !opt.DryRun {
		return nil, errors.New("importer: no repository and not a dry run")
	}
	switch opt.Mode {
	case ModeInsert, ModeUpdate:
	default:
		return nil, fmt.Errorf("importer: unknown mode %q", opt.Mode)
	}
	if strings.TrimSpace(opt.Table) == "" {
		return nil, errors.New("importer: target table is required")
	}

	e := &Executor{
		repo:    repo,
		norm:    norm,
		sink:    sink,
		log:     log,
		opt:     opt,
		columns: norm.Columns(),
	}
	if opt.Mode == ModeUpdate {
		if opt.Key == "" {
			return nil, errors.New("importer: update mode needs a key field")
		}
		if !slices.Contains(e.columns, opt.Key) {
			return nil, fmt.Errorf("importer: key field %q is not among the resolved columns", opt.Key)
		}
		e.sources = norm.SourceFields()
		for _, d := range norm.Profile().Derived() {
			if d.Func != schema.DeriveConstant {
				e.derived = append(e.derived, d)
			}
		}
	}
	if opt.SkipDuplicates {
		e.seen = make(map[xxh3.Uint128]int)
	}
	if repo != nil && opt.Mode == ModeInsert {
		e.insertSQL = storage.InsertSQL(repo.Dialect(), opt.Table, e.columns)
	}
	return e, nil
}

// Run processes rows in order. It stops between rows when ctx is canceled
// and returns ctx.Err(); rows already committed stay committed. Per-row
// failures are reported to the sink and never returned.
func (e *Executor) Run(ctx context.Context, rows []normalize.RawRow) error {
	e.log.Info("processing rows",
		zap.String("mode", string(e.opt.Mode)),
		zap.String("table", e.opt.Table),
		zap.Int("rows", len(rows)),
		zap.Bool("dry_run", e.opt.DryRun))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			e.log.Warn("stopping early", zap.Int("remaining", len(rows)-i), zap.Error(err))
			return err
		}
		out := e.process(ctx, row)
		e.record(out)
		if e.opt.ProgressEvery > 0 && (i+1)%e.opt.ProgressEvery == 0 {
			e.logProgress(i + 1)
		}
	}
	e.logProgress(len(rows))
	return nil
}

func (e *Executor) record(out report.Outcome) {
	e.counts[out.Kind]++
	e.sink.Add(out)
	metrics.RecordRow(e.opt.Job, out.Kind.String())
	if out.Kind == report.Failed {
		metrics.RecordRowError(e.opt.Job, out.Class)
		e.log.Warn("row failed",
			zap.Int("line", out.Line),
			zap.String("key", out.Key),
			zap.String("class", out.Class),
			zap.Error(out.Err))
	}
}

func (e *Executor) logProgress(n int) {
	e.log.Info("progress",
		zap.Int("rows", n),
		zap.Int("inserted", e.counts[report.Inserted]),
		zap.Int("updated", e.counts[report.Updated]),
		zap.Int("skipped", e.counts[report.Skipped]),
		zap.Int("failed", e.counts[report.Failed]))
}

// process handles one row. A panic anywhere below is turned into a Failed
// outcome for that row.
func (e *Executor) process(ctx context.Context, row normalize.RawRow) (out report.Outcome) {
	out.Line = row.Line
	defer func() {
		if r := recover(); r != nil {
			out.Kind = report.Failed
			out.Reason = "panic"
			out.Class = ""
			out.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	rec := e.norm.Normalize(row)
	if e.opt.Key != "" {
		out.Key = toString(rec[e.opt.Key])
	}

	if e.norm.Empty(rec) {
		return skipped(out, ReasonEmptyRow)
	}
	if e.seen != nil {
		var fp xxh3.Uint128
		fp, e.fpBuf = fingerprint(e.columns, rec, e.fpBuf)
		if first, ok := e.seen[fp]; ok {
			return skipped(out, fmt.Sprintf(reasonDuplicateOfFn, first))
		}
		e.seen[fp] = row.Line
	}
	if e.opt.DryRun {
		return skipped(out, ReasonDryRun)
	}

	switch e.opt.Mode {
	case ModeUpdate:
		return e.update(ctx, rec, out)
	default:
		return e.insert(ctx, rec, out)
	}
}

func (e *Executor) insert(ctx context.Context, rec normalize.Record, out report.Outcome) report.Outcome {
	args := make([]any, len(e.columns))
	for i, c := range e.columns {
		args[i] = rec[c]
	}
	if _, err := e.exec(ctx, e.insertSQL, args); err != nil {
		return failed(out, err)
	}
	out.Kind = report.Inserted
	return out
}

// update sets every non-nil source column except the key. Blank cells never
// overwrite existing values. A derived field follows only when its source
// column is set in the same statement.
func (e *Executor) update(ctx context.Context, rec normalize.Record, out report.Outcome) report.Outcome {
	key := rec[e.opt.Key]
	if key == nil {
		return skipped(out, ReasonMissingKey)
	}
	var (
		set  []string
		args []any
	)
	for _, c := range e.sources {
		if c == e.opt.Key || rec[c] == nil {
			continue
		}
		set = append(set, c)
		args = append(args, rec[c])
	}
	if len(set) == 0 {
		return skipped(out, ReasonNothingToSet)
	}
	for _, d := range e.derived {
		if !slices.Contains(set, d.Source) || rec[d.Field] == nil {
			continue
		}
		set = append(set, d.Field)
		args = append(args, rec[d.Field])
	}
	args = append(args, key)

	n, err := e.exec(ctx, storage.UpdateSQL(e.repo.Dialect(), e.opt.Table, set, e.opt.Key), args)
	if err != nil {
		return failed(out, err)
	}
	if n == 0 {
		return skipped(out, ReasonNotFound)
	}
	out.Kind = report.Updated
	return out
}

// exec runs q in its own transaction. The transaction is rolled back on any
// error or panic, using a context that survives cancellation of ctx.
func (e *Executor) exec(ctx context.Context, q string, args []any) (n int64, err error) {
	tx, err := e.repo.Begin(ctx)
	if err != nil {
		return 0, err
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	n, err = tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	done = true
	return n, nil
}

func skipped(out report.Outcome, reason string) report.Outcome {
	out.Kind = report.Skipped
	out.Reason = reason
	return out
}

func failed(out report.Outcome, err error) report.Outcome {
	class := storage.Classify(err)
	out.Kind = report.Failed
	out.Class = string(class)
	out.Reason = string(class)
	out.Err = err
	return out
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
