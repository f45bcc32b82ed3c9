// Package compare checks normalized input rows against what is already in
// the target table and lists every discrepancy: rows missing from the table,
// status columns that disagree and dates present on only one side.
package compare

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"flatloader/internal/normalize"
	"flatloader/internal/schema"
	"flatloader/internal/storage"
)

// Issue types that do not depend on a check.
const (
	IssueMissingFromDB = "MISSING_FROM_DB"
	slugNotFound       = "NOT_FOUND_IN_DB"
	notApplicable      = "N/A"
	nullText           = "NULL"
	dayLayout          = "2006-01-02"
)

// Discrepancy is one line of the comparison report.
type Discrepancy struct {
	Key        string
	Slug       string
	Issue      string
	InputValue string
	DBValue    string
	Details    string
}

// Options configures a comparison.
type Options struct {
	Table string
	// Key matches input rows to table rows.
	Key string
	// SlugField is read back for display. Leave it empty when the table has
	// no such column; the slug then falls back to the lowercased key.
	SlugField string
	Checks    []schema.CompareCheck
	// MissingOnly reports only rows absent from the table.
	MissingOnly bool
	// ProgressEvery logs a progress line every N rows; 0 disables it.
	ProgressEvery int
}

// Result is the outcome of a comparison.
type Result struct {
	Discrepancies []Discrepancy
	// Compared counts input rows that had a key.
	Compared int
	// DBRows counts table rows loaded for matching.
	DBRows int
	// Missing lists input keys absent from the table, sorted and unique.
	Missing []string
}

// Comparer holds what is needed to compare one input against one table.
type Comparer struct {
	repo   storage.Repository
	norm   *normalize.Normalizer
	log    *zap.Logger
	opt    Options
	checks []schema.CompareCheck
}

// New validates opt against the resolved input columns. Checks whose field
// is not present in the input are dropped with a warning.
func New(repo storage.Repository, norm *normalize.Normalizer, log *zap.Logger, opt Options) (*Comparer, error) {
	if repo == nil {
		return nil, errors.New("compare: a repository is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(opt.Table) == "" {
		return nil, errors.New("compare: target table is required")
	}
	cols := norm.Columns()
	if opt.Key == "" || !slices.Contains(cols, opt.Key) {
		return nil, fmt.Errorf("compare: key field %q is not among the resolved columns", opt.Key)
	}
	c := &Comparer{repo: repo, norm: norm, log: log, opt: opt}
	for _, chk := range opt.Checks {
		if !slices.Contains(cols, chk.Field) {
			log.Warn("compare column not in input, skipping", zap.String("field", chk.Field))
			continue
		}
		c.checks = append(c.checks, chk)
	}
	return c, nil
}

// selectColumns is key, slug, then each checked field, without repeats.
func (c *Comparer) selectColumns() []string {
	cols := []string{c.opt.Key}
	add := func(f string) {
		if f != "" && !slices.Contains(cols, f) {
			cols = append(cols, f)
		}
	}
	add(c.opt.SlugField)
	for _, chk := range c.checks {
		add(chk.Field)
	}
	return cols
}

// Run loads the table and compares every input row against it.
func (c *Comparer) Run(ctx context.Context, rows []normalize.RawRow) (*Result, error) {
	q := storage.SelectSQL(c.repo.Dialect(), c.opt.Table, c.selectColumns(), c.opt.Key)
	dbRows, err := c.repo.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("compare: load %s: %w", c.opt.Table, err)
	}
	byKey := make(map[string]map[string]any, len(dbRows))
	for _, r := range dbRows {
		byKey[display(r[c.opt.Key])] = r
	}
	c.log.Info("loaded table rows", zap.String("table", c.opt.Table), zap.Int("rows", len(dbRows)))

	res := &Result{DBRows: len(dbRows)}
	missing := make(map[string]bool)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.opt.ProgressEvery > 0 && (i+1)%c.opt.ProgressEvery == 0 {
			c.log.Info("progress", zap.Int("rows", i+1), zap.Int("discrepancies", len(res.Discrepancies)))
		}

		rec := c.norm.Normalize(row)
		keyVal := rec[c.opt.Key]
		if keyVal == nil {
			continue
		}
		key := display(keyVal)
		res.Compared++

		dbRow, ok := byKey[key]
		if !ok {
			res.Discrepancies = append(res.Discrepancies, Discrepancy{
				Key:        key,
				Slug:       slugNotFound,
				Issue:      IssueMissingFromDB,
				InputValue: notApplicable,
				DBValue:    notApplicable,
				Details:    "not found in database",
			})
			missing[key] = true
			continue
		}
		if c.opt.MissingOnly {
			continue
		}

		slug := ""
		if c.opt.SlugField != "" {
			slug = display(dbRow[c.opt.SlugField])
		}
		if slug == "" {
			slug = strings.ToLower(strings.TrimSpace(key))
		}
		for _, chk := range c.checks {
			if d, ok := check(chk, rec[chk.Field], dbRow[chk.Field]); ok {
				d.Key, d.Slug = key, slug
				res.Discrepancies = append(res.Discrepancies, d)
			}
		}
	}

	sort.SliceStable(res.Discrepancies, func(i, j int) bool {
		a, b := res.Discrepancies[i], res.Discrepancies[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Issue < b.Issue
	})
	for k := range missing {
		res.Missing = append(res.Missing, k)
	}
	sort.Strings(res.Missing)

	c.log.Info("comparison complete",
		zap.Int("compared", res.Compared),
		zap.Int("discrepancies", len(res.Discrepancies)),
		zap.Int("missing", len(res.Missing)))
	return res, nil
}

// check compares one field. Non-date checks only fire when the input has a
// value; date checks also report a value present on one side only.
func check(chk schema.CompareCheck, in, db any) (Discrepancy, bool) {
	if !chk.Date {
		if in == nil {
			return Discrepancy{}, false
		}
		iv, dv := display(in), display(db)
		if iv == dv {
			return Discrepancy{}, false
		}
		if db == nil {
			dv = nullText
		}
		return Discrepancy{
			Issue:      chk.Issue + "_MISMATCH",
			InputValue: iv,
			DBValue:    dv,
			Details:    fmt.Sprintf("input: %s, db: %s", iv, dv),
		}, true
	}

	id, dd := asDay(in), asDay(db)
	switch {
	case id != "" && dd != "" && id != dd:
		return Discrepancy{
			Issue:      chk.Issue + "_MISMATCH",
			InputValue: id,
			DBValue:    dd,
			Details:    fmt.Sprintf("input: %s, db: %s", id, dd),
		}, true
	case id != "" && dd == "":
		return Discrepancy{
			Issue:      chk.Issue + "_MISSING_IN_DB",
			InputValue: id,
			DBValue:    nullText,
			Details:    fmt.Sprintf("input has date %s, but db is NULL", id),
		}, true
	case id == "" && dd != "":
		return Discrepancy{
			Issue:      chk.Issue + "_MISSING_IN_EXCEL",
			InputValue: nullText,
			DBValue:    dd,
			Details:    fmt.Sprintf("input is NULL, but db has date %s", dd),
		}, true
	}
	return Discrepancy{}, false
}

// asDay renders a date-ish value as YYYY-MM-DD, or "" when it is NULL or
// not a date.
func asDay(v any) string {
	v = unwrap(v)
	switch t := v.(type) {
	case time.Time:
		return t.Format(dayLayout)
	case string:
		return dayFromText(t)
	case []byte:
		return dayFromText(string(t))
	}
	return ""
}

// dayFromText accepts anything normalize.Date does plus timestamps that
// some drivers hand back as text, such as "2024-03-01 00:00:00+00:00".
func dayFromText(s string) string {
	if d, ok := normalize.Date(s); ok {
		return d.Format(dayLayout)
	}
	s = strings.TrimSpace(s)
	if len(s) > len(dayLayout) {
		if d, err := time.Parse(dayLayout, s[:len(dayLayout)]); err == nil {
			return d.Format(dayLayout)
		}
	}
	return ""
}

// display renders a value the same way whichever side it came from, so an
// enum code read back as int32 equals the int64 produced by the normalizer.
func display(v any) string {
	v = unwrap(v)
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return display(float64(t))
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(dayLayout)
		}
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// unwrap resolves driver.Valuer types such as pgtype.Numeric to plain Go
// values.
func unwrap(v any) any {
	if dv, ok := v.(driver.Valuer); ok {
		if x, err := dv.Value(); err == nil {
			return x
		}
	}
	return v
}
