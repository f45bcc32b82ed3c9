package normalize

import (
	"strings"

	"go.uber.org/zap"

	"flatloader/internal/schema"
)

// RawRow is one data row as read from the input. Line is the 1-based
// physical row number in the source file.
type RawRow struct {
	Line  int
	Cells []string
}

// Record maps target field names to typed values. nil means NULL.
type Record map[string]any

// column is one compiled entry of the per-position plan.
type column struct {
	pos   int
	field string
	rule  schema.FieldRule
}

// Normalizer applies a profile's rules to rows whose header has already been
// resolved. The plan is compiled once; Normalize is safe to call
// concurrently and is deterministic.
type Normalizer struct {
	profile *schema.Profile
	plan    []column
	derived []schema.DerivedField
	columns []string
	log     *zap.Logger
}

// New compiles a Normalizer. A nil logger is replaced with a no-op logger.
func New(p *schema.Profile, res *schema.Resolution, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	n := &Normalizer{profile: p, log: log}
	for _, b := range res.Bindings() {
		n.plan = append(n.plan, column{pos: b.Position, field: b.Field, rule: p.Rule(b.Field)})
		n.columns = append(n.columns, b.Field)
	}
	n.derived = p.Derived()
	for _, d := range n.derived {
		n.columns = append(n.columns, d.Field)
	}
	return n
}

// Columns lists every field a Record from this Normalizer carries: resolved
// source fields in input order, then derived fields.
func (n *Normalizer) Columns() []string {
	out := make([]string, len(n.columns))
	copy(out, n.columns)
	return out
}

// SourceFields lists the resolved, non-derived fields.
func (n *Normalizer) SourceFields() []string {
	out := make([]string, len(n.plan))
	for i, c := range n.plan {
		out[i] = c.field
	}
	return out
}

// Profile returns the profile the Normalizer was built from.
func (n *Normalizer) Profile() *schema.Profile { return n.profile }

// Normalize converts one row. Missing trailing cells are treated as empty.
func (n *Normalizer) Normalize(row RawRow) Record {
	rec := make(Record, len(n.columns))
	for _, c := range n.plan {
		var raw string
		if c.pos < len(row.Cells) {
			raw = row.Cells[c.pos]
		}
		rec[c.field] = n.value(row.Line, c.field, c.rule, raw)
	}
	for _, d := range n.derived {
		rec[d.Field] = derive(d, rec)
	}
	return rec
}

// Value normalizes a single cell for field using the profile's rule.
func (n *Normalizer) Value(field, raw string) any {
	return n.value(0, field, n.profile.Rule(field), raw)
}

func (n *Normalizer) value(line int, field string, rule schema.FieldRule, raw string) any {
	switch rule.Kind {
	case schema.KindCurrency:
		return CurrencyValue(raw)
	case schema.KindInteger:
		return IntegerValue(raw)
	case schema.KindDate:
		if IsNullToken(raw) {
			return nil
		}
		if t, ok := Date(raw); ok {
			return t
		}
		n.log.Debug("date parse failure",
			zap.Int("line", line), zap.String("field", field), zap.String("value", raw))
		return nil
	case schema.KindEnum:
		if IsNullToken(raw) {
			return nil
		}
		if code, ok := rule.Enum.Lookup(raw); ok {
			return code
		}
		if rule.HasDefault {
			n.log.Debug("enum spelling not recognised, using default",
				zap.Int("line", line), zap.String("field", field), zap.String("value", raw), zap.Any("default", rule.Default))
			return rule.Default
		}
		n.log.Debug("enum spelling not recognised",
			zap.Int("line", line), zap.String("field", field), zap.String("value", raw))
		return nil
	case schema.KindJSON:
		return JSONValue(raw)
	default:
		return Text(raw)
	}
}

func derive(d schema.DerivedField, rec Record) any {
	switch d.Func {
	case schema.DeriveSlug:
		s, ok := rec[d.Source].(string)
		if !ok {
			return nil
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return nil
		}
		return s
	case schema.DeriveCopy:
		return rec[d.Source]
	case schema.DeriveConstant:
		return d.Value
	}
	return nil
}

// Empty reports whether every source field of rec is nil. Derived constants
// do not count.
func (n *Normalizer) Empty(rec Record) bool {
	for _, c := range n.plan {
		if rec[c.field] != nil {
			return false
		}
	}
	return true
}
