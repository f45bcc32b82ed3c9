// Package report aggregates per-row import outcomes into totals, a
// skipped-reason histogram and a failure list, and renders them for humans.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Kind is the result of processing one row.
type Kind int

const (
	Inserted Kind = iota
	Updated
	Skipped
	Failed
)

var kindNames = [...]string{"inserted", "updated", "skipped", "failed"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Outcome is what happened to one data row. Line is the 1-based physical
// line (or sheet row) in the input, Key the row's key value if it had one.
type Outcome struct {
	Line   int
	Key    string
	Kind   Kind
	Reason string
	// Class is the storage error class for failed writes.
	Class string
	Err   error
}

// Sink receives outcomes as they are produced.
type Sink interface {
	Add(Outcome)
}

// Tee fans an outcome out to several sinks. Nil sinks are ignored.
func Tee(sinks ...Sink) Sink {
	out := make(teeSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type teeSink []Sink

func (t teeSink) Add(o Outcome) {
	for _, s := range t {
		s.Add(o)
	}
}

// Report is the aggregate of a run. The zero value is ready to use.
type Report struct {
	counts   [len(kindNames)]int
	reasons  map[string]int
	failures []Outcome
}

// New returns an empty Report.
func New() *Report { return &Report{} }

// Add records one outcome.
func (r *Report) Add(o Outcome) {
	if o.Kind < 0 || int(o.Kind) >= len(r.counts) {
		return
	}
	r.counts[o.Kind]++
	switch o.Kind {
	case Skipped:
		if r.reasons == nil {
			r.reasons = make(map[string]int)
		}
		r.reasons[skipBucket(o.Reason)]++
	case Failed:
		r.failures = append(r.failures, o)
	}
}

// skipBucket folds "duplicate of line 12" style reasons into one bucket.
func skipBucket(reason string) string {
	if i := strings.Index(reason, " of line "); i > 0 {
		return reason[:i]
	}
	if reason == "" {
		return "unspecified"
	}
	return reason
}

// Total is the number of rows that produced an outcome.
func (r *Report) Total() int {
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

// Count returns the number of outcomes of kind k.
func (r *Report) Count(k Kind) int {
	if k < 0 || int(k) >= len(r.counts) {
		return 0
	}
	return r.counts[k]
}

// SkipReasons returns a copy of the skipped-reason histogram.
func (r *Report) SkipReasons() map[string]int {
	out := make(map[string]int, len(r.reasons))
	for k, v := range r.reasons {
		out[k] = v
	}
	return out
}

// Failures returns the failed outcomes in the order they were added.
func (r *Report) Failures() []Outcome {
	return append([]Outcome(nil), r.failures...)
}

// Render writes the human readable summary. It always prints the totals and
// the failure banner, even when nothing succeeded.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "rows processed: %d\n", r.Total())
	for k := Inserted; k <= Failed; k++ {
		fmt.Fprintf(&b, "  %-9s %d\n", k.String()+":", r.counts[k])
	}

	if len(r.reasons) > 0 {
		b.WriteString("skipped by reason:\n")
		keys := make([]string, 0, len(r.reasons))
		for k := range r.reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %d\n", k, r.reasons[k])
		}
	}

	fmt.Fprintf(&b, "FAILED ROWS: %d\n", len(r.failures))
	for _, f := range r.failures {
		key := f.Key
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(&b, "  line %d key=%s", f.Line, key)
		if f.Class != "" {
			fmt.Fprintf(&b, " [%s]", f.Class)
		}
		fmt.Fprintf(&b, ": %s\n", errText(f))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func errText(o Outcome) string {
	switch {
	case o.Err != nil:
		return o.Err.Error()
	case o.Reason != "":
		return o.Reason
	}
	return "unknown error"
}
