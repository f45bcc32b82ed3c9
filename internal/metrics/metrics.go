// Package metrics is a small, backend-agnostic layer for recording run and
// row counters from flatloader.
//
// A global backend defaults to a no-op so instrumentation is always safe to
// call. Concrete systems (Prometheus Pushgateway, Datadog) live in
// subpackages and are installed with SetBackend by the CLI.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal      = "flatloader_step_total"
	StepDuration   = "flatloader_step_duration_seconds"
	RowsTotal      = "flatloader_rows_total"
	RowErrorsTotal = "flatloader_row_errors_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one run phase
// (load_input, open_store, process_rows, compare, ...).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow counts one row outcome. kind is inserted, updated, skipped or
// failed.
func RecordRow(job, kind string) {
	backend.IncCounter(RowsTotal, 1, Labels{"job": job, "kind": kind})
}

// RecordRowError counts a failed write by storage error class.
func RecordRowError(job, class string) {
	if class == "" {
		return
	}
	backend.IncCounter(RowErrorsTotal, 1, Labels{"job": job, "class": class})
}
