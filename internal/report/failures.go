package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var failuresHeader = []string{"reason", "line_number", "key", "error"}

// FailureLog writes failed and skipped rows to a CSV side-file so they can be
// fixed in the spreadsheet and re-imported.
type FailureLog struct {
	f   *os.File
	w   *csv.Writer
	err error
}

// NewFailureLog creates path (and its parent directories) and writes the
// header row.
func NewFailureLog(path string) (*FailureLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(failuresHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &FailureLog{f: f, w: w}, nil
}

// Add implements Sink. Inserted and updated rows are ignored.
func (l *FailureLog) Add(o Outcome) {
	if l.err != nil || (o.Kind != Failed && o.Kind != Skipped) {
		return
	}
	reason := o.Reason
	if reason == "" {
		reason = o.Kind.String()
	}
	var msg string
	if o.Err != nil {
		msg = o.Err.Error()
	}
	l.err = l.w.Write([]string{reason, strconv.Itoa(o.Line), o.Key, msg})
}

// Close flushes buffered rows and closes the file. It returns the first
// write error, if any.
func (l *FailureLog) Close() error {
	l.w.Flush()
	err := l.err
	if err == nil {
		err = l.w.Error()
	}
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}
