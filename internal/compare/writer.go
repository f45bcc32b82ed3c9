package compare

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

var csvHeader = []string{"flat_name", "slug", "issue_type", "excel_value", "db_value", "details"}

// WriteCSV writes ds to path, creating parent directories as needed. The
// file is written even when ds is empty so a clean run leaves a header-only
// report behind.
func WriteCSV(path string, ds []Discrepancy) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("compare: create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("compare: create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return writeCSV(f, ds)
}

func writeCSV(w io.Writer, ds []Discrepancy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range ds {
		if err := cw.Write([]string{d.Key, d.Slug, d.Issue, d.InputValue, d.DBValue, d.Details}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary prints a human readable digest of res.
func WriteSummary(w io.Writer, res *Result) {
	fmt.Fprintf(w, "compared %d input rows against %d table rows\n", res.Compared, res.DBRows)
	if len(res.Discrepancies) == 0 {
		fmt.Fprintln(w, "No mismatches found")
		return
	}

	fmt.Fprintln(w, "MISMATCH SUMMARY")
	fmt.Fprintf(w, "total discrepancies: %d\n", len(res.Discrepancies))

	byIssue := make(map[string]int)
	slugs := make(map[string]bool)
	for _, d := range res.Discrepancies {
		byIssue[d.Issue]++
		if d.Slug != slugNotFound {
			slugs[d.Slug] = true
		}
	}
	issues := make([]string, 0, len(byIssue))
	for k := range byIssue {
		issues = append(issues, k)
	}
	sort.Strings(issues)
	fmt.Fprintln(w, "by issue type:")
	for _, k := range issues {
		fmt.Fprintf(w, "  %-32s %d\n", k, byIssue[k])
	}
	fmt.Fprintf(w, "unique slugs with issues: %d\n", len(slugs))

	if len(res.Missing) > 0 {
		fmt.Fprintf(w, "MISSING FROM DATABASE: %d\n", len(res.Missing))
		for _, k := range res.Missing {
			fmt.Fprintf(w, "  %s\n", k)
		}
	}
}
