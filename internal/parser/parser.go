// Package parser holds the in-memory table produced by the CSV and XLSX
// readers and locates the real header row inside it.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"flatloader/internal/normalize"
	"flatloader/internal/schema"
)

// DefaultHeaderScan is how many leading rows are searched for the marker.
const DefaultHeaderScan = 20

// ErrHeaderNotFound is returned when the marker header is not present in
// the scanned rows.
var ErrHeaderNotFound = errors.New("parser: header row not found")

// Format is the input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return "", fmt.Errorf("parser: %s: legacy .xls workbooks are not supported, save as .xlsx", path)
	default:
		return "", fmt.Errorf("parser: %s: unrecognised file extension", path)
	}
}

// DefaultComma is the delimiter used when none was configured: tab for
// .tsv files, comma otherwise.
func DefaultComma(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// Table is a whole input file held in memory. Blank rows are dropped;
// Lines keeps the 1-based physical row number of each kept row.
type Table struct {
	Rows  [][]string
	Lines []int
}

// Append adds a row unless every cell is blank.
func (t *Table) Append(line int, cells []string) {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			t.Rows = append(t.Rows, cells)
			t.Lines = append(t.Lines, line)
			return
		}
	}
}

// Len is the number of kept rows.
func (t *Table) Len() int { return len(t.Rows) }

// LocateHeader returns the index of the first row, among the first maxScan
// rows, that contains a cell equal to marker (compared canonically). Banner
// rows above the header are ignored.
func LocateHeader(t *Table, marker string, maxScan int) (int, error) {
	if maxScan <= 0 {
		maxScan = DefaultHeaderScan
	}
	want := schema.CanonicalHeader(marker)
	for i := 0; i < len(t.Rows) && i < maxScan; i++ {
		for _, c := range t.Rows[i] {
			if schema.CanonicalHeader(c) == want {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: marker %q not in first %d rows", ErrHeaderNotFound, marker, maxScan)
}

// Split returns the header row at idx and the data rows below it.
func (t *Table) Split(idx int) ([]string, []normalize.RawRow) {
	if idx < 0 || idx >= len(t.Rows) {
		return nil, nil
	}
	headers := t.Rows[idx]
	rows := make([]normalize.RawRow, 0, len(t.Rows)-idx-1)
	for i := idx + 1; i < len(t.Rows); i++ {
		rows = append(rows, normalize.RawRow{Line: t.Lines[i], Cells: t.Rows[i]})
	}
	return headers, rows
}
