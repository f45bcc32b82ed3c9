// Package input loads an input file, parses it with the matching reader and
// splits it at the header row.
package input

import (
	"context"
	"fmt"

	"flatloader/internal/datasource"
	"flatloader/internal/datasource/file"
	"flatloader/internal/normalize"
	"flatloader/internal/parser"
	"flatloader/internal/parser/csv"
	"flatloader/internal/parser/xlsx"
)

// Options controls parsing and header detection.
type Options struct {
	// Format forces a reader; empty means detect from the extension.
	Format parser.Format
	// Comma is the CSV delimiter. Zero picks one from the file extension.
	Comma rune
	// Sheet names the XLSX worksheet (empty means the first one).
	Sheet string
	// Marker is a header cell that identifies the header row.
	Marker string
	// HeaderScan bounds how many leading rows are searched for Marker.
	HeaderScan int
}

// Input is a parsed file: the header row and the data rows below it.
type Input struct {
	Path       string
	Format     parser.Format
	HeaderLine int
	Headers    []string
	Rows       []normalize.RawRow
}

// Load reads path fully into memory and parses it.
func Load(ctx context.Context, path string, opt Options) (*Input, error) {
	format := opt.Format
	if format == "" {
		f, err := parser.DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}

	data, err := datasource.ReadAll(ctx, file.NewLocal(path))
	if err != nil {
		return nil, err
	}
	return Parse(data, path, format, opt)
}

// Parse splits already loaded bytes. path is only used in messages.
func Parse(data []byte, path string, format parser.Format, opt Options) (*Input, error) {
	var (
		t   *parser.Table
		err error
	)
	switch format {
	case parser.FormatCSV:
		comma := opt.Comma
		if comma == 0 {
			comma = parser.DefaultComma(path)
		}
		t, err = csv.Parse(data, csv.Options{Comma: comma})
	case parser.FormatXLSX:
		t, err = xlsx.Parse(data, xlsx.Options{Sheet: opt.Sheet})
	default:
		return nil, fmt.Errorf("input: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("input: %s: %w", path, err)
	}

	idx, err := parser.LocateHeader(t, opt.Marker, opt.HeaderScan)
	if err != nil {
		return nil, fmt.Errorf("input: %s: %w", path, err)
	}
	headers, rows := t.Split(idx)
	return &Input{
		Path:       path,
		Format:     format,
		HeaderLine: t.Lines[idx],
		Headers:    headers,
		Rows:       rows,
	}, nil
}
