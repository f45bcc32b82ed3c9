// Package csv reads a delimited text export into a parser.Table.
//
// The whole file is decoded up front (see Decode) and handed to
// encoding/csv in lenient mode: exports from spreadsheet tools routinely
// carry ragged rows and stray quotes in banner lines above the header.
package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"flatloader/internal/parser"
)

// Options configures the reader. The zero value reads comma separated input.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Parse decodes data and reads every record into a Table.
func Parse(data []byte, opt Options) (*parser.Table, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("csv: decode: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if opt.Comma != 0 {
		r.Comma = opt.Comma
	}

	t := &parser.Table{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read: %w", err)
		}
		line, _ := r.FieldPos(0)
		t.Append(line, rec)
	}
	return t, nil
}
