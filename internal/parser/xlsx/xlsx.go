// Package xlsx reads one worksheet of an Excel workbook into a parser.Table.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"flatloader/internal/parser"
)

// Options selects the worksheet. An empty Sheet means the first sheet.
type Options struct {
	Sheet string
}

// Parse opens the workbook from memory and returns the sheet's rows.
//
// Cells are read raw: number formats are not applied, so currency cells come
// through as plain numbers and date cells as day serials, both of which the
// normalizer understands.
func Parse(data []byte, opt Options) (*parser.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheet, err)
	}

	t := &parser.Table{}
	for i, row := range rows {
		t.Append(i+1, row)
	}
	return t, nil
}
