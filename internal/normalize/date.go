package normalize

import (
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order; the first layout that consumes the whole
// string wins. US month-first order is preferred over EU day-first order.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"2006-01-02T15:04:05",
	"02-Jan-2006",
	"02.01.2006",
	"2006/1/2",
}

// Spreadsheet day serials accepted as dates: 1927-05-18 through 9999-12-31.
// Smaller numbers are far more likely to be years or counts than dates.
const (
	minExcelSerial = 10000
	maxExcelSerial = 2958465
)

// Date parses a date cell. Raw spreadsheet cells that hold a day serial
// (e.g. "45292") are accepted as a last resort.
func Date(s string) (time.Time, bool) {
	c := CleanText(s)
	if IsNullToken(c) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, c); err == nil {
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(c, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DateValue is Date as a column value: time.Time or nil.
func DateValue(s string) any {
	if t, ok := Date(s); ok {
		return t
	}
	return nil
}
