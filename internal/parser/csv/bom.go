package csv

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Decode returns b as UTF-8. A UTF-8 BOM is stripped, UTF-16 input with a
// BOM is transcoded, and bytes that are not valid UTF-8 are read as
// Windows-1252, the usual encoding of spreadsheet CSV exports on Windows.
func Decode(b []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(b, utf8BOM):
		return b[len(utf8BOM):], nil
	case bytes.HasPrefix(b, utf16LEBOM), bytes.HasPrefix(b, utf16BEBOM):
		return transcode(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), b)
	case utf8.Valid(b):
		return b, nil
	default:
		return transcode(charmap.Windows1252, b)
	}
}

func transcode(enc encoding.Encoding, b []byte) ([]byte, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, err
	}
	return out, nil
}
