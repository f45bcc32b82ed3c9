package importer

import (
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"flatloader/internal/normalize"
)

// fingerprint hashes the normalized values of rec in column order. Each
// value is tagged with its type so "1" and int64(1) differ.
func fingerprint(columns []string, rec normalize.Record, buf []byte) (xxh3.Uint128, []byte) {
	b := buf[:0]
	for _, c := range columns {
		b = append(b, c...)
		b = append(b, 0x1f)
		switch v := rec[c].(type) {
		case nil:
			b = append(b, 'n')
		case string:
			b = append(b, 's')
			b = append(b, v...)
		case int64:
			b = append(b, 'i')
			b = strconv.AppendInt(b, v, 10)
		case int:
			b = append(b, 'i')
			b = strconv.AppendInt(b, int64(v), 10)
		case float64:
			b = append(b, 'f')
			b = strconv.AppendUint(b, math.Float64bits(v), 16)
		case bool:
			b = append(b, 'b')
			b = strconv.AppendBool(b, v)
		case time.Time:
			b = append(b, 't')
			b = v.UTC().AppendFormat(b, time.RFC3339Nano)
		default:
			b = append(b, 'x')
			b = append(b, toString(v)...)
		}
		b = append(b, 0x1e)
	}
	return xxh3.Hash128(b), b
}
