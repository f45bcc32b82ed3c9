package schema

import (
	"errors"
	"sort"
)

// ErrNoColumnsResolved is returned when not a single input header maps onto
// a target field. Inserting all-null rows is never useful, so callers treat
// this as fatal.
var ErrNoColumnsResolved = errors.New("schema: no input header resolved to a target field")

// Binding is one resolved input column.
type Binding struct {
	Position int
	Header   string
	Field    string
}

// Resolution maps input column positions to target fields.
type Resolution struct {
	bindings   []Binding
	byPosition map[int]string
	Unmapped   []string
}

// Resolve walks the header row left to right and binds positions to fields.
//
// A header that occurs once uses its plain alias. A header that occurs more
// than once only binds through an explicit (header, occurrence) override;
// occurrences without an override stay unmapped. Each field is bound at most
// once and the leftmost binding wins.
func Resolve(headers []string, m *ColumnMapping) (*Resolution, error) {
	canon := make([]string, len(headers))
	counts := make(map[string]int, len(headers))
	for i, h := range headers {
		canon[i] = CanonicalHeader(h)
		if canon[i] != "" {
			counts[canon[i]]++
		}
	}

	res := &Resolution{byPosition: make(map[int]string)}
	bound := make(map[string]bool)
	seen := make(map[string]int, len(headers))

	for i, c := range canon {
		if c == "" {
			continue
		}
		occ := seen[c]
		seen[c]++

		var (
			field string
			ok    bool
		)
		if counts[c] > 1 {
			field, ok = m.override(c, occ)
		} else {
			field, ok = m.alias(c)
		}
		if !ok || bound[field] {
			res.Unmapped = append(res.Unmapped, headers[i])
			continue
		}
		bound[field] = true
		res.byPosition[i] = field
		res.bindings = append(res.bindings, Binding{Position: i, Header: headers[i], Field: field})
	}

	if len(res.bindings) == 0 {
		return nil, ErrNoColumnsResolved
	}
	return res, nil
}

// Field returns the field bound at position pos.
func (r *Resolution) Field(pos int) (string, bool) {
	f, ok := r.byPosition[pos]
	return f, ok
}

// Bindings returns the resolved columns ordered by input position.
func (r *Resolution) Bindings() []Binding {
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Fields returns the bound field names ordered by input position.
func (r *Resolution) Fields() []string {
	bs := r.Bindings()
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Field
	}
	return out
}

// Len is the number of resolved positions.
func (r *Resolution) Len() int { return len(r.bindings) }
