// Package schema describes how spreadsheet headers map onto target table
// fields and which normalization rule applies to each field.
//
// Everything in this package is built once per run and is read-only
// afterwards; the normalizer and executor share the same *Profile without
// locking.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Alias maps one input header spelling onto a target field.
type Alias struct {
	Header string `yaml:"header" json:"header"`
	Field  string `yaml:"field" json:"field"`
}

// OccurrenceOverride binds the Nth (0-based) occurrence of a header that
// appears more than once in the input to a target field.
type OccurrenceOverride struct {
	Header     string `yaml:"header" json:"header"`
	Occurrence int    `yaml:"occurrence" json:"occurrence"`
	Field      string `yaml:"field" json:"field"`
}

type overrideKey struct {
	header string
	idx    int
}

// ColumnMapping is the immutable header -> field table for a profile.
type ColumnMapping struct {
	aliases   map[string]string
	overrides map[overrideKey]string
	fields    []string
}

var folder = cases.Fold()

// CanonicalHeader returns the comparison key used for headers and enum
// spellings: NFC normalized, trimmed, inner whitespace collapsed, case folded.
func CanonicalHeader(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

// NewColumnMapping validates aliases and overrides and builds a mapping.
// Two spellings may point at the same field; one spelling may not point at
// two different fields.
func NewColumnMapping(aliases []Alias, overrides []OccurrenceOverride) (*ColumnMapping, error) {
	m := &ColumnMapping{
		aliases:   make(map[string]string, len(aliases)),
		overrides: make(map[overrideKey]string, len(overrides)),
	}
	seenField := make(map[string]bool)
	addField := func(f string) {
		if !seenField[f] {
			seenField[f] = true
			m.fields = append(m.fields, f)
		}
	}

	for i, a := range aliases {
		key := CanonicalHeader(a.Header)
		field := strings.TrimSpace(a.Field)
		if key == "" || field == "" {
			return nil, fmt.Errorf("schema: alias[%d]: header and field are required", i)
		}
		if prev, ok := m.aliases[key]; ok && prev != field {
			return nil, fmt.Errorf("schema: alias[%d]: header %q already maps to %q", i, a.Header, prev)
		}
		m.aliases[key] = field
		addField(field)
	}

	for i, o := range overrides {
		key := CanonicalHeader(o.Header)
		field := strings.TrimSpace(o.Field)
		if key == "" || field == "" {
			return nil, fmt.Errorf("schema: override[%d]: header and field are required", i)
		}
		if o.Occurrence < 0 {
			return nil, fmt.Errorf("schema: override[%d]: occurrence must be >= 0, got %d", i, o.Occurrence)
		}
		k := overrideKey{header: key, idx: o.Occurrence}
		if prev, ok := m.overrides[k]; ok && prev != field {
			return nil, fmt.Errorf("schema: override[%d]: %q occurrence %d already maps to %q", i, o.Header, o.Occurrence, prev)
		}
		m.overrides[k] = field
		addField(field)
	}

	return m, nil
}

// Fields lists every target field the mapping can produce, in declaration order.
func (m *ColumnMapping) Fields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m *ColumnMapping) alias(canon string) (string, bool) {
	f, ok := m.aliases[canon]
	return f, ok
}

func (m *ColumnMapping) override(canon string, idx int) (string, bool) {
	f, ok := m.overrides[overrideKey{header: canon, idx: idx}]
	return f, ok
}
