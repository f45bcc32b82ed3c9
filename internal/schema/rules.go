package schema

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the normalization applied to a field.
type Kind string

const (
	KindText     Kind = "text"
	KindCurrency Kind = "currency"
	KindInteger  Kind = "integer"
	KindDate     Kind = "date"
	KindEnum     Kind = "enum"
	KindJSON     Kind = "json"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindCurrency, KindInteger, KindDate, KindEnum, KindJSON:
		return true
	}
	return false
}

// EnumTable maps accepted spellings to stored codes. Lookups are
// case-insensitive and ignore surrounding whitespace.
type EnumTable struct {
	codes map[string]any
}

// NewEnumTable builds an EnumTable. Integer-like codes are stored as int64 so
// that YAML ints, JSON floats and Go literals compare equal downstream.
func NewEnumTable(spellings map[string]any) (*EnumTable, error) {
	t := &EnumTable{codes: make(map[string]any, len(spellings))}
	for s, code := range spellings {
		key := CanonicalHeader(s)
		if key == "" {
			return nil, fmt.Errorf("schema: enum spelling must not be empty")
		}
		c, err := normalizeCode(code)
		if err != nil {
			return nil, fmt.Errorf("schema: enum spelling %q: %w", s, err)
		}
		t.codes[key] = c
	}
	return t, nil
}

// Lookup returns the code for spelling s.
func (t *EnumTable) Lookup(s string) (any, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.codes[CanonicalHeader(s)]
	return c, ok
}

// Len is the number of accepted spellings.
func (t *EnumTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

func normalizeCode(v any) (any, error) {
	switch c := v.(type) {
	case int:
		return int64(c), nil
	case int32:
		return int64(c), nil
	case int64:
		return c, nil
	case uint64:
		if c > math.MaxInt64 {
			return nil, fmt.Errorf("code %d overflows int64", c)
		}
		return int64(c), nil
	case float64:
		if c != math.Trunc(c) {
			return nil, fmt.Errorf("code %v is not an integer", c)
		}
		return int64(c), nil
	case bool:
		if c {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return strings.TrimSpace(c), nil
	default:
		return nil, fmt.Errorf("unsupported code type %T", v)
	}
}

// FieldRule is the per-field normalization rule. Default applies only to enum
// fields and only when HasDefault is set; a miss otherwise yields null.
type FieldRule struct {
	Kind       Kind
	Enum       *EnumTable
	Default    any
	HasDefault bool
}

// DeriveFunc names how a derived field is computed.
type DeriveFunc string

const (
	DeriveSlug     DeriveFunc = "slug"
	DeriveCopy     DeriveFunc = "copy"
	DeriveConstant DeriveFunc = "constant"
)

// DerivedField is computed after all source fields are normalized, from the
// normalized value of Source (or from Value for constants).
type DerivedField struct {
	Field  string     `yaml:"field" json:"field"`
	Source string     `yaml:"source,omitempty" json:"source,omitempty"`
	Func   DeriveFunc `yaml:"func" json:"func"`
	Value  any        `yaml:"value,omitempty" json:"value,omitempty"`
}

// CompareCheck is one column compared between input and the stored row.
// Date checks report missing values on either side separately.
type CompareCheck struct {
	Field string `yaml:"field" json:"field"`
	Issue string `yaml:"issue" json:"issue"`
	Date  bool   `yaml:"date,omitempty" json:"date,omitempty"`
}
