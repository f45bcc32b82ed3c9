package schema

import (
	"fmt"
	"strings"
)

// FieldSpec is the declarative form of a FieldRule.
type FieldSpec struct {
	Kind    Kind           `yaml:"kind" json:"kind"`
	Enum    map[string]any `yaml:"enum,omitempty" json:"enum,omitempty"`
	Default any            `yaml:"default,omitempty" json:"default,omitempty"`
}

// ProfileSpec is the declarative, serializable description of an import
// profile. NewProfile turns it into an immutable Profile.
type ProfileSpec struct {
	Name      string               `yaml:"name" json:"name"`
	Table     string               `yaml:"table" json:"table"`
	Marker    string               `yaml:"marker" json:"marker"`
	Key       string               `yaml:"key" json:"key"`
	SlugField string               `yaml:"slug_field,omitempty" json:"slug_field,omitempty"`
	Aliases   []Alias              `yaml:"aliases" json:"aliases"`
	Overrides []OccurrenceOverride `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	Fields    map[string]FieldSpec `yaml:"fields,omitempty" json:"fields,omitempty"`
	Derived   []DerivedField       `yaml:"derived,omitempty" json:"derived,omitempty"`
	Compare   []CompareCheck       `yaml:"compare,omitempty" json:"compare,omitempty"`
}

// Profile bundles the mapping, rules and derived fields for one target table.
type Profile struct {
	name      string
	table     string
	marker    string
	key       string
	slugField string
	mapping   *ColumnMapping
	rules     map[string]FieldRule
	derived   []DerivedField
	compare   []CompareCheck
}

// NewProfile validates spec and builds a Profile. Fields without an explicit
// rule are text.
func NewProfile(spec ProfileSpec) (*Profile, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = "custom"
	}
	if strings.TrimSpace(spec.Table) == "" {
		return nil, fmt.Errorf("schema: profile %q: table is required", name)
	}
	if strings.TrimSpace(spec.Marker) == "" {
		return nil, fmt.Errorf("schema: profile %q: marker header is required", name)
	}

	m, err := NewColumnMapping(spec.Aliases, spec.Overrides)
	if err != nil {
		return nil, fmt.Errorf("schema: profile %q: %w", name, err)
	}

	p := &Profile{
		name:      name,
		table:     strings.TrimSpace(spec.Table),
		marker:    spec.Marker,
		key:       strings.TrimSpace(spec.Key),
		slugField: strings.TrimSpace(spec.SlugField),
		mapping:   m,
		rules:     make(map[string]FieldRule, len(spec.Fields)),
	}

	known := make(map[string]bool)
	for _, f := range m.Fields() {
		known[f] = true
	}

	for field, fs := range spec.Fields {
		rule, err := buildRule(field, fs)
		if err != nil {
			return nil, fmt.Errorf("schema: profile %q: %w", name, err)
		}
		p.rules[field] = rule
	}

	for i, d := range spec.Derived {
		if strings.TrimSpace(d.Field) == "" {
			return nil, fmt.Errorf("schema: profile %q: derived[%d]: field is required", name, i)
		}
		switch d.Func {
		case DeriveSlug, DeriveCopy:
			if !known[d.Source] {
				return nil, fmt.Errorf("schema: profile %q: derived %q: unknown source field %q", name, d.Field, d.Source)
			}
		case DeriveConstant:
			if d.Value == nil {
				return nil, fmt.Errorf("schema: profile %q: derived %q: constant needs a value", name, d.Field)
			}
		default:
			return nil, fmt.Errorf("schema: profile %q: derived %q: unknown func %q", name, d.Field, d.Func)
		}
		if known[d.Field] {
			return nil, fmt.Errorf("schema: profile %q: derived %q collides with a mapped field", name, d.Field)
		}
		known[d.Field] = true
		p.derived = append(p.derived, d)
	}

	if p.key != "" && !known[p.key] {
		return nil, fmt.Errorf("schema: profile %q: key %q is not a mapped field", name, p.key)
	}
	for i, c := range spec.Compare {
		if !known[c.Field] || strings.TrimSpace(c.Issue) == "" {
			return nil, fmt.Errorf("schema: profile %q: compare[%d]: needs a known field and an issue name", name, i)
		}
		p.compare = append(p.compare, c)
	}

	return p, nil
}

func buildRule(field string, fs FieldSpec) (FieldRule, error) {
	kind := fs.Kind
	if kind == "" {
		kind = KindText
	}
	if !kind.Valid() {
		return FieldRule{}, fmt.Errorf("field %q: unknown kind %q", field, fs.Kind)
	}
	rule := FieldRule{Kind: kind}
	if kind != KindEnum {
		if len(fs.Enum) > 0 || fs.Default != nil {
			return FieldRule{}, fmt.Errorf("field %q: enum table and default are only valid for enum fields", field)
		}
		return rule, nil
	}
	if len(fs.Enum) == 0 {
		return FieldRule{}, fmt.Errorf("field %q: enum field needs at least one spelling", field)
	}
	t, err := NewEnumTable(fs.Enum)
	if err != nil {
		return FieldRule{}, fmt.Errorf("field %q: %w", field, err)
	}
	rule.Enum = t
	if fs.Default != nil {
		d, err := normalizeCode(fs.Default)
		if err != nil {
			return FieldRule{}, fmt.Errorf("field %q: default: %w", field, err)
		}
		rule.Default = d
		rule.HasDefault = true
	}
	return rule, nil
}

func (p *Profile) Name() string            { return p.name }
func (p *Profile) Table() string           { return p.table }
func (p *Profile) Marker() string          { return p.marker }
func (p *Profile) Key() string             { return p.key }
func (p *Profile) Mapping() *ColumnMapping { return p.mapping }

// SlugField is the field holding the URL identifier, if any.
func (p *Profile) SlugField() string { return p.slugField }

// Rule returns the rule for field; unknown fields are text.
func (p *Profile) Rule(field string) FieldRule {
	if r, ok := p.rules[field]; ok {
		return r
	}
	return FieldRule{Kind: KindText}
}

// Derived returns the derived fields in evaluation order.
func (p *Profile) Derived() []DerivedField {
	out := make([]DerivedField, len(p.derived))
	copy(out, p.derived)
	return out
}

// Compare returns the columns checked by the comparison report.
func (p *Profile) Compare() []CompareCheck {
	out := make([]CompareCheck, len(p.compare))
	copy(out, p.compare)
	return out
}

// WithOverrides returns a copy of p with table, key or marker replaced when
// the corresponding argument is non-empty.
func (p *Profile) WithOverrides(table, key, marker string) (*Profile, error) {
	cp := *p
	if table = strings.TrimSpace(table); table != "" {
		cp.table = table
	}
	if marker != "" {
		cp.marker = marker
	}
	if key = strings.TrimSpace(key); key != "" {
		ok := false
		for _, f := range p.mapping.Fields() {
			if f == key {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("schema: profile %q: key %q is not a mapped field", p.name, key)
		}
		cp.key = key
	}
	return &cp, nil
}
