package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustMapping(t *testing.T, aliases []Alias, overrides []OccurrenceOverride) *ColumnMapping {
	t.Helper()
	m, err := NewColumnMapping(aliases, overrides)
	if err != nil {
		t.Fatalf("NewColumnMapping: %v", err)
	}
	return m
}

/*
TestResolve_DuplicateHeadersUseOverrides verifies that a header repeated in
the input binds each occurrence through the override table.
*/
func TestResolve_DuplicateHeadersUseOverrides(t *testing.T) {
	t.Parallel()

	m := mustMapping(t, nil, []OccurrenceOverride{
		{Header: "Code", Occurrence: 0, Field: "a"},
		{Header: "Code", Occurrence: 1, Field: "b"},
	})

	res, err := Resolve([]string{"Code", "Code"}, m)
	require.NoError(t, err)

	f0, ok := res.Field(0)
	require.True(t, ok)
	require.Equal(t, "a", f0)
	f1, ok := res.Field(1)
	require.True(t, ok)
	require.Equal(t, "b", f1)
}

/*
TestResolve_DuplicateWithoutOverrideIsUnmapped checks that an occurrence of a
repeated header without an override is dropped, even when the header has a
plain alias.
*/
func TestResolve_DuplicateWithoutOverrideIsUnmapped(t *testing.T) {
	t.Parallel()

	m := mustMapping(t,
		[]Alias{{Header: "Flats Unique ID", Field: "flat_unique_id"}, {Header: "Name", Field: "name"}},
		[]OccurrenceOverride{{Header: "Flats Unique ID", Occurrence: 1, Field: "flat_unique_id"}},
	)

	res, err := Resolve([]string{"Name", "Flats Unique ID", "x", "Flats Unique ID"}, m)
	require.NoError(t, err)

	_, ok := res.Field(1)
	require.False(t, ok, "first occurrence has no override")
	f, ok := res.Field(3)
	require.True(t, ok)
	require.Equal(t, "flat_unique_id", f)
	require.Equal(t, []string{"name", "flat_unique_id"}, res.Fields())
	require.ElementsMatch(t, []string{"Flats Unique ID", "x"}, res.Unmapped)
}

func TestResolve_FirstBindingWins(t *testing.T) {
	t.Parallel()

	m := mustMapping(t, []Alias{
		{Header: "Monthly Rent", Field: "selling_price"},
		{Header: "Rent", Field: "selling_price"},
	}, nil)

	res, err := Resolve([]string{"Rent", "Monthly Rent"}, m)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	f, _ := res.Field(0)
	require.Equal(t, "selling_price", f)
}

func TestResolve_CanonicalMatching(t *testing.T) {
	t.Parallel()

	m := mustMapping(t, []Alias{{Header: "Flat Master Name", Field: "name"}}, nil)
	res, err := Resolve([]string{"  flat   MASTER name "}, m)
	require.NoError(t, err)
	f, ok := res.Field(0)
	require.True(t, ok)
	require.Equal(t, "name", f)
}

func TestResolve_NothingResolved(t *testing.T) {
	t.Parallel()

	m := mustMapping(t, []Alias{{Header: "Name", Field: "name"}}, nil)
	_, err := Resolve([]string{"foo", "bar", ""}, m)
	if !errors.Is(err, ErrNoColumnsResolved) {
		t.Fatalf("err = %v, want ErrNoColumnsResolved", err)
	}
}

func TestNewColumnMapping_Conflicts(t *testing.T) {
	t.Parallel()

	_, err := NewColumnMapping([]Alias{
		{Header: "Name", Field: "name"},
		{Header: "NAME", Field: "title"},
	}, nil)
	require.Error(t, err)

	_, err = NewColumnMapping(nil, []OccurrenceOverride{{Header: "x", Occurrence: -1, Field: "y"}})
	require.Error(t, err)
}

func TestEnumTable_CaseInsensitive(t *testing.T) {
	t.Parallel()

	tbl, err := NewEnumTable(map[string]any{"yes": 1, "no": 0, "On Hold": "2"})
	require.NoError(t, err)

	for _, s := range []string{"Yes", "YES", " yes "} {
		code, ok := tbl.Lookup(s)
		require.True(t, ok, s)
		require.Equal(t, int64(1), code)
	}
	code, ok := tbl.Lookup("on hold")
	require.True(t, ok)
	require.Equal(t, "2", code)

	_, ok = tbl.Lookup("maybe")
	require.False(t, ok)
}

/*
TestFlats_Profile exercises the built-in profile: it must build, and the
per-field default asymmetry between parking and opt-out must hold.
*/
func TestFlats_Profile(t *testing.T) {
	t.Parallel()

	p, err := Flats()
	require.NoError(t, err)
	require.Equal(t, "flats", p.Table())
	require.Equal(t, "name", p.Key())
	require.Equal(t, "Flat Master Name", p.Marker())

	parking := p.Rule("reserved_car_parking_available")
	require.Equal(t, KindEnum, parking.Kind)
	require.True(t, parking.HasDefault)
	require.Equal(t, int64(0), parking.Default)

	optOut := p.Rule("email_opt_out")
	require.Equal(t, KindEnum, optOut.Kind)
	require.False(t, optOut.HasDefault)

	require.Equal(t, KindCurrency, p.Rule("selling_price").Kind)
	require.Equal(t, KindDate, p.Rule("added_date").Kind)
	require.Equal(t, KindInteger, p.Rule("floor_number").Kind)
	require.Equal(t, KindJSON, p.Rule("product_tags").Kind)
	require.Equal(t, KindText, p.Rule("description").Kind)

	facing := p.Rule("flat_facing")
	code, ok := facing.Enum.Lookup("SOUTH WEST")
	require.True(t, ok)
	require.Equal(t, int64(8), code)

	require.Len(t, p.Derived(), 3)
	require.Len(t, p.Compare(), 5)
}

func TestNewProfile_Validation(t *testing.T) {
	t.Parallel()

	base := func() ProfileSpec {
		return ProfileSpec{
			Name:    "t",
			Table:   "items",
			Marker:  "Name",
			Key:     "name",
			Aliases: []Alias{{Header: "Name", Field: "name"}},
		}
	}

	cases := []struct {
		name   string
		mutate func(*ProfileSpec)
	}{
		{"missing table", func(s *ProfileSpec) { s.Table = "" }},
		{"missing marker", func(s *ProfileSpec) { s.Marker = "" }},
		{"unknown key", func(s *ProfileSpec) { s.Key = "nope" }},
		{"bad kind", func(s *ProfileSpec) { s.Fields = map[string]FieldSpec{"name": {Kind: "blob"}} }},
		{"enum without table", func(s *ProfileSpec) { s.Fields = map[string]FieldSpec{"name": {Kind: KindEnum}} }},
		{"default on text", func(s *ProfileSpec) { s.Fields = map[string]FieldSpec{"name": {Kind: KindText, Default: 1}} }},
		{"derived unknown source", func(s *ProfileSpec) {
			s.Derived = []DerivedField{{Field: "slug", Source: "title", Func: DeriveSlug}}
		}},
		{"derived collides", func(s *ProfileSpec) {
			s.Derived = []DerivedField{{Field: "name", Func: DeriveConstant, Value: "x"}}
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := base()
			tc.mutate(&s)
			if _, err := NewProfile(s); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	p, err := NewProfile(base())
	require.NoError(t, err)

	p2, err := p.WithOverrides("public.items", "", "")
	require.NoError(t, err)
	require.Equal(t, "public.items", p2.Table())
	require.Equal(t, "items", p.Table(), "original profile must be unchanged")

	_, err = p.WithOverrides("", "missing", "")
	require.Error(t, err)
}
