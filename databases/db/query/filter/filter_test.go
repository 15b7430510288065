package filter

import (
	"testing"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type values map[string]any

func (v values) PropertyValue(propertyId string) (any, bool) {
	x, ok := v[propertyId]
	return x, ok
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		filters    []Filter
		mode       FilteringMode
		wantSQL    string
		wantParams []any
	}{
		{"empty", nil, FilteringModeInclusive, "", nil},
		{"equal", []Filter{Eq("NAME", "Ville")}, FilteringModeInclusive, ` WHERE "NAME" = ?`, []any{"Ville"}},
		{"equal null", []Filter{Eq("NAME", nil)}, FilteringModeInclusive, ` WHERE "NAME" IS NULL`, nil},
		{"greater", []Filter{Gt("AGE", 18)}, FilteringModeInclusive, ` WHERE "AGE" > ?`, []any{18}},
		{"like", []Filter{NewLike("name", "%lle")}, FilteringModeInclusive, ` WHERE "name" LIKE ?`, []any{"%lle"}},
		{"like ignore case", []Filter{Like{PropertyId: "NAME", Pattern: "v%"}}, FilteringModeInclusive, ` WHERE UPPER("NAME") LIKE UPPER(?)`, []any{"v%"}},
		{"between", []Filter{Between{PropertyId: "AGE", Low: 1, High: 5}}, FilteringModeInclusive, ` WHERE "AGE" BETWEEN ? AND ?`, []any{1, 5}},
		{"is not null", []Filter{Not{Filter: IsNull{PropertyId: "AGE"}}}, FilteringModeInclusive, ` WHERE "AGE" IS NOT NULL`, nil},
		{"not", []Filter{Not{Filter: Eq("AGE", 3)}}, FilteringModeInclusive, ` WHERE NOT "AGE" = ?`, []any{3}},
		{
			"top level and",
			[]Filter{Eq("A", 1), Lt("B", 2)},
			FilteringModeInclusive,
			` WHERE "A" = ? AND "B" < ?`,
			[]any{1, 2},
		},
		{
			"top level or",
			[]Filter{Eq("A", 1), Lt("B", 2)},
			FilteringModeExclusive,
			` WHERE "A" = ? OR "B" < ?`,
			[]any{1, 2},
		},
		{
			"nested compounds keep parameter order",
			[]Filter{NewOr(Eq("A", 1), NewAnd(Ge("B", 2), Le("C", 3))), Eq("D", 4)},
			FilteringModeInclusive,
			` WHERE ("A" = ? OR ("B" >= ? AND "C" <= ?)) AND "D" = ?`,
			[]any{1, 2, 3, 4},
		},
		{
			"simple string",
			[]Filter{SimpleString{PropertyId: "NAME", Text: "ll", IgnoreCase: true}},
			FilteringModeInclusive,
			` WHERE UPPER("NAME") LIKE UPPER(?)`,
			[]any{"%ll%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(tt.filters, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

type unknownFilter struct{}

func (unknownFilter) PropertyIds() []string { return nil }

func TestUnknownFilterIsUnsupported(t *testing.T) {
	_, _, err := Compile([]Filter{unknownFilter{}}, FilteringModeInclusive)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))

	_, err = Matches(unknownFilter{}, values{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))
}

type startsWithFilter struct {
	PropertyId string
	Prefix     string
}

func (f startsWithFilter) PropertyIds() []string { return []string{f.PropertyId} }

func TestRegisterCustomFilter(t *testing.T) {
	err := Register(startsWithFilter{}, Definition{
		Translate: func(c *Compiler, f Filter) (string, error) {
			return c.Translate(NewLike(f.(startsWithFilter).PropertyId, f.(startsWithFilter).Prefix+"%"))
		},
		Evaluate: func(f Filter, source ValueSource) (bool, error) {
			return Matches(NewLike(f.(startsWithFilter).PropertyId, f.(startsWithFilter).Prefix+"%"), source)
		},
	})
	require.NoError(t, err)

	sql, params, err := Compile([]Filter{startsWithFilter{PropertyId: "NAME", Prefix: "Ka"}}, FilteringModeInclusive)
	require.NoError(t, err)
	assert.Equal(t, ` WHERE "NAME" LIKE ?`, sql)
	assert.Equal(t, []any{"Ka%"}, params)

	ok, err := Matches(startsWithFilter{PropertyId: "NAME", Prefix: "Ka"}, values{"NAME": "Kalle"})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, Register(startsWithFilter{}, Definition{}))
}

func TestMatches(t *testing.T) {
	row := values{
		"NAME":    "Kalle",
		"AGE":     int32(23),
		"SALARY":  decimal.RequireFromString("1500.50"),
		"BORN":    time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		"NOTE":    nil,
		"ACTIVE":  true,
		"ADDRESS": []byte("Main street"),
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"equal string", Eq("NAME", "Kalle"), true},
		{"equal number across kinds", Eq("AGE", int64(23)), true},
		{"equal float and int", Eq("AGE", 23.0), true},
		{"greater decimal", Gt("SALARY", 1000), true},
		{"less decimal", Lt("SALARY", 1000), false},
		{"string lexicographic", Lt("NAME", "Pelle"), true},
		{"time ordering", Gt("BORN", time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)), true},
		{"equal null", Eq("NOTE", nil), true},
		{"compare null cell", Gt("NOTE", 1), false},
		{"mismatched kinds", Gt("NAME", 3), false},
		{"like ends with", NewLike("NAME", "%lle"), true},
		{"like starts with", NewLike("NAME", "Ka%"), true},
		{"like contains", NewLike("NAME", "%al%"), true},
		{"like underscore", NewLike("NAME", "K_lle"), true},
		{"like case sensitive miss", NewLike("NAME", "%LLE"), false},
		{"like case insensitive", Like{PropertyId: "NAME", Pattern: "%LLE"}, true},
		{"like on bytes", NewLike("ADDRESS", "Main%"), true},
		{"like on null", NewLike("NOTE", "%"), false},
		{"between", Between{PropertyId: "AGE", Low: 20, High: 23}, true},
		{"between outside", Between{PropertyId: "AGE", Low: 24, High: 30}, false},
		{"is null", IsNull{PropertyId: "NOTE"}, true},
		{"not is null", Not{Filter: IsNull{PropertyId: "NAME"}}, true},
		{"and", NewAnd(Eq("ACTIVE", true), Gt("AGE", 20)), true},
		{"or", NewOr(Eq("NAME", "Ville"), Eq("NAME", "Kalle")), true},
		{"empty and", NewAnd(), true},
		{"empty or", NewOr(), false},
		{"simple string prefix", SimpleString{PropertyId: "NAME", Text: "ka", IgnoreCase: true, OnlyMatchPrefix: true}, true},
		{"simple string case", SimpleString{PropertyId: "NAME", Text: "ka", OnlyMatchPrefix: true}, false},
		{"missing property", Eq("CITY", "Turku"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(tt.filter, row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesAll(t *testing.T) {
	filters := []Filter{Eq("NAME", "Kalle"), Eq("AGE", 99)}
	row := values{"NAME": "Kalle", "AGE": 23}

	ok, err := MatchesAll(filters, FilteringModeInclusive, row)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = MatchesAll(filters, FilteringModeExclusive, row)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchesAll(nil, FilteringModeExclusive, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEndsWithOverNames(t *testing.T) {
	var kept []string
	for _, name := range []string{"Ville", "Kalle", "Pelle", "Börje"} {
		ok, err := Matches(NewLike("NAME", "%lle"), values{"NAME": name})
		require.NoError(t, err)
		if ok {
			kept = append(kept, name)
		}
	}
	assert.Equal(t, []string{"Ville", "Kalle", "Pelle"}, kept)
}

func TestAppliesToProperty(t *testing.T) {
	f := NewAnd(Eq("A", 1), Not{Filter: IsNull{PropertyId: "B"}})
	assert.True(t, AppliesToProperty(f, "A"))
	assert.True(t, AppliesToProperty(f, "B"))
	assert.False(t, AppliesToProperty(f, "C"))
	assert.Equal(t, []string{"A", "B"}, f.PropertyIds())
}
