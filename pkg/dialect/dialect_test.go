package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func TestBuilderDefaults(t *testing.T) {
	d := dialect.NewDialect("ansi").Build()

	assert.Equal(t, "ansi", d.Name)
	assert.Equal(t, `"`, d.Quote)
	assert.Equal(t, `"`, d.QuoteEnd)
	assert.Equal(t, dialect.NormPreserve, d.Normalization)
	assert.Equal(t, dialect.StyleLimitOffset, d.Limit)
	assert.True(t, d.SupportsWindow)
	assert.True(t, d.SupportsFullJoin)
	assert.False(t, d.BoolAsInt)
	assert.Equal(t, "DATE '%s'", d.DateTemplate)
}

func TestBuilderChaining(t *testing.T) {
	d := dialect.NewDialect("custom").
		Identifiers("[", "]", "]]", dialect.NormUppercase).
		LimitStyle(dialect.StyleTop).
		NoWindowFunctions().
		NoFullJoin().
		BoolAsInt().
		DateLiteral("'%s'").
		Function("length", "LEN(%s)").
		Functions(map[string]string{"ceil": "CEILING(%s)"}).
		ReservedWords("pivot").
		Build()

	assert.Equal(t, "[", d.Quote)
	assert.Equal(t, "]", d.QuoteEnd)
	assert.Equal(t, dialect.NormUppercase, d.Normalization)
	assert.Equal(t, dialect.StyleTop, d.Limit)
	assert.False(t, d.SupportsWindow)
	assert.False(t, d.SupportsFullJoin)
	assert.True(t, d.BoolAsInt)
	assert.Equal(t, "'%s'", d.DateTemplate)

	tmpl, ok := d.FunctionSQL("length")
	require.True(t, ok)
	assert.Equal(t, "LEN(%s)", tmpl)
	tmpl, ok = d.FunctionSQL("ceil")
	require.True(t, ok)
	assert.Equal(t, "CEILING(%s)", tmpl)

	assert.True(t, d.IsReservedWord("pivot"))
	assert.True(t, d.IsReservedWord("PIVOT"))
}

func TestStandardFunctions(t *testing.T) {
	d := dialect.NewDialect("ansi").Build()

	tmpl, ok := d.FunctionSQL("average")
	require.True(t, ok)
	assert.Equal(t, "AVG(%s)", tmpl)

	tmpl, ok = d.FunctionSQL("round")
	require.True(t, ok)
	assert.Equal(t, "ROUND(%[2]s, %[1]s)", tmpl)

	_, ok = d.FunctionSQL("frobnicate")
	assert.False(t, ok)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		norm dialect.Normalization
		in   string
		want string
	}{
		{dialect.NormPreserve, "MixedCase", "MixedCase"},
		{dialect.NormLowercase, "MixedCase", "mixedcase"},
		{dialect.NormUppercase, "MixedCase", "MIXEDCASE"},
	}

	for _, tt := range tests {
		d := dialect.NewDialect("n").Identifiers(`"`, `"`, `""`, tt.norm).Build()
		assert.Equal(t, tt.want, d.NormalizeName(tt.in))
	}
}

func TestQuoteIdentifier(t *testing.T) {
	ansi := dialect.NewDialect("ansi").Build()
	assert.Equal(t, `"name"`, ansi.QuoteIdentifier("name"))
	assert.Equal(t, `"say ""hi"""`, ansi.QuoteIdentifier(`say "hi"`))

	brackets := dialect.NewDialect("b").Identifiers("[", "]", "]]", dialect.NormPreserve).Build()
	assert.Equal(t, "[a]]b]", brackets.QuoteIdentifier("a]b"))
}

func TestQuoteIfNeeded(t *testing.T) {
	d := dialect.NewDialect("ansi").Build()

	tests := []struct {
		in   string
		want string
	}{
		{"salary", "salary"},
		{"dept_id", "dept_id"},
		{"col2", "col2"},
		{"select", `"select"`},
		{"Order", `"Order"`},
		{"2fast", `"2fast"`},
		{"with space", `"with space"`},
		{"", `""`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, d.QuoteIfNeeded(tt.in), "input %q", tt.in)
	}
}

func TestLimitStyleString(t *testing.T) {
	assert.Equal(t, "LIMIT / OFFSET", dialect.StyleLimitOffset.String())
	assert.Equal(t, "LIMIT m, n", dialect.StyleLimitComma.String())
	assert.Equal(t, "TOP n", dialect.StyleTop.String())
	assert.Equal(t, "OFFSET .. FETCH", dialect.StyleOffsetFetch.String())
}
