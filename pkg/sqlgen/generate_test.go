package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/pkg/dialect"
	"github.com/leapstack-labs/leapq/pkg/parser"
	"github.com/leapstack-labs/leapq/pkg/rq"
	"github.com/leapstack-labs/leapq/pkg/semantic"
	"github.com/leapstack-labs/leapq/pkg/sqlgen"

	_ "github.com/leapstack-labs/leapq/pkg/dialects/generic"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/mssql"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/sqlite"
)

func mustResolve(t *testing.T, src string) *rq.Query {
	t.Helper()
	m, err := parser.Parse(src)
	require.NoError(t, err)
	q, err := semantic.Resolve(m, semantic.DefaultRegistry())
	require.NoError(t, err)
	return q
}

func gen(t *testing.T, src, target string) string {
	t.Helper()
	d, ok := dialect.Get(target)
	require.True(t, ok, "dialect %q not registered", target)
	sql, err := sqlgen.Generate(mustResolve(t, src), d, sqlgen.Options{Format: true})
	require.NoError(t, err)
	return sql
}

func TestGenerateSimpleSelect(t *testing.T) {
	d, _ := dialect.Get("generic")
	sql, err := sqlgen.Generate(
		mustResolve(t, "from employees | select {name, salary}"),
		d,
		sqlgen.Options{Format: true, SignatureComment: true, Version: "v0.1.0"},
	)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name, salary\nFROM employees\n-- Generated by LeapQ v0.1.0", sql)
}

func TestGenerateEmptyQuery(t *testing.T) {
	d, _ := dialect.Get("generic")
	sql, err := sqlgen.Generate(
		mustResolve(t, "  \n\n# nothing here\n"),
		d,
		sqlgen.Options{Format: true, SignatureComment: true, Version: "v0.1.0"},
	)
	require.NoError(t, err)
	assert.Equal(t, "", sql)
}

func TestGenerateNilDialect(t *testing.T) {
	_, err := sqlgen.Generate(mustResolve(t, "from t"), nil, sqlgen.Options{})
	assert.ErrorIs(t, err, dialect.ErrDialectRequired)
}

func TestFilterBeforeAndAfterAggregate(t *testing.T) {
	sql := gen(t, "from t | filter a > 1 | group {b} (aggregate {n = count a}) | filter n > 2", "generic")
	assert.Equal(t,
		"SELECT b, COUNT(a) AS n\nFROM t\nWHERE a > 1\nGROUP BY b\nHAVING COUNT(a) > 2",
		sql)
}

func TestAggregateWithoutKeys(t *testing.T) {
	sql := gen(t, "from t | aggregate {n = count a}", "generic")
	assert.Equal(t, "SELECT COUNT(a) AS n\nFROM t", sql)
}

func TestFilterAfterTakeSplitsQuery(t *testing.T) {
	sql := gen(t, "from t | take 10 | filter a > 1", "generic")
	assert.Equal(t,
		"WITH table_0 AS (\n"+
			"  SELECT *\n"+
			"  FROM t\n"+
			"  LIMIT 10\n"+
			")\n"+
			"SELECT *\n"+
			"FROM table_0\n"+
			"WHERE a > 1",
		sql)
}

func TestComputedColumnsInline(t *testing.T) {
	sql := gen(t, "from t | derive {c = a + 1} | select {a, c}", "generic")
	assert.Equal(t, "SELECT a, a + 1 AS c\nFROM t", sql)
}

func TestParenthesesFollowPrecedence(t *testing.T) {
	sql := gen(t, "from t | derive {x = (a + b) * c} | select {x}", "generic")
	assert.Equal(t, "SELECT (a + b) * c AS x\nFROM t", sql)
}

func TestOperatorSpelling(t *testing.T) {
	sql := gen(t, "from t | filter a != 1 && (b == 2 || c < 3)", "generic")
	assert.Equal(t, "SELECT *\nFROM t\nWHERE a <> 1 AND (b = 2 OR c < 3)", sql)
}

func TestNegation(t *testing.T) {
	sql := gen(t, "from t | filter !active", "generic")
	assert.Equal(t, "SELECT *\nFROM t\nWHERE NOT active", sql)
}

func TestJoinQualifiesColumns(t *testing.T) {
	sql := gen(t, "from a | join b (a.x == b.y)", "generic")
	assert.Equal(t, "SELECT *\nFROM a\nJOIN b ON a.x = b.y", sql)
}

func TestJoinSides(t *testing.T) {
	tests := []struct {
		side string
		kw   string
	}{
		{"inner", "JOIN b"},
		{"left", "LEFT JOIN b"},
		{"right", "RIGHT JOIN b"},
		{"full", "FULL JOIN b"},
	}

	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			sql := gen(t, "from a | join side:"+tt.side+" b (a.x == b.y)", "generic")
			assert.Contains(t, sql, tt.kw)
		})
	}
}

func TestFullJoinUnsupported(t *testing.T) {
	d, _ := dialect.Get("mysql")
	_, err := sqlgen.Generate(
		mustResolve(t, "from a | join side:full b (a.x == b.y)"),
		d,
		sqlgen.Options{Format: true},
	)
	require.Error(t, err)

	var genErr *sqlgen.Error
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "mysql", genErr.Dialect)
	assert.Equal(t, "FULL OUTER JOIN", genErr.Feature)
	assert.Contains(t, genErr.Error(), "does not support FULL OUTER JOIN")
}

func TestLimitStyles(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		target string
		want   string
	}{
		{
			name:   "generic limit",
			src:    "from t | take 5",
			target: "generic",
			want:   "SELECT *\nFROM t\nLIMIT 5",
		},
		{
			name:   "generic limit offset",
			src:    "from t | sort {a} | take 3..7",
			target: "generic",
			want:   "SELECT *\nFROM t\nORDER BY a\nLIMIT 5\nOFFSET 2",
		},
		{
			name:   "mysql limit",
			src:    "from t | take 5",
			target: "mysql",
			want:   "SELECT *\nFROM t\nLIMIT 5",
		},
		{
			name:   "mysql comma form",
			src:    "from t | sort {a} | take 3..7",
			target: "mysql",
			want:   "SELECT *\nFROM t\nORDER BY a\nLIMIT 2, 5",
		},
		{
			name:   "mssql top",
			src:    "from t | sort {a} | take 5",
			target: "mssql",
			want:   "SELECT TOP 5 *\nFROM t\nORDER BY a",
		},
		{
			name:   "mssql offset fetch",
			src:    "from t | sort {a} | take 3..7",
			target: "mssql",
			want:   "SELECT *\nFROM t\nORDER BY a\nOFFSET 2 ROWS\nFETCH NEXT 5 ROWS ONLY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen(t, tt.src, tt.target))
		})
	}
}

func TestOffsetFetchRequiresOrder(t *testing.T) {
	sql := gen(t, "from t | take 3..7", "mssql")
	assert.Equal(t,
		"SELECT *\nFROM t\nORDER BY (SELECT NULL)\nOFFSET 2 ROWS\nFETCH NEXT 5 ROWS ONLY",
		sql)
}

func TestSortKeys(t *testing.T) {
	sql := gen(t, "from t | sort {-a, b}", "generic")
	assert.Equal(t, "SELECT *\nFROM t\nORDER BY a DESC, b", sql)
}

func TestReservedWordQuoting(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"generic", "SELECT \"order\"\nFROM t"},
		{"mysql", "SELECT `order`\nFROM t"},
		{"mssql", "SELECT [order]\nFROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, gen(t, "from t | select {order}", tt.target))
		})
	}
}

func TestBooleanLiterals(t *testing.T) {
	assert.Equal(t, "SELECT *\nFROM t\nWHERE active = TRUE",
		gen(t, "from t | filter active == true", "generic"))
	assert.Equal(t, "SELECT *\nFROM t\nWHERE active = 1",
		gen(t, "from t | filter active == true", "mssql"))
}

func TestDateLiterals(t *testing.T) {
	assert.Equal(t, "SELECT *\nFROM t\nWHERE d > DATE '2024-01-31'",
		gen(t, "from t | filter d > @2024-01-31", "generic"))
	assert.Equal(t, "SELECT *\nFROM t\nWHERE d > '2024-01-31'",
		gen(t, "from t | filter d > @2024-01-31", "sqlite"))
}

func TestFunctionTemplates(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		target string
		want   string
	}{
		{
			name:   "round swaps arguments",
			src:    "from t | derive {r = round 2 price} | select {r}",
			target: "generic",
			want:   "SELECT ROUND(price, 2) AS r\nFROM t",
		},
		{
			name:   "mysql length",
			src:    "from t | derive {n = length name} | select {n}",
			target: "mysql",
			want:   "SELECT CHAR_LENGTH(name) AS n\nFROM t",
		},
		{
			name:   "mssql length",
			src:    "from t | derive {n = length name} | select {n}",
			target: "mssql",
			want:   "SELECT LEN(name) AS n\nFROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen(t, tt.src, tt.target))
		})
	}
}

func TestGroupAggregate(t *testing.T) {
	sql := gen(t, "from e | group {dept} (aggregate {avg_salary = average salary})", "generic")
	assert.Equal(t, "SELECT dept, AVG(salary) AS avg_salary\nFROM e\nGROUP BY dept", sql)
}

func TestGroupTakeBecomesWindow(t *testing.T) {
	sql := gen(t, "from e | group {dept} (sort {-salary} | take 1)", "generic")
	assert.Equal(t,
		"WITH table_0 AS (\n"+
			"  SELECT *, ROW_NUMBER() OVER (PARTITION BY dept ORDER BY salary DESC) AS _expr_0\n"+
			"  FROM e\n"+
			")\n"+
			"SELECT *\n"+
			"FROM table_0\n"+
			"WHERE _expr_0 <= 1",
		sql)
}

func TestWindowUnsupportedDialect(t *testing.T) {
	archaic := dialect.NewDialect("archaic").NoWindowFunctions().Build()

	sql, err := sqlgen.Generate(
		mustResolve(t, "from e | group {dept} (sort {-salary} | take 1)"),
		archaic,
		sqlgen.Options{Format: true},
	)
	require.Error(t, err)
	assert.Equal(t, "", sql)

	var genErr *sqlgen.Error
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "window functions", genErr.Feature)
	assert.Contains(t, genErr.Error(), "dialect archaic does not support window functions")
}

func TestUnionAll(t *testing.T) {
	sql := gen(t, "from a | append (from b)", "generic")
	assert.Equal(t, "SELECT *\nFROM a\nUNION ALL\nSELECT *\nFROM b", sql)
}

func TestInlineRelation(t *testing.T) {
	sql := gen(t, "from [{a = 1, b = 'x'}, {a = 2, b = 'y'}]", "generic")
	assert.Equal(t, "SELECT *\nFROM (VALUES (1, 'x'), (2, 'y')) AS table_0 (a, b)", sql)
}

func TestNestedPipelineBecomesCTE(t *testing.T) {
	src := "let adults = (from people | filter age >= 18)\n\nfrom adults | select {age}"
	sql := gen(t, src, "generic")
	assert.Equal(t,
		"WITH adults AS (\n"+
			"  SELECT *\n"+
			"  FROM people\n"+
			"  WHERE age >= 18\n"+
			")\n"+
			"SELECT age\nFROM adults",
		sql)
}

func TestCompactFormat(t *testing.T) {
	d, _ := dialect.Get("generic")

	sql, err := sqlgen.Generate(
		mustResolve(t, "from t | filter b > 1 | select {a}"),
		d,
		sqlgen.Options{Format: false},
	)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE b > 1", sql)

	sql, err = sqlgen.Generate(
		mustResolve(t, "from t | take 10 | filter a > 1"),
		d,
		sqlgen.Options{Format: false},
	)
	require.NoError(t, err)
	assert.Equal(t, "WITH table_0 AS (SELECT * FROM t LIMIT 10) SELECT * FROM table_0 WHERE a > 1", sql)
}

func TestDeterministicOutput(t *testing.T) {
	src := `from employees
filter salary > 1000
join side:left departments (dept_id == id)
group {dept} (aggregate {n = count id, top = max salary})
sort {-n}
take 10`

	first := gen(t, src, "generic")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, gen(t, src, "generic"))
	}
}

func TestSharedDeclarationEmitsOneCTE(t *testing.T) {
	src := "let t = (from a | take 1)\n\nfrom t | append (from t)"
	sql := gen(t, src, "generic")
	assert.Equal(t,
		"WITH t AS (\n"+
			"  SELECT *\n"+
			"  FROM a\n"+
			"  LIMIT 1\n"+
			")\n"+
			"SELECT *\nFROM t\nUNION ALL\nSELECT *\nFROM t",
		sql)
}

func TestSharedDeclarationSelfJoin(t *testing.T) {
	src := "let t = (from a | take 1)\n\nfrom t | join t (t.x == t.y)"
	sql := gen(t, src, "generic")
	assert.Equal(t,
		"WITH t AS (\n"+
			"  SELECT *\n"+
			"  FROM a\n"+
			"  LIMIT 1\n"+
			")\n"+
			"SELECT *\nFROM t\nJOIN t ON t.x = t.y",
		sql)
}
