package semantic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/pkg/parser"
	"github.com/leapstack-labs/leapq/pkg/rq"
	"github.com/leapstack-labs/leapq/pkg/semantic"
)

func resolve(t *testing.T, src string) *rq.Query {
	t.Helper()
	m, err := parser.Parse(src)
	require.NoError(t, err)
	q, err := semantic.Resolve(m, semantic.DefaultRegistry())
	require.NoError(t, err)
	return q
}

func resolveErr(t *testing.T, src string) *semantic.Error {
	t.Helper()
	m, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = semantic.Resolve(m, semantic.DefaultRegistry())
	require.Error(t, err)
	var serr *semantic.Error
	require.True(t, errors.As(err, &serr))
	return serr
}

func TestResolveEmptyModule(t *testing.T) {
	q := resolve(t, "")
	assert.Empty(t, q.Transforms)
}

func TestResolveSimpleSelect(t *testing.T) {
	q := resolve(t, "from employees | select {name, salary}")
	require.Len(t, q.Transforms, 2)

	from, ok := q.Transforms[0].(*rq.From)
	require.True(t, ok)
	table, ok := from.Rel.(*rq.Table)
	require.True(t, ok)
	assert.Equal(t, "employees", table.Name)

	sel, ok := q.Transforms[1].(*rq.Select)
	require.True(t, ok)
	require.Len(t, sel.IDs, 2)
	require.Len(t, sel.Out.Columns, 2)
	assert.Equal(t, "name", sel.Out.Columns[0].Name)
	assert.Equal(t, "salary", sel.Out.Columns[1].Name)
}

func TestColumnIDsAreSequential(t *testing.T) {
	q := resolve(t, "from t | select {a, b} | derive {c = a + 1}")

	sel := q.Transforms[1].(*rq.Select)
	assert.Equal(t, rq.CID(0), sel.Out.Columns[0].ID)
	assert.Equal(t, rq.CID(1), sel.Out.Columns[1].ID)

	comp := q.Transforms[2].(*rq.Compute)
	assert.Equal(t, rq.CID(2), comp.Col.ID)
}

func TestOpenFrameMintsColumns(t *testing.T) {
	// References against an unselected table resolve by minting columns.
	q := resolve(t, "from t | filter foo > 1")
	require.Len(t, q.Transforms, 2)

	f := q.Transforms[1].(*rq.Filter)
	require.Len(t, f.Out.Columns, 1)
	assert.Equal(t, "foo", f.Out.Columns[0].Name)
	assert.Equal(t, "t", f.Out.Columns[0].Relation)
}

func TestUnknownColumnAfterSelect(t *testing.T) {
	err := resolveErr(t, "from employees | select {name, salary} | filter nonexistent > 1")
	assert.Equal(t, semantic.ErrUnboundReference, err.Kind)
	assert.Equal(t, "nonexistent", err.Symbol)
	assert.Contains(t, err.Message, `unknown name "nonexistent"`)
	assert.Contains(t, err.Message, "available columns: name, salary")
}

func TestResolveErrorFormat(t *testing.T) {
	err := resolveErr(t, "from t\nselect {a}\nfilter missing > 1")
	assert.Equal(t, 3, err.Pos.Line)
	assert.Contains(t, err.Error(), "resolve error at line 3")
}

func TestDuplicateDeclaration(t *testing.T) {
	err := resolveErr(t, "let x = 1\nlet x = 2\n\nfrom t")
	assert.Equal(t, semantic.ErrDuplicateDeclaration, err.Kind)
	assert.Equal(t, "x", err.Symbol)
}

func TestDeclarationShadowsBuiltin(t *testing.T) {
	err := resolveErr(t, "let sum = 1\n\nfrom t")
	assert.Equal(t, semantic.ErrDuplicateDeclaration, err.Kind)
	assert.Contains(t, err.Message, "shadows a built-in")
}

func TestBuiltinArity(t *testing.T) {
	t.Run("too many args", func(t *testing.T) {
		err := resolveErr(t, "from t | aggregate {x = sum a b}")
		assert.Equal(t, semantic.ErrArityMismatch, err.Kind)
		assert.Equal(t, "sum", err.Symbol)
	})

	t.Run("round takes two", func(t *testing.T) {
		err := resolveErr(t, "from t | derive {x = round price}")
		assert.Equal(t, semantic.ErrArityMismatch, err.Kind)
		assert.Contains(t, err.Message, "expects 2 arguments, got 1")
	})
}

func TestUnknownFunction(t *testing.T) {
	err := resolveErr(t, "from t | derive {x = frobnicate y}")
	assert.Equal(t, semantic.ErrUnboundReference, err.Kind)
	assert.Contains(t, err.Message, `unknown function "frobnicate"`)
}

func TestAggregateOnlyInsideAggregate(t *testing.T) {
	err := resolveErr(t, "from t | derive {x = sum a}")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "only allowed inside aggregate")
}

func TestAggregateItemsMustAggregate(t *testing.T) {
	err := resolveErr(t, "from t | aggregate {x = a + 1}")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "must apply an aggregate function")
}

func TestFilterMustBeBoolean(t *testing.T) {
	err := resolveErr(t, "from t | filter x + 1")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "must be boolean")
}

func TestTakeBounds(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		limit  int64
		offset int64
	}{
		{"count", "from t | take 10", 10, -1},
		{"range", "from t | take 5..10", 6, 4},
		{"range from one", "from t | take 1..10", 10, -1},
		{"open low", "from t | take ..10", 10, -1},
		{"open high", "from t | take 3..", -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := resolve(t, tt.src)
			take, ok := q.Transforms[len(q.Transforms)-1].(*rq.Take)
			require.True(t, ok)
			assert.Equal(t, tt.limit, take.Limit)
			assert.Equal(t, tt.offset, take.Offset)
		})
	}
}

func TestTakeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"zero", "from t | take 0"},
		{"float", "from t | take 1.5"},
		{"string", "from t | take 'five'"},
		{"column", "from t | take n"},
		{"empty range", "from t | take 10..5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := resolveErr(t, tt.src)
			assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
		})
	}
}

func TestJoin(t *testing.T) {
	q := resolve(t, "from a | join side:left b (a.id == b.id)")
	require.Len(t, q.Transforms, 2)

	j := q.Transforms[1].(*rq.Join)
	assert.Equal(t, "left", j.Side)
	table, ok := j.With.(*rq.Table)
	require.True(t, ok)
	assert.Equal(t, "b", table.Name)

	cond, ok := j.Cond.(*rq.Binary)
	require.True(t, ok)
	assert.Equal(t, "==", cond.Op)
}

func TestJoinDefaultsToInner(t *testing.T) {
	q := resolve(t, "from a | join b (a.id == b.id)")
	j := q.Transforms[1].(*rq.Join)
	assert.Equal(t, "inner", j.Side)
}

func TestJoinUnknownSide(t *testing.T) {
	err := resolveErr(t, "from a | join side:sideways b (a.id == b.id)")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "unknown join side")
}

func TestAmbiguousColumn(t *testing.T) {
	// Unqualified name with two open sources in scope.
	err := resolveErr(t, "from a | join b (a.id == b.id) | select {name}")
	assert.Equal(t, semantic.ErrAmbiguousColumn, err.Kind)
	assert.Equal(t, "name", err.Symbol)
	assert.Contains(t, err.Message, "qualify it")
}

func TestQualifiedColumnDisambiguates(t *testing.T) {
	q := resolve(t, "from a | join b (a.id == b.id) | select {a.name, b.name}")
	sel := q.Transforms[len(q.Transforms)-1].(*rq.Select)
	require.Len(t, sel.Out.Columns, 2)
	assert.Equal(t, "a", sel.Out.Columns[0].Relation)
	assert.Equal(t, "b", sel.Out.Columns[1].Relation)
}

func TestGroupAggregate(t *testing.T) {
	q := resolve(t, "from employees | group {dept} (aggregate {avg_salary = average salary})")

	agg, ok := q.Transforms[len(q.Transforms)-1].(*rq.Aggregate)
	require.True(t, ok)
	require.Len(t, agg.Keys, 1)
	require.Len(t, agg.Aggs, 1)
	assert.Equal(t, "avg_salary", agg.Aggs[0].Name)

	// Frame is keys plus aggregates.
	require.Len(t, agg.Out.Columns, 2)
	assert.Equal(t, "dept", agg.Out.Columns[0].Name)
	assert.Equal(t, "avg_salary", agg.Out.Columns[1].Name)
}

func TestGroupTakeClosedFrame(t *testing.T) {
	q := resolve(t, "from employees | select {dept, salary} | group {dept} (sort -salary | take 3)")

	n := len(q.Transforms)
	require.GreaterOrEqual(t, n, 4)

	win, ok := q.Transforms[n-3].(*rq.Window)
	require.True(t, ok)
	assert.Equal(t, "row_number", win.Func)
	require.Len(t, win.PartitionBy, 1)
	require.Len(t, win.OrderBy, 1)
	assert.True(t, win.OrderBy[0].Desc)

	filt, ok := q.Transforms[n-2].(*rq.Filter)
	require.True(t, ok)
	cond, ok := filt.Cond.(*rq.Binary)
	require.True(t, ok)
	assert.Equal(t, "<=", cond.Op)

	// The row number column is dropped from the final closed frame.
	sel, ok := q.Transforms[n-1].(*rq.Select)
	require.True(t, ok)
	require.Len(t, sel.Out.Columns, 2)
	assert.Equal(t, "dept", sel.Out.Columns[0].Name)
}

func TestGroupTakeOpenFrame(t *testing.T) {
	q := resolve(t, "from employees | group {dept} (take 2)")

	// With an open frame the row number cannot be projected away.
	_, ok := q.Transforms[len(q.Transforms)-1].(*rq.Filter)
	assert.True(t, ok)
}

func TestGroupBodyRejectsOtherTransforms(t *testing.T) {
	err := resolveErr(t, "from t | group {k} (filter x > 1)")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "group body supports")
}

func TestLastSortWins(t *testing.T) {
	q := resolve(t, "from t | sort a | sort b")

	var sorts int
	for _, tr := range q.Transforms {
		if _, ok := tr.(*rq.Sort); ok {
			sorts++
		}
	}
	assert.Equal(t, 1, sorts)
}

func TestSortSurvivesAcrossTake(t *testing.T) {
	q := resolve(t, "from t | sort a | take 5 | sort b")

	var sorts int
	for _, tr := range q.Transforms {
		if _, ok := tr.(*rq.Sort); ok {
			sorts++
		}
	}
	assert.Equal(t, 2, sorts)
}

func TestUserFunctionInlining(t *testing.T) {
	src := `let tax = rate amount -> amount * rate

from orders | derive {t = tax 0.2 total}`
	q := resolve(t, src)

	comp, ok := q.Transforms[len(q.Transforms)-1].(*rq.Compute)
	require.True(t, ok)
	assert.Equal(t, "t", comp.Col.Name)

	mul, ok := comp.Col.Expr.(*rq.Binary)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Op)
	_, ok = mul.Left.(*rq.ColumnRef)
	assert.True(t, ok)
	lit, ok := mul.Right.(*rq.Literal)
	require.True(t, ok)
	assert.Equal(t, "0.2", lit.Value)
}

func TestUserFunctionArity(t *testing.T) {
	src := `let double = x -> x * 2

from t | derive {y = double a b}`
	err := resolveErr(t, src)
	assert.Equal(t, semantic.ErrArityMismatch, err.Kind)
	assert.Contains(t, err.Message, "expects 1 arguments, got 2")
}

func TestScalarDeclInlining(t *testing.T) {
	src := `let cutoff = 50000

from employees | filter salary > cutoff`
	q := resolve(t, src)

	f := q.Transforms[len(q.Transforms)-1].(*rq.Filter)
	cmp := f.Cond.(*rq.Binary)
	lit, ok := cmp.Right.(*rq.Literal)
	require.True(t, ok)
	assert.Equal(t, "50000", lit.Value)
}

func TestPipelineDeclInlining(t *testing.T) {
	src := `let adults = (from people | filter age >= 18)

from adults | select {name}`
	q := resolve(t, src)

	from := q.Transforms[0].(*rq.From)
	nested, ok := from.Rel.(*rq.Nested)
	require.True(t, ok)
	assert.Equal(t, "adults", nested.Alias)
	assert.Len(t, nested.Pipeline, 2)
}

func TestForwardReferences(t *testing.T) {
	src := `let first = (from second | take 10)
let second = (from base)

from first`
	q := resolve(t, src)
	require.NotEmpty(t, q.Transforms)

	from := q.Transforms[0].(*rq.From)
	_, ok := from.Rel.(*rq.Nested)
	assert.True(t, ok)
}

func TestRecursiveDeclarations(t *testing.T) {
	t.Run("pipeline", func(t *testing.T) {
		err := resolveErr(t, "let loop = (from loop)\n\nfrom loop")
		assert.Equal(t, semantic.ErrUnboundReference, err.Kind)
		assert.Contains(t, err.Message, "refers to itself")
	})

	t.Run("scalar", func(t *testing.T) {
		err := resolveErr(t, "let x = x + 1\n\nfrom t | filter x > 1")
		assert.Equal(t, semantic.ErrUnboundReference, err.Kind)
		assert.Contains(t, err.Message, "refers to itself")
	})
}

func TestInlineRelation(t *testing.T) {
	q := resolve(t, "from [{a = 1, b = 'x'}, {a = 2, b = 'y'}]")

	from := q.Transforms[0].(*rq.From)
	vals, ok := from.Rel.(*rq.Values)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, vals.Names)
	require.Len(t, vals.Rows, 2)

	// Inline relations produce a closed frame.
	require.Len(t, from.Out.Columns, 2)
	assert.Empty(t, from.Out.Sources)
}

func TestInlineRelationErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"mismatched shape", "from [{a = 1}, {b = 2}]", "same fields"},
		{"unnamed field", "from [{1}]", "must be named"},
		{"computed field", "from [{a = 1 + 2}]", "must be literals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := resolveErr(t, tt.src)
			assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
			assert.Contains(t, err.Message, tt.msg)
		})
	}
}

func TestAppend(t *testing.T) {
	q := resolve(t, "from current | append (from archived)")

	app, ok := q.Transforms[len(q.Transforms)-1].(*rq.Append)
	require.True(t, ok)
	assert.NotEmpty(t, app.Pipeline)
}

func TestAppendFrameMismatch(t *testing.T) {
	err := resolveErr(t, "from [{a = 1}] | append (from [{a = 2, b = 3}])")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "matching frames")
}

func TestPipelineDeclAsScalar(t *testing.T) {
	src := `let sub = (from t)

from u | filter sub > 1`
	err := resolveErr(t, src)
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "cannot be used as a scalar")
}

func TestGroupTakeMustBeBounded(t *testing.T) {
	err := resolveErr(t, "from e | group {dept} (sort {-salary} | take 1..)")
	assert.Equal(t, semantic.ErrTypeMismatch, err.Kind)
	assert.Contains(t, err.Message, "take inside group must be bounded")
}

func TestRegistryInjection(t *testing.T) {
	m, err := parser.Parse("from t | derive {d = double a}")
	require.NoError(t, err)

	_, err = semantic.Resolve(m, semantic.DefaultRegistry())
	require.Error(t, err)
	var serr *semantic.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, semantic.ErrUnboundReference, serr.Kind)

	reg := semantic.NewRegistry(
		semantic.Signature{Name: "double", Arity: 1, Class: semantic.ClassScalar},
	)
	_, err = semantic.Resolve(m, reg)
	assert.NoError(t, err)
}

func TestNilRegistryMeansDefault(t *testing.T) {
	m, err := parser.Parse("from t | aggregate {n = count a}")
	require.NoError(t, err)

	_, err = semantic.Resolve(m, nil)
	assert.NoError(t, err)
}
