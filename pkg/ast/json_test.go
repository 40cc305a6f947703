package ast_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/pkg/ast"
	"github.com/leapstack-labs/leapq/pkg/parser"
)

func TestRoundTrip(t *testing.T) {
	src := `let cutoff = 50000
let tax = rate amount -> amount * rate
let adults = (from people | filter age >= 18)

from employees
filter salary > cutoff
join side:left departments (dept_id == id)
derive {t = tax 0.2 salary, flag = !active}
group {dept} (aggregate {n = count id})
sort {-n, dept}
take 5..10
append (from [{dept = 'hq', n = 1}])`

	m, err := parser.Parse(src)
	require.NoError(t, err)

	data, err := ast.Marshal(m)
	require.NoError(t, err)

	got, err := ast.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestEnvelope(t *testing.T) {
	m, err := parser.Parse("from t | select {a}")
	require.NoError(t, err)

	data, err := ast.Marshal(m)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.JSONEq(t, `"v1"`, string(env["leapq"]))
	assert.JSONEq(t, `"pl"`, string(env["kind"]))
	require.Contains(t, env, "module")
}

func TestNodeDiscriminators(t *testing.T) {
	m, err := parser.Parse("from t | filter a == 1")
	require.NoError(t, err)

	data, err := ast.Marshal(m)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"type": "from"`)
	assert.Contains(t, s, `"type": "filter"`)
	assert.Contains(t, s, `"type": "binary"`)
	assert.Contains(t, s, `"type": "ident"`)
	assert.Contains(t, s, `"type": "literal"`)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wrong version", `{"leapq":"v2","kind":"pl","module":{}}`},
		{"wrong kind", `{"leapq":"v1","kind":"rq","module":{}}`},
		{"missing module", `{"leapq":"v1","kind":"pl"}`},
		{"not json", `nonsense`},
		{"unknown node type", `{"leapq":"v1","kind":"pl","module":{"main":{"type":"pipeline","steps":[{"type":"mystery"}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ast.Unmarshal([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
