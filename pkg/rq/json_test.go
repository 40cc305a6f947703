package rq_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/pkg/parser"
	"github.com/leapstack-labs/leapq/pkg/rq"
	"github.com/leapstack-labs/leapq/pkg/semantic"
)

func TestRoundTrip(t *testing.T) {
	src := `from employees
filter salary > 1000 && !terminated
join side:left departments (dept_id == id)
derive {bonus = salary * 0.1}
group {dept} (aggregate {n = count id})
sort {-n}
take 5..10
append (from [{dept = 'hq', n = 1}])`

	m, err := parser.Parse(src)
	require.NoError(t, err)
	q, err := semantic.Resolve(m, semantic.DefaultRegistry())
	require.NoError(t, err)

	data, err := rq.Marshal(q)
	require.NoError(t, err)

	got, err := rq.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestEnvelope(t *testing.T) {
	m, err := parser.Parse("from t | select {a}")
	require.NoError(t, err)
	q, err := semantic.Resolve(m, semantic.DefaultRegistry())
	require.NoError(t, err)

	data, err := rq.Marshal(q)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.JSONEq(t, `"v1"`, string(env["leapq"]))
	assert.JSONEq(t, `"rq"`, string(env["kind"]))
	require.Contains(t, env, "query")

	s := string(data)
	assert.Contains(t, s, `"type": "from"`)
	assert.Contains(t, s, `"type": "select"`)
	assert.Contains(t, s, `"type": "table"`)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wrong version", `{"leapq":"v9","kind":"rq","query":{}}`},
		{"wrong kind", `{"leapq":"v1","kind":"pl","query":{}}`},
		{"missing query", `{"leapq":"v1","kind":"rq"}`},
		{"not json", `nonsense`},
		{"unknown transform type", `{"leapq":"v1","kind":"rq","query":{"transforms":[{"type":"mystery"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rq.Unmarshal([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
