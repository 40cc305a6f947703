package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/internal/testutil"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{
		Port:    0,
		Options: compiler.DefaultOptions(),
		Logger:  testutil.NewTestLogger(t),
	})
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCompileEndpoint(t *testing.T) {
	h := testServer(t).Routes()

	rec := postJSON(t, h, "/compile", `{"source": "from employees | select {name, salary}"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SQL string `json:"sql"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT name, salary\nFROM employees\n-- Generated by LeapQ "+compiler.Version, resp.SQL)
}

func TestCompileOverrides(t *testing.T) {
	h := testServer(t).Routes()

	rec := postJSON(t, h, "/compile",
		`{"source": "from t | sort {a} | take 3..7", "target": "mysql", "signature_comment": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SQL string `json:"sql"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT *\nFROM t\nORDER BY a\nLIMIT 2, 5", resp.SQL)
}

func TestCompileErrorCarriesStage(t *testing.T) {
	h := testServer(t).Routes()

	tests := []struct {
		name  string
		body  string
		stage string
	}{
		{"parse failure", `{"source": "from t |"}`, "parse"},
		{"resolve failure", `{"source": "from t | select {a} | filter missing > 1"}`, "resolve"},
		{"unknown dialect", `{"source": "from t", "target": "dbase"}`, "generate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/compile", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp struct {
				Error string `json:"error"`
				Stage string `json:"stage"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.stage, resp.Stage)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := testServer(t).Routes()

	rec := postJSON(t, h, "/compile", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStagedPipeline(t *testing.T) {
	h := testServer(t).Routes()

	rec := postJSON(t, h, "/parse", `{"source": "from employees | select {name}"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	plTree := rec.Body.String()
	assert.Contains(t, plTree, `"kind": "pl"`)

	body, err := json.Marshal(map[string]json.RawMessage{"pl": json.RawMessage(plTree)})
	require.NoError(t, err)
	rec = postJSON(t, h, "/resolve", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	rqTree := rec.Body.String()
	assert.Contains(t, rqTree, `"kind": "rq"`)

	body, err = json.Marshal(map[string]json.RawMessage{"rq": json.RawMessage(rqTree)})
	require.NoError(t, err)
	rec = postJSON(t, h, "/generate", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SQL string `json:"sql"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SELECT name\nFROM employees\n-- Generated by LeapQ "+compiler.Version, resp.SQL)
}

func TestDialectsEndpoint(t *testing.T) {
	h := testServer(t).Routes()

	req := httptest.NewRequest(http.MethodGet, "/dialects", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dialects []string `json:"dialects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Dialects, "generic")
	assert.Contains(t, resp.Dialects, "postgres")
	assert.Contains(t, resp.Dialects, "mysql")
}

func TestHealthz(t *testing.T) {
	h := testServer(t).Routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	h := testServer(t).Routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	first := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, first)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotEqual(t, first, rec.Header().Get("X-Request-ID"))
}

func TestOptionsMerging(t *testing.T) {
	s := testServer(t)
	f := false

	opts := s.options("", nil, nil)
	assert.Equal(t, compiler.DefaultOptions(), opts)

	opts = s.options("sqlite", &f, &f)
	assert.Equal(t, "sqlite", opts.Target)
	assert.False(t, opts.Format)
	assert.False(t, opts.SignatureComment)
}
