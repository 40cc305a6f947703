package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	cfgFile = ""

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCompileFromStdin(t *testing.T) {
	out, err := execute(t, "from employees | select {name}", "compile")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name\nFROM employees\n-- Generated by LeapQ "+compiler.Version+"\n", out)
}

func TestCompileFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.pql")
	require.NoError(t, os.WriteFile(path, []byte("from employees | select {name}"), 0o644))

	out, err := execute(t, "", "compile", path, "--signature-comment=false")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name\nFROM employees\n", out)
}

func TestCompileTargetFlag(t *testing.T) {
	out, err := execute(t, "from t | sort {a} | take 3..7", "compile", "-t", "mysql", "--signature-comment=false")
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM t\nORDER BY a\nLIMIT 2, 5\n", out)
}

func TestCompileOutputFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.sql")

	out, err := execute(t, "from t | select {a}", "compile", "-o", path, "--signature-comment=false")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a\nFROM t", string(data))
}

func TestCompileReportsStage(t *testing.T) {
	_, err := execute(t, "from t |", "compile")
	require.Error(t, err)
	assert.Equal(t, compiler.StageParse, compiler.StageOf(err))
}

func TestParseCommand(t *testing.T) {
	out, err := execute(t, "from t | select {a}", "parse")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "pl"`)
	assert.Contains(t, out, `"type": "from"`)
}

func TestResolveCommandFromSource(t *testing.T) {
	out, err := execute(t, "from t | select {a}", "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "rq"`)
	assert.Contains(t, out, `"type": "table"`)
}

func TestResolveCommandFromTree(t *testing.T) {
	plTree, err := compiler.ParseJSON("from t | select {a}")
	require.NoError(t, err)

	out, err := execute(t, string(plTree), "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "rq"`)
}

func TestGenerateCommand(t *testing.T) {
	plTree, err := compiler.ParseJSON("from employees | select {name}")
	require.NoError(t, err)
	rqTree, err := compiler.ResolveJSON(plTree)
	require.NoError(t, err)

	out, err := execute(t, string(rqTree), "generate", "--signature-comment=false")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name\nFROM employees\n", out)
}

func TestDialectsCommand(t *testing.T) {
	out, err := execute(t, "", "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "generic")
	assert.Contains(t, out, "mysql")
	assert.Contains(t, out, "LIMIT m, n")
	assert.Contains(t, out, "TOP n")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapQ "+compiler.Version)
}

func TestConfigFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leapq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: mysql\nsignature_comment: false\n"), 0o644))

	out, err := execute(t, "from t | sort {a} | take 3..7", "compile", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM t\nORDER BY a\nLIMIT 2, 5\n", out)
}
