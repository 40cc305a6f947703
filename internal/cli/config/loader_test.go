package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leapq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	ResetConfig()

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "generic", cfg.Target)
	assert.True(t, cfg.Format)
	assert.True(t, cfg.SignatureComment)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "", cfg.Output)
	assert.Equal(t, "", GetConfigFileUsed())
}

func TestLoadConfigFile(t *testing.T) {
	ResetConfig()
	path := writeConfigFile(t, "target: postgres\nformat: false\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Target)
	assert.False(t, cfg.Format)
	assert.True(t, cfg.SignatureComment)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	ResetConfig()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	ResetConfig()
	path := writeConfigFile(t, "target: [unclosed\n")

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	ResetConfig()
	path := writeConfigFile(t, "target: mysql\n")
	t.Setenv("LEAPQ_TARGET", "postgres")
	t.Setenv("LEAPQ_SIGNATURE_COMMENT", "false")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Target)
	assert.False(t, cfg.SignatureComment)
}

func TestFlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	t.Setenv("LEAPQ_TARGET", "postgres")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("target", "generic", "")
	fs.Bool("format", true, "")
	require.NoError(t, fs.Set("target", "sqlite"))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Target)
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	ResetConfig()
	path := writeConfigFile(t, "format: false\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("format", true, "")

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.False(t, cfg.Format)
}

func TestKebabCaseFlagKeys(t *testing.T) {
	ResetConfig()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("signature-comment", true, "")
	require.NoError(t, fs.Set("signature-comment", "false"))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.False(t, cfg.SignatureComment)
}

func TestResetConfig(t *testing.T) {
	path := writeConfigFile(t, "target: duckdb\n")

	_, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, path, GetConfigFileUsed())

	ResetConfig()
	assert.Equal(t, "", GetConfigFileUsed())
}

func TestCompilerOptions(t *testing.T) {
	cfg := &Config{Target: "mssql", Format: true, SignatureComment: false}
	opts := cfg.CompilerOptions()

	assert.Equal(t, "mssql", opts.Target)
	assert.True(t, opts.Format)
	assert.False(t, opts.SignatureComment)
}
