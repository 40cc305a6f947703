// Package config loads leapq configuration from defaults, config file,
// environment variables, and CLI flags.
package config

import "github.com/leapstack-labs/leapq/pkg/compiler"

// Defaults.
const (
	DefaultTarget = "generic"
	DefaultOutput = "" // stdout
)

// Config is the resolved CLI configuration.
type Config struct {
	Target           string `koanf:"target"`
	Format           bool   `koanf:"format"`
	SignatureComment bool   `koanf:"signature_comment"`
	Verbose          bool   `koanf:"verbose"`
	Output           string `koanf:"output"`
}

// CompilerOptions converts the configuration into compiler options.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{
		Target:           c.Target,
		Format:           c.Format,
		SignatureComment: c.SignatureComment,
	}
}
