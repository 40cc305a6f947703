// Package generic provides the ANSI SQL dialect definition. It is the
// default target and makes no vendor assumptions.
package generic

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(Generic)
}

// Generic is the ANSI SQL dialect.
var Generic = dialect.NewDialect("generic").Build()
