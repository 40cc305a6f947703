// Package postgres provides the PostgreSQL dialect definition.
package postgres

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect. Unquoted identifiers fold to
// lowercase; log10 is spelled LOG.
var Postgres = dialect.NewDialect("postgres").
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase).
	Function("log10", "LOG(%s)").
	ReservedWords("ilike", "limit", "offset", "returning", "window").
	Build()
