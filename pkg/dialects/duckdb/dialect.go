// Package duckdb provides the DuckDB dialect definition.
package duckdb

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect. DuckDB tracks PostgreSQL syntax closely
// but matches identifiers case insensitively.
var DuckDB = dialect.NewDialect("duckdb").
	Function("log10", "LOG10(%s)").
	ReservedWords("limit", "offset", "qualify").
	Build()
