// Package mssql provides the Microsoft SQL Server dialect definition.
package mssql

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(MSSQL)
}

// MSSQL is the SQL Server dialect. Identifiers quote with brackets, row
// limiting uses TOP or OFFSET FETCH, booleans render as 1 and 0, and
// several scalar functions have vendor spellings.
var MSSQL = dialect.NewDialect("mssql").
	Identifiers("[", "]", "]]", dialect.NormPreserve).
	LimitStyle(dialect.StyleTop).
	BoolAsInt().
	DateLiteral("'%s'").
	Functions(map[string]string{
		"ceil":   "CEILING(%s)",
		"stddev": "STDEV(%s)",
		"length": "LEN(%s)",
		"ln":     "LOG(%s)",
		"trim":   "LTRIM(RTRIM(%s))",
	}).
	ReservedWords("top", "percent", "pivot", "unpivot").
	Build()
