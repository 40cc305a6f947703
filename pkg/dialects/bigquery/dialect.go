// Package bigquery provides the Google BigQuery dialect definition.
package bigquery

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(BigQuery)
}

// BigQuery is the BigQuery Standard SQL dialect. Identifiers quote with
// backticks escaped by backslash.
var BigQuery = dialect.NewDialect("bigquery").
	Identifiers("`", "`", "\\`", dialect.NormPreserve).
	Function("log10", "LOG(%s, 10)").
	ReservedWords("struct", "array", "qualify", "window").
	Build()
