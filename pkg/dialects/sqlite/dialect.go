// Package sqlite provides the SQLite dialect definition.
package sqlite

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect. Date literals have no DATE keyword and
// sqrt, ln, and log10 require the math extension but keep their standard
// spellings.
var SQLite = dialect.NewDialect("sqlite").
	DateLiteral("'%s'").
	ReservedWords("limit", "offset", "rowid").
	Build()
