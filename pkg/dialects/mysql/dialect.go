// Package mysql provides the MySQL dialect definition.
package mysql

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect. Identifiers quote with backticks, row
// limiting uses the LIMIT offset, count form, and FULL OUTER JOIN is not
// available.
var MySQL = dialect.NewDialect("mysql").
	Identifiers("`", "`", "``", dialect.NormPreserve).
	LimitStyle(dialect.StyleLimitComma).
	NoFullJoin().
	Function("length", "CHAR_LENGTH(%s)").
	ReservedWords("div", "limit", "offset", "rank", "window").
	Build()
