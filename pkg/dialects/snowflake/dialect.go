// Package snowflake provides the Snowflake dialect definition.
package snowflake

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake dialect. Unquoted identifiers fold to
// uppercase.
var Snowflake = dialect.NewDialect("snowflake").
	Identifiers(`"`, `"`, `""`, dialect.NormUppercase).
	Function("log10", "LOG(10, %s)").
	ReservedWords("qualify", "ilike", "minus").
	Build()
