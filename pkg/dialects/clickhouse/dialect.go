// Package clickhouse provides the ClickHouse dialect definition.
package clickhouse

import (
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

func init() {
	dialect.Register(ClickHouse)
}

// ClickHouse is the ClickHouse dialect. Identifiers quote with backticks
// and the stddev aggregate uses the camelCase population form.
var ClickHouse = dialect.NewDialect("clickhouse").
	Identifiers("`", "`", "``", dialect.NormPreserve).
	Function("stddev", "stddevPop(%s)").
	ReservedWords("limit", "offset", "prewhere", "final", "sample").
	Build()
