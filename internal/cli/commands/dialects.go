package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/pkg/dialect"

	_ "github.com/leapstack-labs/leapq/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/clickhouse"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/duckdb"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/generic"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/mssql"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/snowflake"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/sqlite"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported target dialects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dialect", "Quoting", "Limit Style", "Window", "Full Join"})

			for _, name := range dialect.List() {
				d, ok := dialect.Get(name)
				if !ok {
					continue
				}
				t.AppendRow(table.Row{
					d.Name,
					d.Quote + "name" + d.QuoteEnd,
					d.Limit.String(),
					yesNo(d.SupportsWindow),
					yesNo(d.SupportsFullJoin),
				})
			}

			t.Render()
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
