package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a pipeline query to SQL",
		Long: `Compile a pipeline query to SQL for the target dialect.

Reads from the given file, or from stdin when no file is given.`,
		Example: `  # Compile a query file for the default dialect
  leapq compile query.pql

  # Compile from stdin for PostgreSQL
  echo 'from employees | select {name}' | leapq compile -t postgres

  # Write the SQL to a file
  leapq compile query.pql -o query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}

			sql, err := compiler.Compile(src, cfg.CompilerOptions())
			if err != nil {
				return err
			}

			return writeResult(cmd, cfg.Output, sql)
		},
	}
}
