package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [file]",
		Short: "Generate SQL from a serialized relational tree",
		Long: `Generate SQL for the target dialect from a relational tree
produced by 'leapq resolve'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}

			sql, err := compiler.GenerateJSON([]byte(src), cfg.CompilerOptions())
			if err != nil {
				return err
			}

			return writeResult(cmd, cfg.Output, sql)
		},
	}
}
