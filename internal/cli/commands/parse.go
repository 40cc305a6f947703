package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a pipeline query to its serialized tree",
		Long: `Parse a pipeline query and print the serialized parse tree as JSON.

The tree can be fed to 'leapq resolve' in a separate invocation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}

			data, err := compiler.ParseJSON(src)
			if err != nil {
				return err
			}

			return writeResult(cmd, cfg.Output, string(data))
		},
	}
}
