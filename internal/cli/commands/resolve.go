package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [file]",
		Short: "Resolve a query to its serialized relational tree",
		Long: `Resolve a pipeline query and print the relational tree as JSON.

Accepts either a serialized parse tree (from 'leapq parse') or raw query
text. The output can be fed to 'leapq generate'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}

			// A leading brace means a serialized parse tree, anything
			// else is query text.
			plTree := []byte(src)
			if !strings.HasPrefix(strings.TrimSpace(src), "{") {
				plTree, err = compiler.ParseJSON(src)
				if err != nil {
					return err
				}
			}

			data, err := compiler.ResolveJSON(plTree)
			if err != nil {
				return err
			}

			return writeResult(cmd, cfg.Output, string(data))
		},
	}
}
