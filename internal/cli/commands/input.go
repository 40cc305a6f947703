// Package commands implements the leapq subcommands.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// readSource reads query text from the file argument, or from stdin when
// no argument (or "-") is given.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// writeResult writes output to the given file, or to stdout when path is
// empty. Stdout output gets a trailing newline when missing.
func writeResult(cmd *cobra.Command, path, data string) error {
	if path == "" {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), data); err != nil {
			return err
		}
		if data != "" && !strings.HasSuffix(data, "\n") {
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
