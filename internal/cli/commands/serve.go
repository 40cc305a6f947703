package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Long: `Start an HTTP server exposing the compilation stages.

Endpoints:
  POST /compile   {"source": "...", "target": "..."}  -> {"sql": "..."}
  POST /parse     {"source": "..."}                   -> parse tree JSON
  POST /resolve   {"pl": <parse tree>}                -> relational tree JSON
  POST /generate  {"rq": <relational tree>}           -> {"sql": "..."}
  GET  /dialects                                      -> dialect names

Per-request target/format fields override the server defaults.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := config.GetLogger(cmd.Context())

			srv := server.New(server.Config{
				Port:    opts.Port,
				Options: cfg.CompilerOptions(),
				Logger:  logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting server on http://localhost:%d\n", opts.Port)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			return srv.Serve(ctx)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 8080, "Port to serve on")

	return cmd
}
