package cmd

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and network health loops together",
		Long: `Runs the service monitor loop and the periodic network health check in one
process until interrupted.

When metrics.address is configured, Prometheus metrics are served on
/metrics. When api.address is configured, an MCP server exposes status,
health, proxy and backup tools over SSE for AI assistants.

Configuration:
  clawguard loads ~/.config/clawguard/config.yaml, then ./.clawguard/config.yaml,
  then the file given with --config. Each layer overrides only the keys it sets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, closeLog, err := newApplication()
			if err != nil {
				return err
			}
			defer closeLog()
			return application.Serve(commandContext(cmd))
		},
	}
}
