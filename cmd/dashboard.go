package cmd

import (
	"time"

	"clawguard/internal/tui"

	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show a live view of monitor and network state",
		Long: `Opens a terminal dashboard over the files written by the monitor and
network loops. It only reads those files, so it can run next to
'clawguard serve' in another terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			paths := settings.Paths
			return tui.Run(commandContext(cmd), tui.Source{
				StatusPath:        paths.StatusFile(),
				HealthPath:        paths.HealthFile(),
				MonitorEventsPath: paths.MonitorEventsFile(),
				NetworkEventsPath: paths.NetworkEventsFile(),
			}, refresh)
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Second, "Refresh interval")
	return cmd
}
