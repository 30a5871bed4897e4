package cmd

import (
	"fmt"

	"clawguard/internal/app"
	"clawguard/internal/cli"

	"github.com/spf13/cobra"
)

func newMonitorCmd() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Supervise the openclaw gateway",
		Long: `Without a subcommand, runs the monitor loop: probe the service every
check interval and restart it once its heartbeat is older than the timeout
threshold. The loop writes founder_status.json after every tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				return a.Services().Orchestrator.Run(commandContext(cmd))
			})
		},
	}

	monitorCmd.AddCommand(
		newMonitorBackupCmd(),
		newMonitorBackupsCmd(),
		newMonitorStatusCmd(),
		newMonitorRestartCmd(),
		newMonitorTestCmd(),
	)
	return monitorCmd
}

func newMonitorBackupCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the service config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				path, err := a.Services().Backups.Backup(reason)
				if err != nil {
					return fmt.Errorf("backup failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason recorded in the backup name and metadata")
	return cmd
}

func newMonitorBackupsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List config backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				infos, err := a.Services().Backups.List()
				if err != nil {
					return fmt.Errorf("failed to list backups: %w", err)
				}
				return cli.NewPrinter(cmd.OutOrStdout(), asJSON).PrintBackups(infos)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newMonitorStatusCmd() *cobra.Command {
	var (
		asJSON bool
		events int
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last status snapshot written by the monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				s := a.Services()
				snap, err := s.Status.Load()
				if err != nil {
					return fmt.Errorf("no monitor status available: %w", err)
				}
				p := cli.NewPrinter(cmd.OutOrStdout(), asJSON)
				if err := p.PrintSnapshot(snap); err != nil {
					return err
				}
				if events > 0 {
					return p.PrintEvents(s.MonitorEvents.Recent(events))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().IntVar(&events, "events", 0, "Also show the last N state transitions")
	return cmd
}

func newMonitorRestartCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Run the restart sequence now",
		Long: `Backs up the service config, stops the gateway, kills any remaining
processes, starts it again and waits until the probe reports it running.
A successful restart is recorded and announced like an automatic recovery.
--force skips the graceful stop command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				if err := a.Services().Orchestrator.Recover(commandContext(cmd), force); err != nil {
					return fmt.Errorf("restart failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Service restarted and verified running")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Skip the graceful stop command")
	return cmd
}

func newMonitorTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Probe the service once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				s := a.Services()
				running, message := s.Checker.Check(commandContext(cmd))

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running: %t\n", running)
				fmt.Fprintf(out, "Message: %s\n", message)
				if age, ok := s.Heartbeat.Age(); ok {
					fmt.Fprintf(out, "Heartbeat age: %.0fs\n", age.Seconds())
				} else {
					fmt.Fprintln(out, "Heartbeat age: none")
				}
				return nil
			})
		},
	}
}
