package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"clawguard/internal/app"
	"clawguard/internal/cli"
	"clawguard/internal/netctx"
	"clawguard/internal/nethealth"

	"github.com/spf13/cobra"
)

func newNetCmd() *cobra.Command {
	netCmd := &cobra.Command{
		Use:   "net",
		Short: "Manage the proxy and check network reachability",
		Long: `Switches the HTTP proxy on or off, decides per destination whether a
request should use it, and checks domestic, international and gateway
reachability.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	netCmd.AddCommand(
		newNetStatusCmd(),
		newNetProxyCmd("pon", netctx.StateOn),
		newNetProxyCmd("poff", netctx.StateOff),
		newNetTestCmd(),
		newNetRestartCmd(),
		newNetHealthCmd(),
		newNetRouteCmd(),
		newNetWatchCmd(),
	)
	return netCmd
}

func newNetStatusCmd() *cobra.Command {
	var (
		asJSON bool
		events int
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show proxy state, last switch and recent network events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				s := a.Services()
				state := s.Router.Detect()
				last, ok := s.Router.LastSwitch()
				settings := s.Net.Settings()

				p := cli.NewPrinter(cmd.OutOrStdout(), asJSON)
				if asJSON {
					out := map[string]interface{}{
						"state":  state,
						"http":   settings.HTTP,
						"https":  settings.HTTPS,
						"socks":  settings.SOCKS,
						"events": s.NetworkEvents.Recent(events),
					}
					if ok {
						out["last_switch"] = last
					}
					return p.JSON(out)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Proxy state: %s\n", state)
				fmt.Fprintf(w, "HTTP proxy:  %s\n", settings.HTTP)
				fmt.Fprintf(w, "HTTPS proxy: %s\n", settings.HTTPS)
				fmt.Fprintf(w, "SOCKS proxy: %s\n", settings.SOCKS)
				if ok {
					fmt.Fprintf(w, "Last switch: %s\n", last.Format(time.RFC3339))
				} else {
					fmt.Fprintln(w, "Last switch: never")
				}
				fmt.Fprintln(w)
				return p.PrintEvents(s.NetworkEvents.Recent(events))
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().IntVar(&events, "events", 5, "Number of recent events to show")
	return cmd
}

func newNetProxyCmd(use string, state netctx.State) *cobra.Command {
	var export bool
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Switch the proxy %s", state),
		Long: fmt.Sprintf(`Switches the proxy %s and records the switch in the network event log.

A process cannot change its parent shell's environment. To apply the switch
to your shell, evaluate the export lines instead:

  eval "$(clawguard net %s --export)"`, state, use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				r := a.Services().Router
				ctx := commandContext(cmd)

				var err error
				if state == netctx.StateOn {
					err = r.SetOn(ctx)
				} else {
					err = r.SetOff(ctx)
				}
				if err != nil {
					return fmt.Errorf("failed to switch proxy %s: %w", state, err)
				}

				if export {
					return writeLines(cmd.OutOrStdout(), r.Export(state))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Proxy switched %s\n", state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "Print shell export lines for eval")
	return cmd
}

func writeLines(w io.Writer, lines []string) error {
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func newNetTestCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Probe domestic targets directly and international targets via the proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				health := a.Services().Health
				ctx := commandContext(cmd)
				p := cli.NewPrinter(cmd.OutOrStdout(), asJSON)

				domestic, err := health.TestDomestic(ctx)
				if err != nil {
					return fmt.Errorf("domestic test failed: %w", err)
				}
				if err := p.PrintCategory(domestic); err != nil {
					return err
				}
				international, err := health.TestInternational(ctx)
				if err != nil {
					return fmt.Errorf("international test failed: %w", err)
				}
				return p.PrintCategory(international)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of tables")
	return cmd
}

func newNetRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Kill and relaunch the gateway with the proxy environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				res, err := a.Services().Gateway.Restart(commandContext(cmd))
				w := cmd.OutOrStdout()
				if res.PID > 0 {
					fmt.Fprintf(w, "Gateway PID: %d\n", res.PID)
				}
				if err != nil {
					return fmt.Errorf("gateway restart failed: %w", err)
				}
				fmt.Fprintf(w, "Gateway healthy (%.2f ms)\n", res.LatencyMS)
				return nil
			})
		},
	}
}

func newNetHealthCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run a full health check and save the report",
		Long: `Runs the domestic batch with the proxy off, the international batch with
the proxy on and the gateway probe, restores the previous proxy state and
saves the report to network_health.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				report, err := a.Services().Health.HealthCheck(commandContext(cmd))
				if err != nil && report.Timestamp.IsZero() {
					return fmt.Errorf("health check failed: %w", err)
				}
				if err != nil {
					a.Log().Named("Net").Warn("Health check incomplete: %v", err)
				}
				if serr := nethealth.SaveReport(a.Settings().Paths.HealthFile(), report); serr != nil {
					return fmt.Errorf("failed to save report: %w", serr)
				}

				w := cmd.OutOrStdout()
				switch output {
				case "json":
					return cli.NewPrinter(w, true).PrintReport(report)
				case "table":
					return cli.NewPrinter(w, false).PrintReport(report)
				default:
					_, err := fmt.Fprint(w, nethealth.Render(report))
					return err
				}
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, table or json")
	return cmd
}

func newNetRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <url>",
		Short: "Print the proxy decision for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.Services().Router.Decide(args[0]))
				return nil
			})
		},
	}
}

func newNetWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the health check periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.Application) error {
				every := interval
				if every <= 0 {
					every = a.Settings().Network.CheckInterval
				}
				return a.Services().Health.Run(commandContext(cmd), every)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Check interval (default network.checkInterval)")
	return cmd
}
