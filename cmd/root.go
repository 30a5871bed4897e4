package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"clawguard/internal/app"
	"clawguard/internal/config"

	"github.com/spf13/cobra"
)

var (
	// configPath is an explicit config file layered over the defaults
	configPath string

	// debug lowers the log level to debug for every command
	debug bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clawguard",
	Short: "Keep the openclaw gateway alive and its network reachable",
	Long: `clawguard supervises a locally running openclaw gateway. It probes the
process and its status endpoint, restarts it when its heartbeat goes stale and
records every transition. A companion network manager switches the HTTP proxy
by destination and reports domestic, international and gateway reachability.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed probes, missing config)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and runs it until
// it returns or SIGINT/SIGTERM cancels its context.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "clawguard version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file layered over ~/.config/clawguard/config.yaml and ./.clawguard/config.yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMonitorCmd())
	rootCmd.AddCommand(newNetCmd())
	rootCmd.AddCommand(newDashboardCmd())
}

// commandContext returns the command's context, falling back to Background
// when the command runs outside Execute (e.g. in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadSettings loads the layered configuration.
func loadSettings() (config.Config, error) {
	settings, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return settings, nil
}

// newApplication builds the application with logs going to stderr and the
// workspace log file. The returned func closes the log file.
func newApplication() (*app.Application, func(), error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = os.Stderr
	closeLog := func() {}
	if f, err := app.OpenLogFile(settings.Paths.LogFile()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging to stderr only: %v\n", err)
	} else {
		output = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	cfg := app.NewConfig(configPath, debug, rootCmd.Version)
	cfg.Settings = &settings
	cfg.LogOutput = output

	application, err := app.NewApplication(cfg)
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, closeLog, nil
}

// withApp runs fn against a freshly built application and closes its log.
func withApp(fn func(a *app.Application) error) error {
	application, closeLog, err := newApplication()
	if err != nil {
		return err
	}
	defer closeLog()
	return fn(application)
}
