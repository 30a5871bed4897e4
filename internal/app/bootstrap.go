package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clawguard/internal/config"
	"clawguard/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Application wires clawguard's components from a loaded configuration.
type Application struct {
	config   *Config
	log      *logging.Logger
	services *Services
}

// NewApplication loads the configuration (unless cfg.Settings is already
// set) and initializes every component.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Settings == nil {
		settings, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load clawguard configuration: %w", err)
		}
		cfg.Settings = &settings
	}

	level := logging.ParseLevel(cfg.Settings.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	output := cfg.LogOutput
	if output == nil {
		output = os.Stderr
	}
	log := logging.New(output, level)

	services, err := InitializeServices(cfg, log)
	if err != nil {
		log.Named("Bootstrap").Error(err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{config: cfg, log: log, services: services}, nil
}

// OpenLogFile opens the monitor log file for appending, creating its
// directory if needed.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Services returns the initialized components.
func (a *Application) Services() *Services { return a.services }

// Settings returns the loaded configuration.
func (a *Application) Settings() config.Config { return *a.config.Settings }

// Log returns the application logger.
func (a *Application) Log() *logging.Logger { return a.log }

// Serve runs the monitor loop and the network health loop together with the
// optional metrics and MCP servers until ctx is cancelled or one of them
// fails.
func (a *Application) Serve(ctx context.Context) error {
	log := a.log.Named("Serve")
	s := a.services
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.Orchestrator.Run(ctx) })
	g.Go(func() error {
		return s.Health.Run(ctx, a.config.Settings.Network.CheckInterval)
	})
	if s.MetricsServer != nil {
		g.Go(func() error { return s.MetricsServer.Run(ctx) })
	}
	if s.APIServer != nil {
		g.Go(func() error { return s.APIServer.Run(ctx) })
	}

	log.Info("clawguard %s serving (monitor every %s, network every %s)",
		a.config.Version, a.config.Settings.Monitor.CheckInterval, a.config.Settings.Network.CheckInterval)
	if err := g.Wait(); err != nil {
		log.Error(err, "Serve stopped")
		return err
	}
	log.Info("Serve stopped")
	return nil
}
