package app

import (
	"io"

	"clawguard/internal/config"
)

// Config holds the application configuration
type Config struct {
	// ConfigPath is an explicit config file layered over the defaults.
	ConfigPath string

	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// Version is stamped into heartbeats and the MCP server.
	Version string

	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer

	// Settings is the loaded clawguard configuration
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(configPath string, debug bool, version string) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		Version:    version,
	}
}
