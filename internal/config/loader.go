package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/clawguard"
	projectConfigDir = ".clawguard"
	configFileName   = "config.yaml"
)

// LoadConfig loads the clawguard configuration by layering default, user,
// project and (when explicitPath is set) explicit settings. Each layer only
// overrides the keys it mentions.
func LoadConfig(explicitPath string) (Config, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("could not determine home directory: %w", err)
	}

	// 1. Start with the default configuration. Paths derived from baseDir
	// are filled in after the layers so that moving baseDir moves them too.
	config := Default(homeDir)
	config.Paths = PathsConfig{BaseDir: config.Paths.BaseDir}

	// 2. User and project layers are optional
	for _, locate := range []func() (string, error){getUserConfigPath, getProjectConfigPath} {
		path, err := locate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not determine config path: %v\n", err)
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := overlayFromFile(&config, path); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
		}
	}

	// 3. An explicit file must exist
	if explicitPath != "" {
		if err := overlayFromFile(&config, explicitPath); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
	}

	config.Paths = expandPaths(config.Paths, homeDir).withDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// overlayFromFile decodes a YAML file on top of an already populated config.
func overlayFromFile(config *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, config)
}

func expandPaths(p PathsConfig, homeDir string) PathsConfig {
	p.BaseDir = expandHome(p.BaseDir, homeDir)
	p.ServiceConfig = expandHome(p.ServiceConfig, homeDir)
	p.BackupDir = expandHome(p.BackupDir, homeDir)
	p.WorkspaceDir = expandHome(p.WorkspaceDir, homeDir)
	return p
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Validate rejects configurations the supervising loops cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Monitor.ProcessName) == "" {
		errs = append(errs, errors.New("monitor.processName must not be empty"))
	}
	if c.Monitor.CheckInterval <= 0 {
		errs = append(errs, errors.New("monitor.checkInterval must be positive"))
	}
	if c.Monitor.TimeoutThreshold <= 0 {
		errs = append(errs, errors.New("monitor.timeoutThreshold must be positive"))
	}
	if c.Monitor.FallbackDelay <= 0 {
		errs = append(errs, errors.New("monitor.fallbackDelay must be positive"))
	}
	if len(c.Monitor.StartCommand) == 0 {
		errs = append(errs, errors.New("monitor.startCommand must not be empty"))
	}
	if strings.TrimSpace(c.Network.HTTPProxy) == "" || strings.TrimSpace(c.Network.HTTPSProxy) == "" {
		errs = append(errs, errors.New("network.httpProxy and network.httpsProxy must both be set"))
	}
	if c.Network.CheckInterval <= 0 {
		errs = append(errs, errors.New("network.checkInterval must be positive"))
	}
	if c.Paths.WorkspaceDir == "" || c.Paths.BackupDir == "" || c.Paths.ServiceConfig == "" {
		errs = append(errs, errors.New("paths.serviceConfig, paths.backupDir and paths.workspaceDir must be set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
