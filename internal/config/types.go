package config

import (
	"path/filepath"
	"time"
)

// Config is the top-level configuration structure for clawguard.
type Config struct {
	LogLevel string        `yaml:"logLevel,omitempty"`
	Paths    PathsConfig   `yaml:"paths"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Network  NetworkConfig `yaml:"network"`
	Notify   NotifyConfig  `yaml:"notify"`
	Metrics  MetricsConfig `yaml:"metrics"`
	API      APIConfig     `yaml:"api"`
}

// PathsConfig locates the supervised service's config and the files clawguard owns.
type PathsConfig struct {
	BaseDir       string `yaml:"baseDir,omitempty"`       // unset paths below default to locations under it
	ServiceConfig string `yaml:"serviceConfig,omitempty"` // JSON config of the supervised service
	BackupDir     string `yaml:"backupDir,omitempty"`
	WorkspaceDir  string `yaml:"workspaceDir,omitempty"` // status, heartbeat, events and logs live here
}

// withDefaults fills the paths left unset from BaseDir.
func (p PathsConfig) withDefaults() PathsConfig {
	if p.ServiceConfig == "" {
		p.ServiceConfig = filepath.Join(p.BaseDir, "openclaw.json")
	}
	if p.BackupDir == "" {
		p.BackupDir = filepath.Join(p.BaseDir, "config_backups")
	}
	if p.WorkspaceDir == "" {
		p.WorkspaceDir = filepath.Join(p.BaseDir, "workspace")
	}
	return p
}

// StatusFile is the path of the monitor status snapshot.
func (p PathsConfig) StatusFile() string {
	return filepath.Join(p.WorkspaceDir, "founder_status.json")
}

// HeartbeatFile is the path of the heartbeat record.
func (p PathsConfig) HeartbeatFile() string {
	return filepath.Join(p.WorkspaceDir, "founder_heartbeat.json")
}

// HealthFile is the path of the latest network health report.
func (p PathsConfig) HealthFile() string {
	return filepath.Join(p.WorkspaceDir, "network_health.json")
}

// NetworkEventsFile is the path of the bounded network event log.
func (p PathsConfig) NetworkEventsFile() string {
	return filepath.Join(p.WorkspaceDir, "network_events.json")
}

// MonitorEventsFile is the path of the orchestrator transition audit log.
func (p PathsConfig) MonitorEventsFile() string {
	return filepath.Join(p.WorkspaceDir, "monitor_events.json")
}

// LogFile is the path of the monitor log file.
func (p PathsConfig) LogFile() string {
	return filepath.Join(p.WorkspaceDir, "logs", "founder_monitor.log")
}

// MonitorConfig drives liveness probing and recovery of the managed service.
type MonitorConfig struct {
	ProcessName         string        `yaml:"processName,omitempty"` // matched against full command lines
	StatusURL           string        `yaml:"statusURL,omitempty"`
	CheckInterval       time.Duration `yaml:"checkInterval,omitempty"`
	TimeoutThreshold    time.Duration `yaml:"timeoutThreshold,omitempty"` // heartbeat staleness that triggers a restart
	FallbackDelay       time.Duration `yaml:"fallbackDelay,omitempty"`    // wait after a failed tick
	ProcessCheckTimeout time.Duration `yaml:"processCheckTimeout,omitempty"`
	ProbeTimeout        time.Duration `yaml:"probeTimeout,omitempty"`
	StopCommand         []string      `yaml:"stopCommand,omitempty"`
	StartCommand        []string      `yaml:"startCommand,omitempty"`
	StopTimeout         time.Duration `yaml:"stopTimeout,omitempty"`
	StopGrace           time.Duration `yaml:"stopGrace,omitempty"`
	KillGrace           time.Duration `yaml:"killGrace,omitempty"`
	StartupWait         time.Duration `yaml:"startupWait,omitempty"`
}

// Target is a named reachability probe destination.
type Target struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NetworkConfig drives proxy routing and reachability checks.
type NetworkConfig struct {
	HTTPProxy            string        `yaml:"httpProxy,omitempty"`
	HTTPSProxy           string        `yaml:"httpsProxy,omitempty"`
	SOCKSProxy           string        `yaml:"socksProxy,omitempty"`
	DomesticDomains      []string      `yaml:"domesticDomains,omitempty"`
	InternationalDomains []string      `yaml:"internationalDomains,omitempty"`
	DomesticTargets      []Target      `yaml:"domesticTargets,omitempty"`
	InternationalTargets []Target      `yaml:"internationalTargets,omitempty"`
	GatewayURL           string        `yaml:"gatewayURL,omitempty"`
	GatewayPattern       string        `yaml:"gatewayPattern,omitempty"` // process pattern killed by `net restart`
	GatewayCommand       []string      `yaml:"gatewayCommand,omitempty"`
	GatewayStartupWait   time.Duration `yaml:"gatewayStartupWait,omitempty"`
	ProbeTimeout         time.Duration `yaml:"probeTimeout,omitempty"`
	GatewayTimeout       time.Duration `yaml:"gatewayTimeout,omitempty"`
	CheckInterval        time.Duration `yaml:"checkInterval,omitempty"`
}

// NotifyConfig configures recovery notifications. Telegram is used only when
// both token and chat ID are set.
type NotifyConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken,omitempty"`
	TelegramChatID   string `yaml:"telegramChatID,omitempty"`
	TelegramAPIBase  string `yaml:"telegramAPIBase,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint. Empty address disables it.
type MetricsConfig struct {
	Address string `yaml:"address,omitempty"`
}

// APIConfig configures the MCP tool server. Empty address disables it.
type APIConfig struct {
	Address string `yaml:"address,omitempty"`
}
