package app

import (
	"fmt"
	"time"

	"clawguard/internal/api"
	"clawguard/internal/backup"
	"clawguard/internal/config"
	"clawguard/internal/gateway"
	"clawguard/internal/heartbeat"
	"clawguard/internal/liveness"
	"clawguard/internal/metrics"
	"clawguard/internal/netctx"
	"clawguard/internal/nethealth"
	"clawguard/internal/notify"
	"clawguard/internal/orchestrator"
	"clawguard/internal/process"
	"clawguard/internal/proxy"
	"clawguard/internal/reporting"
	"clawguard/internal/status"
	"clawguard/pkg/logging"
)

// gatewaySettleWait is the pause between confirming the relaunched gateway
// process and probing its status endpoint.
const gatewaySettleWait = 3 * time.Second

// Services holds all the initialized components
type Services struct {
	Procs         process.Supervisor
	Net           *netctx.Context
	Router        *proxy.Router
	NetworkEvents *reporting.EventLog
	MonitorEvents *reporting.EventLog
	Heartbeat     *heartbeat.Store
	Status        *status.Store
	Backups       *backup.Manager
	Checker       liveness.Checker
	Notifier      notify.Notifier
	Orchestrator  *orchestrator.Orchestrator
	Health        *nethealth.Aggregator
	Gateway       *gateway.Restarter
	Metrics       *metrics.Metrics

	// Servers are nil when their address is not configured.
	MetricsServer *metrics.Server
	APIServer     *api.Server
}

// InitializeServices creates every component from cfg.Settings using the
// real process table and environment.
func InitializeServices(cfg *Config, log *logging.Logger) (*Services, error) {
	return buildServices(cfg, log, process.NewOS(), netctx.OSEnv{})
}

func buildServices(cfg *Config, log *logging.Logger, procs process.Supervisor, env netctx.Env) (*Services, error) {
	settings := *cfg.Settings
	paths := settings.Paths

	networkEvents := reporting.NewEventLog(paths.NetworkEventsFile())
	if err := networkEvents.Load(); err != nil {
		return nil, fmt.Errorf("failed to load network events: %w", err)
	}
	monitorEvents := reporting.NewEventLog(paths.MonitorEventsFile())
	if err := monitorEvents.Load(); err != nil {
		return nil, fmt.Errorf("failed to load monitor events: %w", err)
	}

	nc := netctx.New(env, netctx.Settings{
		HTTP:  settings.Network.HTTPProxy,
		HTTPS: settings.Network.HTTPSProxy,
		SOCKS: settings.Network.SOCKSProxy,
	})
	router := proxy.New(nc, settings.Network.DomesticDomains, settings.Network.InternationalDomains, networkEvents, log)

	m := metrics.New()

	health := nethealth.New(nethealth.Config{
		Domestic:       targets(settings.Network.DomesticTargets),
		International:  targets(settings.Network.InternationalTargets),
		GatewayURL:     settings.Network.GatewayURL,
		ProbeTimeout:   settings.Network.ProbeTimeout,
		GatewayTimeout: settings.Network.GatewayTimeout,
		ReportPath:     paths.HealthFile(),
	}, nc, router, networkEvents, log).WithObserver(m)

	gw := gateway.New(gateway.Config{
		Pattern:     settings.Network.GatewayPattern,
		Command:     settings.Network.GatewayCommand,
		StatusURL:   settings.Network.GatewayURL,
		KillGrace:   settings.Monitor.KillGrace,
		StartupWait: settings.Network.GatewayStartupWait,
		SettleWait:  gatewaySettleWait,
		Timeout:     settings.Network.GatewayTimeout,
	}, procs, nc, networkEvents, log)

	checker := liveness.New(liveness.Config{
		ProcessName:         settings.Monitor.ProcessName,
		StatusURL:           settings.Monitor.StatusURL,
		ProcessCheckTimeout: settings.Monitor.ProcessCheckTimeout,
		ProbeTimeout:        settings.Monitor.ProbeTimeout,
	}, procs, nil, log)

	hb := heartbeat.NewStore(paths.HeartbeatFile(), cfg.Version, log)
	statusStore := status.NewStore(paths.StatusFile())
	backups := backup.NewManager(paths.ServiceConfig, paths.BackupDir, log)
	notifier := newNotifier(settings.Notify, log)

	orch := orchestrator.New(orchestrator.Config{
		ProcessPattern:   settings.Monitor.ProcessName,
		TimeoutThreshold: settings.Monitor.TimeoutThreshold,
		CheckInterval:    settings.Monitor.CheckInterval,
		FallbackDelay:    settings.Monitor.FallbackDelay,
		StopCommand:      settings.Monitor.StopCommand,
		StartCommand:     settings.Monitor.StartCommand,
		StopTimeout:      settings.Monitor.StopTimeout,
		StopGrace:        settings.Monitor.StopGrace,
		KillGrace:        settings.Monitor.KillGrace,
		StartupWait:      settings.Monitor.StartupWait,
		Retry:            orchestrator.DefaultRetryPolicy(),
	}, orchestrator.Deps{
		Checker:   checker,
		Heartbeat: hb,
		Status:    statusStore,
		Backups:   backups,
		Procs:     procs,
		Events:    monitorEvents,
		Net:       nc,
		Notifier:  notifier,
		Observer:  m,
		Log:       log,
	})

	s := &Services{
		Procs:         procs,
		Net:           nc,
		Router:        router,
		NetworkEvents: networkEvents,
		MonitorEvents: monitorEvents,
		Heartbeat:     hb,
		Status:        statusStore,
		Backups:       backups,
		Checker:       checker,
		Notifier:      notifier,
		Orchestrator:  orch,
		Health:        health,
		Gateway:       gw,
		Metrics:       m,
	}

	if settings.Metrics.Address != "" {
		s.MetricsServer = metrics.NewServer(settings.Metrics.Address, m, log)
	}
	if settings.API.Address != "" {
		tools := api.NewTools(api.Deps{
			Status:        statusStore,
			MonitorEvents: monitorEvents,
			NetworkEvents: networkEvents,
			Router:        router,
			Health:        health,
			HealthPath:    paths.HealthFile(),
			Backups:       backups,
		})
		s.APIServer = api.NewServer(settings.API.Address, cfg.Version, tools, log)
	}
	return s, nil
}

// newNotifier always logs recoveries and additionally sends them to
// Telegram when both token and chat ID are configured.
func newNotifier(cfg config.NotifyConfig, log *logging.Logger) notify.Notifier {
	n := notify.Multi{notify.NewLog(log)}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		n = append(n, notify.NewTelegram(cfg.TelegramAPIBase, cfg.TelegramBotToken, cfg.TelegramChatID, nil))
	}
	return n
}

func targets(in []config.Target) []nethealth.Target {
	out := make([]nethealth.Target, 0, len(in))
	for _, t := range in {
		out = append(out, nethealth.Target{Name: t.Name, URL: t.URL})
	}
	return out
}
