// Package gateway restarts the gateway process with the proxy applied to
// its environment and checks that it serves again.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"clawguard/internal/faults"
	"clawguard/internal/netctx"
	"clawguard/internal/process"
	"clawguard/internal/reporting"
	"clawguard/pkg/logging"
)

// ErrUnreachable is returned when the gateway started but its status
// endpoint did not answer with 200.
var ErrUnreachable = errors.New("gateway started but status endpoint unreachable")

// Config configures a Restarter.
type Config struct {
	Pattern     string   // processes killed before relaunch
	Command     []string // relaunch command
	StatusURL   string
	KillGrace   time.Duration
	StartupWait time.Duration
	SettleWait  time.Duration
	Timeout     time.Duration // status probe timeout
}

// Result describes a restart.
type Result struct {
	PID       int
	Healthy   bool
	LatencyMS float64
}

// Restarter kills and relaunches the gateway.
type Restarter struct {
	cfg    Config
	procs  process.Supervisor
	net    *netctx.Context
	client *http.Client
	events *reporting.EventLog
	log    *logging.Logger
	sleep  func(context.Context, time.Duration) error
}

// New creates a Restarter. events may be nil.
func New(cfg Config, procs process.Supervisor, nc *netctx.Context, events *reporting.EventLog, log *logging.Logger) *Restarter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Restarter{
		cfg:    cfg,
		procs:  procs,
		net:    nc,
		client: &http.Client{Transport: &http.Transport{Proxy: nc.ProxyFunc()}},
		events: events,
		log:    log.Named("Gateway"),
		sleep:  sleep,
	}
}

// WithSleeper replaces the delay function, for tests.
func (r *Restarter) WithSleeper(s func(context.Context, time.Duration) error) *Restarter {
	r.sleep = s
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Restart kills every gateway process, launches a new one with the proxy
// variables set and verifies it.
func (r *Restarter) Restart(ctx context.Context) (Result, error) {
	res, eventType, details, err := r.restart(ctx)
	r.record(eventType, details)
	return res, err
}

func (r *Restarter) restart(ctx context.Context) (Result, reporting.EventType, string, error) {
	var res Result

	r.log.Info("Restarting gateway")
	if err := r.procs.Terminate(ctx, r.cfg.Pattern); err != nil {
		return res, reporting.EventTypeGatewayRestartError, err.Error(), err
	}
	if err := r.sleep(ctx, r.cfg.KillGrace); err != nil {
		return res, reporting.EventTypeGatewayRestartError, err.Error(), err
	}

	pid, err := r.procs.Spawn(ctx, r.cfg.Command, r.net.Environ(netctx.StateOn))
	if err != nil {
		err = faults.New(faults.ProcessSpawnFailure, "gateway restart", err)
		return res, reporting.EventTypeGatewayRestartFailed, err.Error(), err
	}
	res.PID = pid
	if err := r.sleep(ctx, r.cfg.StartupWait); err != nil {
		return res, reporting.EventTypeGatewayRestartError, err.Error(), err
	}

	if !r.procs.Alive(pid) {
		err := faults.New(faults.ProcessSpawnFailure, "gateway restart", fmt.Errorf("process %d exited during startup", pid))
		r.log.Error(err, "Gateway failed to start")
		return res, reporting.EventTypeGatewayRestartFailed, err.Error(), err
	}
	r.log.Info("Gateway started (PID %d)", pid)

	if err := r.sleep(ctx, r.cfg.SettleWait); err != nil {
		return res, reporting.EventTypeGatewayRestartError, err.Error(), err
	}

	ok, latency := r.probe(ctx)
	res.Healthy, res.LatencyMS = ok, latency
	if !ok {
		r.log.Warn("Gateway started but is unreachable at %s", r.cfg.StatusURL)
		return res, reporting.EventTypeGatewayRestartWarning, "service unreachable", ErrUnreachable
	}
	r.log.Info("Gateway serving (latency %.2fms)", latency)
	return res, reporting.EventTypeGatewayRestartSuccess, fmt.Sprintf("PID: %d", pid), nil
}

func (r *Restarter) probe(ctx context.Context) (bool, float64) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.StatusURL, nil)
	if err != nil {
		return false, 0
	}
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return false, 0
	}
	resp.Body.Close()
	latency := float64(time.Since(start).Microseconds()) / 1000
	return resp.StatusCode == http.StatusOK, math.Round(latency*100) / 100
}

func (r *Restarter) record(t reporting.EventType, details string) {
	if r.events == nil {
		return
	}
	if _, err := r.events.Append(t, details, string(r.net.Detect())); err != nil {
		r.log.Warn("Failed to persist network event: %v", err)
	}
}
