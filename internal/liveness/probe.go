// Package liveness decides whether the managed service is running this tick.
//
// Process presence is the primary signal. The local status endpoint only
// refines the message: a process that exists but serves errors, or does not
// answer at all, is still reported as running so a flaky API never triggers
// a restart on its own.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clawguard/internal/process"
	"clawguard/pkg/logging"
)

// Messages reported by Check.
const (
	MsgHealthy        = "healthy"
	MsgNoProcess      = "no process found"
	MsgAPIUnreachable = "process present, api unreachable"
)

// Checker is what the orchestrator needs from a probe.
type Checker interface {
	Check(ctx context.Context) (running bool, message string)
}

// Config configures a Probe.
type Config struct {
	ProcessName         string
	StatusURL           string
	ProcessCheckTimeout time.Duration
	ProbeTimeout        time.Duration
}

// Probe is the production Checker.
type Probe struct {
	cfg    Config
	procs  process.Supervisor
	client *http.Client
	log    *logging.Logger
}

// New creates a Probe. client may be nil.
func New(cfg Config, procs process.Supervisor, client *http.Client, log *logging.Logger) *Probe {
	if cfg.ProcessCheckTimeout <= 0 {
		cfg.ProcessCheckTimeout = 10 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Probe{cfg: cfg, procs: procs, client: client, log: log.Named("Liveness")}
}

// Check implements Checker.
func (p *Probe) Check(ctx context.Context) (bool, string) {
	findCtx, cancel := context.WithTimeout(ctx, p.cfg.ProcessCheckTimeout)
	pids, err := p.procs.Find(findCtx, p.cfg.ProcessName)
	cancel()

	if err != nil {
		if errors.Is(err, process.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			p.log.Warn("Process check for %q timed out", p.cfg.ProcessName)
			return false, "check failed: process check timed out"
		}
		p.log.Error(err, "Process check failed")
		return false, fmt.Sprintf("check failed: %v", err)
	}
	if len(pids) == 0 {
		return false, MsgNoProcess
	}
	p.log.Debug("Found %s processes: %v", p.cfg.ProcessName, pids)

	code, err := p.getStatus(ctx)
	if err != nil {
		p.log.Debug("Status endpoint unreachable: %v", err)
		return true, MsgAPIUnreachable
	}
	if code != http.StatusOK {
		return true, fmt.Sprintf("api responded abnormally: %d", code)
	}
	return true, MsgHealthy
}

func (p *Probe) getStatus(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.StatusURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
