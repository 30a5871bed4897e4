package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clawguard/internal/backup"
	"clawguard/internal/heartbeat"
	"clawguard/internal/liveness"
	"clawguard/internal/netctx"
	"clawguard/internal/process"
	"clawguard/internal/reporting"
	"clawguard/internal/status"
	"clawguard/pkg/logging"
)

// Config holds the timing and commands of the orchestrator.
type Config struct {
	ProcessPattern   string        // matched by Terminate
	TimeoutThreshold time.Duration // heartbeat staleness that triggers recovery
	CheckInterval    time.Duration
	FallbackDelay    time.Duration
	StopCommand      []string
	StartCommand     []string
	StopTimeout      time.Duration
	StopGrace        time.Duration
	KillGrace        time.Duration
	StartupWait      time.Duration
	Retry            RetryPolicy
}

// Notifier announces a successful recovery.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Observer receives tick and restart outcomes, e.g. for metrics.
type Observer interface {
	ObserveSnapshot(snap status.Snapshot)
	ObserveRestart(success bool, took time.Duration)
}

// Deps are the collaborators of an Orchestrator. Backups, Events, Net,
// Notifier and Observer are optional. When Net is set the service is
// spawned while holding the proxy configuration, with the resting proxy
// variables passed explicitly.
type Deps struct {
	Checker   liveness.Checker
	Heartbeat *heartbeat.Store
	Status    *status.Store
	Backups   *backup.Manager
	Procs     process.Supervisor
	Events    *reporting.EventLog
	Net       *netctx.Context
	Notifier  Notifier
	Observer  Observer
	Log       *logging.Logger
}

// Orchestrator runs the recovery state machine.
type Orchestrator struct {
	cfg   Config
	deps  Deps
	log   *logging.Logger
	sleep Sleeper

	mu          sync.Mutex
	state       State
	failures    int
	lastRunning bool
	lastMessage string
	lastErr     string
}

// New creates an Orchestrator in the Nominal state.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Log.Named("Orchestrator"),
		sleep: sleepContext,
	}
}

// WithSleeper replaces the delay function used by the restart sequence.
func (o *Orchestrator) WithSleeper(s Sleeper) *Orchestrator {
	o.sleep = s
	return o
}

// State returns the current state and consecutive failure count.
func (o *Orchestrator) State() (State, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.failures
}

// transition moves to a new state and audits it.
func (o *Orchestrator) transition(to State, failures int, reason string) {
	o.mu.Lock()
	from, fromFailures := o.state, o.failures
	o.state, o.failures = to, failures
	o.mu.Unlock()

	if from == to && fromFailures == failures {
		return
	}
	details := fmt.Sprintf("%s -> %s: %s", label(from, fromFailures), label(to, failures), reason)
	o.log.Info("State %s", details)
	o.audit(reporting.EventTypeTransition, details)
}

func (o *Orchestrator) audit(t reporting.EventType, details string) {
	if o.deps.Events == nil {
		return
	}
	if _, err := o.deps.Events.Append(t, details, ""); err != nil {
		o.log.Warn("Failed to persist monitor event: %v", err)
	}
}

// Tick runs one evaluation: probe, update state, recover if the heartbeat
// is stale, persist the snapshot. The returned error is about persistence;
// probe and restart failures are part of the state.
func (o *Orchestrator) Tick(ctx context.Context) (status.Snapshot, error) {
	running, message := o.deps.Checker.Check(ctx)
	o.log.Debug("Probe: running=%t (%s)", running, message)

	if running {
		o.transition(StateNominal, 0, message)
		o.setLastError("")
		if err := o.deps.Heartbeat.Record("check_ok"); err != nil {
			o.setLastError(err.Error())
		}
		return o.persist(running, message)
	}

	_, failures := o.State()
	failures++
	o.transition(StateDegraded, failures, message)
	o.log.Warn("Service not running: %s (consecutive failures: %d)", message, failures)

	age, ok := o.deps.Heartbeat.Age()
	if !ok {
		if err := o.deps.Heartbeat.Baseline(); err != nil {
			o.setLastError(err.Error())
		}
		return o.persist(running, message)
	}
	if age <= o.cfg.TimeoutThreshold {
		o.log.Info("Heartbeat age %s within threshold %s, not restarting", age.Round(time.Second), o.cfg.TimeoutThreshold)
		return o.persist(running, message)
	}

	o.log.Warn("Heartbeat stale (%s > %s), starting recovery", age.Round(time.Second), o.cfg.TimeoutThreshold)
	o.transition(StateRecovering, failures, fmt.Sprintf("heartbeat stale for %s", age.Round(time.Second)))

	if err := o.Restart(ctx, false); err != nil {
		o.setLastError(err.Error())
		o.transition(StateDegraded, failures, "restart failed")
		return o.persist(running, message)
	}

	o.recovered(ctx)
	return o.persist(true, "recovered after restart")
}

// Recover runs the restart sequence on demand and, when it succeeds, takes
// the same path as an automatic recovery: heartbeat, recovered event and
// notification.
func (o *Orchestrator) Recover(ctx context.Context, force bool) error {
	_, failures := o.State()
	o.transition(StateRecovering, failures, "manual restart requested")

	if err := o.Restart(ctx, force); err != nil {
		if failures == 0 {
			failures = 1
		}
		o.setLastError(err.Error())
		o.transition(StateDegraded, failures, "restart failed")
		return err
	}
	o.recovered(ctx)
	return nil
}

// recovered walks RecoveredCooldown back to Nominal.
func (o *Orchestrator) recovered(ctx context.Context) {
	o.transition(StateRecoveredCooldown, 0, "restart succeeded")
	o.setLastError("")

	if err := o.deps.Heartbeat.Record("recovered"); err != nil {
		o.setLastError(err.Error())
	}
	o.audit(reporting.EventTypeRecovered, "service restarted and verified")
	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.Notify(ctx, "openclaw was down and has been restarted successfully"); err != nil {
			o.log.Warn("Failed to send recovery notification: %v", err)
		}
	}
	o.transition(StateNominal, 0, "recovery complete")
}

func (o *Orchestrator) setLastError(msg string) {
	o.mu.Lock()
	o.lastErr = msg
	o.mu.Unlock()
}

// Snapshot builds the current status snapshot.
func (o *Orchestrator) Snapshot(monitorRunning bool) status.Snapshot {
	age, ok := o.deps.Heartbeat.Age()

	o.mu.Lock()
	defer o.mu.Unlock()
	return status.Snapshot{
		Timestamp:           time.Now(),
		IsRunning:           o.lastRunning,
		Message:             o.lastMessage,
		ConsecutiveFailures: o.failures,
		HeartbeatAge:        status.AgeSeconds(age, ok),
		MonitorRunning:      monitorRunning,
		State:               label(o.state, o.failures),
		LastError:           o.lastErr,
	}
}

func (o *Orchestrator) persist(running bool, message string) (status.Snapshot, error) {
	o.mu.Lock()
	o.lastRunning, o.lastMessage = running, message
	o.mu.Unlock()
	return o.save(true)
}

func (o *Orchestrator) save(monitorRunning bool) (status.Snapshot, error) {
	snap := o.Snapshot(monitorRunning)
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveSnapshot(snap)
	}
	if o.deps.Status == nil {
		return snap, nil
	}
	if err := o.deps.Status.Save(snap); err != nil {
		return snap, fmt.Errorf("failed to save status: %w", err)
	}
	return snap, nil
}
