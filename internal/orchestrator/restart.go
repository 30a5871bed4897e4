package orchestrator

import (
	"context"
	"fmt"
	"time"

	"clawguard/internal/faults"
	"clawguard/internal/reporting"
)

// Restart runs the bounded restart sequence and verifies the service came
// back. force skips the graceful stop command. A failed restart is
// returned as a faults error and recorded in the event log.
func (o *Orchestrator) Restart(ctx context.Context, force bool) error {
	start := time.Now()
	err := o.restart(ctx, force)
	took := time.Since(start)

	if o.deps.Observer != nil {
		o.deps.Observer.ObserveRestart(err == nil, took)
	}
	if err != nil {
		o.log.Error(err, "Restart failed after %s", took.Round(time.Millisecond))
		o.audit(reporting.EventTypeRestartFailed, err.Error())
		return err
	}
	o.log.Info("Restart verified after %s", took.Round(time.Millisecond))
	return nil
}

func (o *Orchestrator) restart(ctx context.Context, force bool) error {
	if o.deps.Backups != nil {
		if _, err := o.deps.Backups.Backup("pre_restart"); err != nil {
			o.log.Warn("Pre-restart backup failed, continuing: %v", err)
		}
	}

	if !force && len(o.cfg.StopCommand) > 0 {
		o.log.Info("Stopping service gracefully")
		stopCtx, cancel := context.WithTimeout(ctx, o.cfg.StopTimeout)
		if err := o.deps.Procs.Run(stopCtx, o.cfg.StopCommand); err != nil {
			o.log.Warn("Graceful stop failed, continuing: %v", err)
		}
		cancel()
	}
	if err := o.sleep(ctx, o.cfg.StopGrace); err != nil {
		return err
	}

	if err := o.deps.Procs.Terminate(ctx, o.cfg.ProcessPattern); err != nil {
		o.log.Warn("Force-terminate failed, continuing: %v", err)
	}
	if err := o.sleep(ctx, o.cfg.KillGrace); err != nil {
		return err
	}

	pid, err := o.spawn(ctx)
	if err != nil {
		return faults.New(faults.ProcessSpawnFailure, "restart", err)
	}
	o.log.Info("Started service (PID %d), waiting %s", pid, o.cfg.StartupWait)
	if err := o.sleep(ctx, o.cfg.StartupWait); err != nil {
		return err
	}

	return o.verify(ctx)
}

// spawn starts the service. With a proxy context it waits for any probe
// batch to finish, so the child never inherits a batch's temporary state.
func (o *Orchestrator) spawn(ctx context.Context) (int, error) {
	if o.deps.Net == nil {
		return o.deps.Procs.Spawn(ctx, o.cfg.StartCommand, nil)
	}
	b, err := o.deps.Net.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer b.Release()
	return o.deps.Procs.Spawn(ctx, o.cfg.StartCommand, o.deps.Net.Environ(b.Detect()))
}

// verify polls the probe under the retry policy. It sleeps only between
// attempts.
func (o *Orchestrator) verify(ctx context.Context) error {
	policy := o.cfg.Retry
	var message string
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		var running bool
		running, message = o.deps.Checker.Check(ctx)
		if running {
			o.log.Info("Service running after %d check(s): %s", attempt, message)
			return nil
		}
		o.log.Debug("Check %d/%d: %s", attempt, policy.MaxAttempts, message)
		if attempt < policy.MaxAttempts {
			if err := o.sleep(ctx, policy.Interval); err != nil {
				return err
			}
		}
	}
	return faults.New(faults.ProbeTimeout, "restart",
		fmt.Errorf("service not running after %d checks: %s", policy.MaxAttempts, message))
}
