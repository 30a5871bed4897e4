package orchestrator

import (
	"context"
	"fmt"
	"time"

	"clawguard/internal/faults"
	"clawguard/internal/reporting"
)

// Run ticks immediately and then every CheckInterval until ctx is
// cancelled. It returns nil on cancellation after writing a final snapshot
// with monitor_running=false.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("Monitor started (interval %s, threshold %s)", o.cfg.CheckInterval, o.cfg.TimeoutThreshold)

	for {
		delay := o.cfg.CheckInterval
		if err := o.safeTick(ctx); err != nil {
			o.log.Error(err, "Monitor tick failed, retrying in %s", o.cfg.FallbackDelay)
			o.setLastError(err.Error())
			o.audit(reporting.EventTypeLoopError, err.Error())
			if _, serr := o.save(true); serr != nil {
				o.log.Warn("Failed to persist status after tick failure: %v", serr)
			}
			delay = o.cfg.FallbackDelay
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			o.log.Info("Monitor stopping")
			if _, err := o.save(false); err != nil {
				o.log.Error(err, "Failed to write final status")
			}
			return nil
		case <-t.C:
		}
	}
}

// safeTick runs one tick on a context that is not cancelled with ctx, and
// turns a panic into an UnhandledLoop fault.
func (o *Orchestrator) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faults.New(faults.UnhandledLoop, "tick", fmt.Errorf("panic: %v", r))
		}
	}()

	if _, err := o.Tick(context.WithoutCancel(ctx)); err != nil {
		return faults.New(faults.UnhandledLoop, "tick", err)
	}
	return nil
}
