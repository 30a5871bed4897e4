package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// State is the orchestrator's view of the managed service.
type State int

const (
	StateNominal State = iota
	StateDegraded
	StateRecovering
	StateRecoveredCooldown
)

// String makes State satisfy the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateNominal:
		return "nominal"
	case StateDegraded:
		return "degraded"
	case StateRecovering:
		return "recovering"
	case StateRecoveredCooldown:
		return "recovered_cooldown"
	default:
		return "unknown"
	}
}

// label includes the failure count for Degraded.
func label(s State, failures int) string {
	if s == StateDegraded {
		return fmt.Sprintf("%s(%d)", s, failures)
	}
	return s.String()
}

// RetryPolicy bounds the post-restart verification.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy polls ten times, three seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 10, Interval: 3 * time.Second}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
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
