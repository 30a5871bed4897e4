// Package faults classifies the recoverable failures clawguard runs into.
//
// None of these kinds is fatal to a supervising loop: they are counted,
// logged and persisted, and the loop carries on with the next tick.
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind string

const (
	// ProbeTimeout means a liveness or reachability check did not answer in time.
	ProbeTimeout Kind = "probe_timeout"
	// ProcessSpawnFailure means a (re)start of the managed process failed.
	ProcessSpawnFailure Kind = "process_spawn_failure"
	// ConfigMissing means the service configuration file is absent.
	ConfigMissing Kind = "config_missing"
	// MalformedState means a persisted state file could not be decoded.
	MalformedState Kind = "malformed_state"
	// UnhandledLoop means a tick failed in an unexpected way and was caught at the loop boundary.
	UnhandledLoop Kind = "unhandled_loop"
)

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, faults.New(faults.ConfigMissing, "", nil)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// New builds a classified error.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first classified error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinels for errors.Is checks.
var (
	ErrProbeTimeout        = &Error{Kind: ProbeTimeout}
	ErrProcessSpawnFailure = &Error{Kind: ProcessSpawnFailure}
	ErrConfigMissing       = &Error{Kind: ConfigMissing}
	ErrMalformedState      = &Error{Kind: MalformedState}
	ErrUnhandledLoop       = &Error{Kind: UnhandledLoop}
)
