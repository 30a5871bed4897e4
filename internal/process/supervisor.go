// Package process hides OS process discovery, termination and spawning
// behind the Supervisor interface so recovery logic can be tested without
// real processes.
package process

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a process query or command does not finish in time.
var ErrTimeout = errors.New("process operation timed out")

// Supervisor finds, terminates and launches processes by pattern.
// Every method must honour ctx and never block indefinitely.
type Supervisor interface {
	// Find returns the PIDs of processes whose command line matches pattern,
	// excluding the caller and its ancestors. No match is not an error.
	Find(ctx context.Context, pattern string) ([]int, error)

	// Terminate force-kills every process Find would report for pattern.
	Terminate(ctx context.Context, pattern string) error

	// Spawn starts cmd detached from the caller's lifetime and returns its PID.
	// env entries ("KEY=value") are appended to the inherited environment.
	Spawn(ctx context.Context, cmd []string, env []string) (int, error)

	// Run executes cmd to completion, e.g. a graceful stop command.
	Run(ctx context.Context, cmd []string) error

	// Alive reports whether the process with the given PID is still running.
	Alive(pid int) bool
}
