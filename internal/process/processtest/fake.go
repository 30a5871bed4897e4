// Package processtest provides an in-memory process.Supervisor for tests.
package processtest

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Fake keeps a table of pretend processes keyed by PID. Patterns are
// matched as regular expressions against the joined command line, the way
// pgrep -f does.
type Fake struct {
	mu      sync.Mutex
	procs   map[int]string
	nextPID int
	calls   []string
	envs    [][]string

	// FindErr, TerminateErr, SpawnErr and RunErr, when set, are returned by
	// the corresponding method.
	FindErr      error
	TerminateErr error
	SpawnErr     error
	RunErr       error

	// SpawnRuns controls whether a spawned command shows up in Find.
	// Defaults to true via New.
	SpawnRuns bool
}

// New returns an empty Fake whose spawned processes keep running.
func New() *Fake {
	return &Fake{procs: make(map[int]string), nextPID: 1000, SpawnRuns: true}
}

// Add registers a running process and returns its PID.
func (f *Fake) Add(cmdline string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPID++
	f.procs[f.nextPID] = cmdline
	return f.nextPID
}

// Kill removes a process as if it crashed.
func (f *Fake) Kill(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.procs, pid)
}

// Calls returns the method log, e.g. "find openclaw", "spawn openclaw gateway start".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// SpawnEnvs returns the env passed to each Spawn call, in order.
func (f *Fake) SpawnEnvs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.envs...)
}

// Count returns how many calls start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *Fake) matching(pattern string) ([]int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var pids []int
	for pid, cmdline := range f.procs {
		if re.MatchString(cmdline) {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// Find implements process.Supervisor.
func (f *Fake) Find(ctx context.Context, pattern string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("find " + pattern)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	return f.matching(pattern)
}

// Terminate implements process.Supervisor.
func (f *Fake) Terminate(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("terminate " + pattern)
	if f.TerminateErr != nil {
		return f.TerminateErr
	}
	pids, err := f.matching(pattern)
	if err != nil {
		return err
	}
	for _, pid := range pids {
		delete(f.procs, pid)
	}
	return nil
}

// Spawn implements process.Supervisor.
func (f *Fake) Spawn(ctx context.Context, cmd []string, env []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmdline := strings.Join(cmd, " ")
	f.record("spawn " + cmdline)
	f.envs = append(f.envs, append([]string(nil), env...))
	if len(cmd) == 0 {
		return 0, errors.New("spawn: empty command")
	}
	if f.SpawnErr != nil {
		return 0, f.SpawnErr
	}
	f.nextPID++
	if f.SpawnRuns {
		f.procs[f.nextPID] = cmdline
	}
	return f.nextPID, nil
}

// Run implements process.Supervisor.
func (f *Fake) Run(ctx context.Context, cmd []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("run " + strings.Join(cmd, " "))
	return f.RunErr
}

// Alive implements process.Supervisor.
func (f *Fake) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.procs[pid]
	return ok
}
