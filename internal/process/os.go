package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// maxAncestors bounds the parent walk in case ps reports a cycle.
const maxAncestors = 64

// OS is the production Supervisor. It shells out to pgrep for discovery
// and kills by PID, like an operator would.
type OS struct {
	// DefaultTimeout bounds calls whose context carries no deadline.
	DefaultTimeout time.Duration

	parentOf func(ctx context.Context, pid int) (int, error)
}

// NewOS returns an OS supervisor with a 10 second default timeout.
func NewOS() *OS {
	return &OS{DefaultTimeout: 10 * time.Second, parentOf: psParent}
}

func (o *OS) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || o.DefaultTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.DefaultTimeout)
}

// Find implements Supervisor. clawguard itself and every process it
// descends from are never reported, even when their command line matches.
func (o *OS) Find(ctx context.Context, pattern string) ([]int, error) {
	ctx, cancel := o.withDeadline(ctx)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pgrep", "-f", pattern)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pgrep -f %q: %w", pattern, ErrTimeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			// pgrep exits 1 when nothing matched
			return nil, nil
		}
		return nil, fmt.Errorf("pgrep -f %q: %w. Stderr: %s", pattern, err, strings.TrimSpace(stderr.String()))
	}

	return parsePIDs(stdout.String(), o.lineage(ctx)), nil
}

// lineage returns clawguard's own PID and its ancestors up to init.
func (o *OS) lineage(ctx context.Context) map[int]bool {
	skip := map[int]bool{os.Getpid(): true}
	parentOf := o.parentOf
	if parentOf == nil {
		parentOf = psParent
	}

	pid := os.Getppid()
	for i := 0; i < maxAncestors && pid > 1 && !skip[pid]; i++ {
		skip[pid] = true
		next, err := parentOf(ctx, pid)
		if err != nil {
			break
		}
		pid = next
	}
	return skip
}

// psParent asks ps for the parent of pid.
func psParent(ctx context.Context, pid int) (int, error) {
	out, err := exec.CommandContext(ctx, "ps", "-o", "ppid=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return 0, fmt.Errorf("ps -p %d: %w", pid, err)
	}
	ppid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("ps -p %d: unexpected output %q", pid, strings.TrimSpace(string(out)))
	}
	return ppid, nil
}

// parsePIDs reads one PID per line and drops the skipped ones.
func parsePIDs(out string, skip map[int]bool) []int {
	var pids []int
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || skip[pid] {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// Terminate implements Supervisor with SIGKILL. It kills exactly the PIDs
// Find reports, so clawguard and its parents survive a pattern that also
// matches their own command lines.
func (o *OS) Terminate(ctx context.Context, pattern string) error {
	pids, err := o.Find(ctx, pattern)
	if err != nil {
		return err
	}

	var failed []string
	for _, pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			failed = append(failed, fmt.Sprintf("%d: %v", pid, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to kill processes matching %q: %s", pattern, strings.Join(failed, ", "))
	}
	return nil
}

// Spawn implements Supervisor. The child gets its own process group so an
// interrupt aimed at clawguard does not take it down, and it is reaped in
// the background.
func (o *OS) Spawn(ctx context.Context, command []string, env []string) (int, error) {
	if len(command) == 0 {
		return 0, errors.New("spawn: empty command")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), env...)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %v: %w", command, err)
	}

	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, nil
}

// Run implements Supervisor.
func (o *OS) Run(ctx context.Context, command []string) error {
	if len(command) == 0 {
		return errors.New("run: empty command")
	}
	ctx, cancel := o.withDeadline(ctx)
	defer cancel()

	out, err := exec.CommandContext(ctx, command[0], command[1:]...).CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%v: %w", command, ErrTimeout)
		}
		return fmt.Errorf("%v: %w. Output: %s", command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Alive implements Supervisor using signal 0.
func (o *OS) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
