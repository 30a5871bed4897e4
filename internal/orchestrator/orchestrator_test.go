package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clawguard/internal/backup"
	"clawguard/internal/faults"
	"clawguard/internal/heartbeat"
	"clawguard/internal/netctx"
	"clawguard/internal/process/processtest"
	"clawguard/internal/reporting"
	"clawguard/internal/status"
	"clawguard/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChecker returns the scripted results in order, then repeats the last one.
type scriptedChecker struct {
	mu      sync.Mutex
	results []bool
	calls   int
}

func (c *scriptedChecker) Check(context.Context) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	if c.results[i] {
		return true, "healthy"
	}
	return false, "no process found"
}

func (c *scriptedChecker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func (s *recordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.waits {
		total += d
	}
	return total
}

type notifierFunc func(ctx context.Context, message string) error

func (f notifierFunc) Notify(ctx context.Context, message string) error { return f(ctx, message) }

type harness struct {
	orch    *Orchestrator
	checker *scriptedChecker
	procs   *processtest.Fake
	beat    *heartbeat.Store
	status  *status.Store
	events  *reporting.EventLog
	sleeper *recordingSleeper
	clock   *time.Time
	dir     string
}

func testConfig() Config {
	return Config{
		ProcessPattern:   "openclaw",
		TimeoutThreshold: 1200 * time.Second,
		CheckInterval:    300 * time.Second,
		FallbackDelay:    60 * time.Second,
		StopCommand:      []string{"openclaw", "gateway", "stop"},
		StartCommand:     []string{"openclaw", "gateway", "start"},
		StopTimeout:      30 * time.Second,
		StopGrace:        2 * time.Second,
		KillGrace:        1 * time.Second,
		StartupWait:      5 * time.Second,
		Retry:            DefaultRetryPolicy(),
	}
}

func newHarness(t *testing.T, results ...bool) *harness {
	t.Helper()
	dir := t.TempDir()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	h := &harness{
		checker: &scriptedChecker{results: results},
		procs:   processtest.New(),
		status:  status.NewStore(filepath.Join(dir, "founder_status.json")),
		events:  reporting.NewEventLog(filepath.Join(dir, "monitor_events.json")),
		sleeper: &recordingSleeper{},
		clock:   &now,
		dir:     dir,
	}
	h.beat = heartbeat.NewStore(filepath.Join(dir, "founder_heartbeat.json"), "test", logging.Discard()).
		WithClock(func() time.Time { return *h.clock })
	h.orch = New(testConfig(), Deps{
		Checker:   h.checker,
		Heartbeat: h.beat,
		Status:    h.status,
		Procs:     h.procs,
		Events:    h.events,
		Log:       logging.Discard(),
	}).WithSleeper(h.sleeper.Sleep)
	return h
}

// heartbeatAged writes a heartbeat that is age old at the harness clock.
func (h *harness) heartbeatAged(t *testing.T, age time.Duration) {
	t.Helper()
	at := h.clock.Add(-age)
	require.NoError(t, heartbeat.NewStore(filepath.Join(h.dir, "founder_heartbeat.json"), "test", logging.Discard()).
		WithClock(func() time.Time { return at }).Record("seed"))
}

func (h *harness) advance(d time.Duration) { *h.clock = h.clock.Add(d) }

func TestTick_HealthyResetsAndRecordsHeartbeat(t *testing.T) {
	h := newHarness(t, false, true)
	h.heartbeatAged(t, 10*time.Second)

	_, err := h.orch.Tick(context.Background())
	require.NoError(t, err)
	st, n := h.orch.State()
	assert.Equal(t, StateDegraded, st)
	assert.Equal(t, 1, n)

	snap, err := h.orch.Tick(context.Background())
	require.NoError(t, err)
	st, n = h.orch.State()
	assert.Equal(t, StateNominal, st)
	assert.Zero(t, n)
	assert.True(t, snap.IsRunning)
	assert.Equal(t, "healthy", snap.Message)
	require.NotNil(t, snap.HeartbeatAge)
	assert.Zero(t, *snap.HeartbeatAge)

	rec, err := h.beat.Load()
	require.NoError(t, err)
	assert.Equal(t, heartbeat.StatusAlive, rec.Status)
	assert.Equal(t, "check_ok", rec.LastAction)
}

func TestTick_FreshHeartbeatNeverRestarts(t *testing.T) {
	for _, age := range []time.Duration{0, time.Second, 600 * time.Second, 1199 * time.Second, 1200 * time.Second} {
		t.Run(age.String(), func(t *testing.T) {
			h := newHarness(t, false)
			h.heartbeatAged(t, age)

			for i := 0; i < 5; i++ {
				_, err := h.orch.Tick(context.Background())
				require.NoError(t, err)
			}
			st, n := h.orch.State()
			assert.Equal(t, StateDegraded, st)
			assert.Equal(t, 5, n)
			assert.Zero(t, h.procs.Count("spawn"))
			assert.Zero(t, h.procs.Count("terminate"))
		})
	}
}

func TestTick_MissingHeartbeatWritesBaseline(t *testing.T) {
	h := newHarness(t, false)

	snap, err := h.orch.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, h.procs.Count("spawn"))

	rec, err := h.beat.Load()
	require.NoError(t, err)
	assert.Equal(t, heartbeat.StatusBaseline, rec.Status)
	assert.NotNil(t, snap.HeartbeatAge)

	// staleness is measured from the baseline
	h.advance(1201 * time.Second)
	_, err = h.orch.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.procs.Count("spawn"))
}

func TestTick_StaleHeartbeatRecoversOnFourthPoll(t *testing.T) {
	// tick 1 fails, tick 2 fails and triggers recovery, polls 1-3 fail, poll 4 succeeds
	h := newHarness(t, false, false, false, false, false, true)
	h.heartbeatAged(t, 1000*time.Second)
	h.procs.Add("openclaw gateway")

	var notified []string
	h.orch.deps.Notifier = notifierFunc(func(_ context.Context, msg string) error {
		notified = append(notified, msg)
		return nil
	})

	_, err := h.orch.Tick(context.Background())
	require.NoError(t, err)
	st, n := h.orch.State()
	assert.Equal(t, StateDegraded, st)
	assert.Equal(t, 1, n)
	assert.Zero(t, h.procs.Count("spawn"))

	h.advance(300 * time.Second) // heartbeat now 1300s old
	snap, err := h.orch.Tick(context.Background())
	require.NoError(t, err)

	st, n = h.orch.State()
	assert.Equal(t, StateNominal, st)
	assert.Zero(t, n)
	assert.Equal(t, 6, h.checker.Calls())
	assert.True(t, snap.IsRunning)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Empty(t, snap.LastError)
	assert.Len(t, notified, 1)

	assert.Equal(t, 1, h.procs.Count("run openclaw gateway stop"))
	assert.Equal(t, 1, h.procs.Count("terminate openclaw"))
	assert.Equal(t, 1, h.procs.Count("spawn openclaw gateway start"))

	rec, err := h.beat.Load()
	require.NoError(t, err)
	assert.Equal(t, "recovered", rec.LastAction)

	var transitions []string
	for _, e := range h.events.Recent(0) {
		if e.Type == reporting.EventTypeTransition {
			transitions = append(transitions, e.Details)
		}
	}
	require.Len(t, transitions, 5)
	assert.Contains(t, transitions[0], "nominal -> degraded(1)")
	assert.Contains(t, transitions[1], "degraded(1) -> degraded(2)")
	assert.Contains(t, transitions[2], "degraded(2) -> recovering")
	assert.Contains(t, transitions[3], "recovering -> recovered_cooldown")
	assert.Contains(t, transitions[4], "recovered_cooldown -> nominal")
}

func TestRestart_BoundedPolling(t *testing.T) {
	h := newHarness(t, false)

	err := h.orch.Restart(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrProbeTimeout)

	assert.Equal(t, 10, h.checker.Calls())
	// stop grace + kill grace + startup wait + 9 intervals between 10 polls
	assert.Equal(t, 2*time.Second+time.Second+5*time.Second+9*3*time.Second, h.sleeper.Total())
	assert.LessOrEqual(t, h.sleeper.Total(), 35*time.Second)

	last, ok := h.events.Last(reporting.EventTypeRestartFailed)
	require.True(t, ok)
	assert.Contains(t, last.Details, "not running after 10 checks")
}

func TestRestart_SucceedsIffAnyPollRuns(t *testing.T) {
	for polls := 1; polls <= 10; polls++ {
		results := make([]bool, polls)
		results[polls-1] = true
		h := newHarness(t, results...)

		require.NoError(t, h.orch.Restart(context.Background(), false))
		assert.Equal(t, polls, h.checker.Calls())
	}
}

func TestRestart_ForceSkipsGracefulStop(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.orch.Restart(context.Background(), true))
	assert.Zero(t, h.procs.Count("run"))
	assert.Equal(t, 1, h.procs.Count("terminate"))
}

func TestRestart_SpawnFailure(t *testing.T) {
	h := newHarness(t, true)
	h.procs.SpawnErr = errors.New("exec: \"openclaw\": executable file not found in $PATH")

	err := h.orch.Restart(context.Background(), false)
	assert.ErrorIs(t, err, faults.ErrProcessSpawnFailure)
	assert.Zero(t, h.checker.Calls())
}

func TestRestart_TakesPreRestartBackup(t *testing.T) {
	h := newHarness(t, true)
	source := filepath.Join(h.dir, "openclaw.json")
	require.NoError(t, os.WriteFile(source, []byte(`{"a":1}`), 0o644))
	backups := backup.NewManager(source, filepath.Join(h.dir, "backups"), logging.Discard())
	h.orch.deps.Backups = backups

	require.NoError(t, h.orch.Restart(context.Background(), false))
	infos, err := backups.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0].Name, "pre_restart")
}

func TestRestart_SpawnsWithRestingProxyEnvironment(t *testing.T) {
	h := newHarness(t, true)
	env := netctx.NewMapEnv()
	nc := netctx.New(env, netctx.Settings{HTTP: "http://127.0.0.1:7890", HTTPS: "http://127.0.0.1:7890"})
	h.orch.deps.Net = nc

	b, err := nc.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Apply(netctx.StateOn))

	done := make(chan error, 1)
	go func() { done <- h.orch.Restart(context.Background(), true) }()

	// a probe batch still holds the proxy configuration
	assert.Never(t, func() bool { return h.procs.Count("spawn") > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	b.Release()

	require.NoError(t, <-done)
	envs := h.procs.SpawnEnvs()
	require.Len(t, envs, 1)
	assert.Contains(t, envs[0], "http_proxy=http://127.0.0.1:7890")
	assert.Contains(t, envs[0], "HTTPS_PROXY=http://127.0.0.1:7890")

	// the batch is released again after the spawn
	b, err = nc.Acquire(context.Background())
	require.NoError(t, err)
	b.Release()
}

func TestRestart_SpawnWithoutProxyContextPassesNoEnv(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.orch.Restart(context.Background(), true))
	envs := h.procs.SpawnEnvs()
	require.Len(t, envs, 1)
	assert.Empty(t, envs[0])
}

func TestRecover_NotifiesAndRecordsRecovery(t *testing.T) {
	h := newHarness(t, true)
	var sent []string
	h.orch.deps.Notifier = notifierFunc(func(_ context.Context, message string) error {
		sent = append(sent, message)
		return nil
	})

	require.NoError(t, h.orch.Recover(context.Background(), false))

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "restarted successfully")
	_, ok := h.events.Last(reporting.EventTypeRecovered)
	assert.True(t, ok)
	st, n := h.orch.State()
	assert.Equal(t, StateNominal, st)
	assert.Zero(t, n)
	_, ok = h.beat.Age()
	assert.True(t, ok, "recovery records a heartbeat")
}

func TestRecover_FailureStaysDegradedWithoutNotifying(t *testing.T) {
	h := newHarness(t, false)
	notified := false
	h.orch.deps.Notifier = notifierFunc(func(context.Context, string) error {
		notified = true
		return nil
	})

	err := h.orch.Recover(context.Background(), true)
	assert.ErrorIs(t, err, faults.ErrProbeTimeout)
	assert.False(t, notified)
	_, ok := h.events.Last(reporting.EventTypeRecovered)
	assert.False(t, ok)
	st, n := h.orch.State()
	assert.Equal(t, StateDegraded, st)
	assert.Equal(t, 1, n)
}

func TestTick_RestartFailureStaysDegraded(t *testing.T) {
	h := newHarness(t, false)
	h.heartbeatAged(t, 1300*time.Second)

	snap, err := h.orch.Tick(context.Background())
	require.NoError(t, err)

	st, n := h.orch.State()
	assert.Equal(t, StateDegraded, st)
	assert.Equal(t, 1, n)
	assert.False(t, snap.IsRunning)
	assert.Contains(t, snap.LastError, "not running after 10 checks")
	assert.Equal(t, 11, h.checker.Calls(), "one tick probe plus ten polls, no immediate retry")

	persisted, err := h.status.Load()
	require.NoError(t, err)
	assert.Equal(t, "degraded(1)", persisted.State)
	assert.True(t, persisted.MonitorRunning)
}

type panickingChecker struct{}

func (panickingChecker) Check(context.Context) (bool, string) { panic("boom") }

func TestRun_RecoversPanicAndWritesFinalSnapshot(t *testing.T) {
	h := newHarness(t, true)
	h.orch.deps.Checker = panickingChecker{}
	h.orch.cfg.FallbackDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := h.events.Last(reporting.EventTypeLoopError)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	snap, err := h.status.Load()
	require.NoError(t, err)
	assert.False(t, snap.MonitorRunning)
	assert.Contains(t, snap.LastError, "panic: boom")
}

func TestRun_StopsBetweenTicks(t *testing.T) {
	h := newHarness(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.orch.Run(ctx))
	assert.Equal(t, 1, h.checker.Calls(), "the first tick still runs to completion")

	snap, err := h.status.Load()
	require.NoError(t, err)
	assert.False(t, snap.MonitorRunning)
	assert.True(t, snap.IsRunning)
}
