package heartbeat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clawguard/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newStore(t *testing.T) (*Store, *fakeClock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	clock := &fakeClock{t: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)}
	return NewStore(path, "1.0.0", logging.Discard()).WithClock(clock.now), clock, path
}

func TestAge_AbsentRecord(t *testing.T) {
	store, _, _ := newStore(t)
	_, ok := store.Age()
	assert.False(t, ok)
}

func TestRecordThenAge(t *testing.T) {
	store, clock, _ := newStore(t)

	require.NoError(t, store.Record("heartbeat"))
	clock.t = clock.t.Add(1300 * time.Second)

	age, ok := store.Age()
	require.True(t, ok)
	assert.Equal(t, 1300*time.Second, age)

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StatusAlive, rec.Status)
	assert.Equal(t, "1.0.0", rec.MonitorVersion)
	assert.Equal(t, "heartbeat", rec.LastAction)
}

func TestRecordOverwrites(t *testing.T) {
	store, clock, path := newStore(t)

	require.NoError(t, store.Record("heartbeat"))
	clock.t = clock.t.Add(time.Hour)
	require.NoError(t, store.Record("restart"))

	age, ok := store.Age()
	require.True(t, ok)
	assert.Zero(t, age)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "exactly one live record")
}

func TestAge_MalformedIsAbsent(t *testing.T) {
	for name, content := range map[string]string{
		"not json":     "{{{",
		"bad time":     `{"timestamp": "yesterday"}`,
		"no timestamp": `{"status": "alive"}`,
	} {
		t.Run(name, func(t *testing.T) {
			store, _, path := newStore(t)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, ok := store.Age()
			assert.False(t, ok)
		})
	}
}

func TestBaseline(t *testing.T) {
	store, _, _ := newStore(t)
	require.NoError(t, store.Baseline())

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StatusBaseline, rec.Status)

	age, ok := store.Age()
	assert.True(t, ok)
	assert.Zero(t, age)
}

func TestAge_FutureTimestampClampsToZero(t *testing.T) {
	store, clock, _ := newStore(t)
	require.NoError(t, store.Record("heartbeat"))
	clock.t = clock.t.Add(-time.Minute)

	age, ok := store.Age()
	assert.True(t, ok)
	assert.Zero(t, age)
}
