package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clawguard/internal/faults"
	"clawguard/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, config string) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "openclaw.json")
	if config != "" {
		require.NoError(t, os.WriteFile(source, []byte(config), 0o644))
	}
	backups := filepath.Join(dir, "config_backups")
	return NewManager(source, backups, logging.Discard()), backups
}

func TestBackup_InjectsMetadata(t *testing.T) {
	m, _ := setup(t, `{"gateway": {"port": 18789}, "model": "x"}`)
	m.WithClock(func() time.Time { return time.Date(2026, 10, 17, 9, 30, 5, 0, time.Local) })

	path, err := m.Backup("manual")
	require.NoError(t, err)
	assert.Equal(t, "openclaw_backup_20261017_093005_manual.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `{"port": 18789}`, string(doc["gateway"]))
	assert.JSONEq(t, `"x"`, string(doc["model"]))

	var meta Metadata
	require.NoError(t, json.Unmarshal(doc[MetadataKey], &meta))
	assert.Equal(t, "20261017_093005", meta.Timestamp)
	assert.Equal(t, "manual", meta.Reason)
	assert.Equal(t, path, meta.BackupPath)
}

func TestBackup_MissingConfigFailsWithoutRotation(t *testing.T) {
	m, dir := setup(t, "")

	// pre-existing backups beyond retention must survive a failed backup
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := 0; i < 12; i++ {
		name := filepath.Join(dir, filePrefix+time.Duration(i).String()+fileSuffix)
		require.NoError(t, os.WriteFile(name, []byte("{}"), 0o644))
	}

	_, err := m.Backup("manual")
	assert.ErrorIs(t, err, faults.ErrConfigMissing)

	infos, err := m.List()
	require.NoError(t, err)
	assert.Len(t, infos, 12)
}

func TestBackup_RejectsNonObjectConfig(t *testing.T) {
	m, _ := setup(t, `[1, 2, 3]`)
	_, err := m.Backup("manual")
	assert.ErrorIs(t, err, faults.ErrMalformedState)
}

func TestBackup_TwelveBackupsKeepNewestTen(t *testing.T) {
	m, _ := setup(t, `{"a": 1}`)
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	var written []string
	for i := 0; i < 12; i++ {
		stamp := base.Add(time.Duration(i) * time.Minute)
		m.WithClock(func() time.Time { return stamp })

		path, err := m.Backup("test")
		require.NoError(t, err)
		// make modification order explicit regardless of filesystem timestamp resolution
		require.NoError(t, os.Chtimes(path, stamp, stamp))
		written = append(written, path)
		require.NoError(t, m.Rotate())
	}

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 10)

	var remaining []string
	for _, info := range infos {
		remaining = append(remaining, info.Path)
	}
	assert.Equal(t, written[2:], remaining)
}

func TestBackup_SameSecondDoesNotOverwrite(t *testing.T) {
	m, _ := setup(t, `{"a": 1}`)
	m.WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local) })

	first, err := m.Backup("pre_restart")
	require.NoError(t, err)
	second, err := m.Backup("pre_restart")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "openclaw_backup_20260101_000000_pre_restart_2.json", filepath.Base(second))
}

func TestSanitizeReason(t *testing.T) {
	assert.Equal(t, "manual", sanitizeReason(""))
	assert.Equal(t, "manual_backup", sanitizeReason("manual_backup"))
	assert.Equal(t, "a_b_c", sanitizeReason("a/b c"))
}
