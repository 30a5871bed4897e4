// Package backup snapshots the supervised service's JSON configuration
// before risky operations and keeps only the most recent snapshots.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clawguard/internal/faults"
	"clawguard/pkg/logging"
)

const (
	filePrefix = "openclaw_backup_"
	fileSuffix = ".json"
	// MetadataKey is the field injected into every backup.
	MetadataKey = "_backup_metadata"
	// DefaultRetention is how many backups Rotate keeps.
	DefaultRetention = 10

	timestampLayout = "20060102_150405"
)

// Metadata describes a backup and is stored inside it.
type Metadata struct {
	Timestamp  string `json:"timestamp"`
	Reason     string `json:"reason"`
	BackupPath string `json:"backup_path"`
}

// Info is a backup file as listed on disk.
type Info struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// Manager owns the backup directory. It is the only actor that deletes in it.
type Manager struct {
	source    string
	dir       string
	retention int
	now       func() time.Time
	log       *logging.Logger
}

// NewManager creates a Manager copying source into dir.
func NewManager(source, dir string, log *logging.Logger) *Manager {
	return &Manager{
		source:    source,
		dir:       dir,
		retention: DefaultRetention,
		now:       time.Now,
		log:       log.Named("Backup"),
	}
}

// WithClock replaces the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Backup writes a new timestamped copy of the source config with metadata
// injected, then rotates. It returns a faults.ConfigMissing error, without
// rotating, when the source does not exist.
func (m *Manager) Backup(reason string) (string, error) {
	data, err := os.ReadFile(m.source)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Warn("Config file does not exist: %s", m.source)
			return "", faults.New(faults.ConfigMissing, "backup", err)
		}
		m.log.Error(err, "Failed to read config %s", m.source)
		return "", fmt.Errorf("failed to read config: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		m.log.Error(err, "Config %s is not a JSON object", m.source)
		return "", faults.New(faults.MalformedState, "backup", err)
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	timestamp := m.now().Format(timestampLayout)
	path := m.uniquePath(timestamp, sanitizeReason(reason))

	meta, err := json.Marshal(Metadata{Timestamp: timestamp, Reason: reason, BackupPath: path})
	if err != nil {
		return "", err
	}
	doc[MetadataKey] = meta

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		m.log.Error(err, "Failed to write backup %s", path)
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	m.log.Info("Config backed up: %s", path)

	if err := m.Rotate(); err != nil {
		m.log.Error(err, "Failed to rotate backups")
	}
	return path, nil
}

// uniquePath avoids clobbering a backup taken within the same second.
func (m *Manager) uniquePath(timestamp, reason string) string {
	base := filePrefix + timestamp + "_" + reason
	path := filepath.Join(m.dir, base+fileSuffix)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s_%d%s", base, i, fileSuffix))
	}
}

func sanitizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "manual"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, reason)
}

// List returns all backups ordered by modification time, oldest first.
func (m *Manager) List() ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(matches))
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil {
			continue // removed underneath us
		}
		infos = append(infos, Info{Path: path, Name: filepath.Base(path), ModTime: st.ModTime(), Size: st.Size()})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].ModTime.Before(infos[j].ModTime)
	})
	return infos, nil
}

// Rotate deletes all but the most recently modified backups.
func (m *Manager) Rotate() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= m.retention {
		return nil
	}

	var firstErr error
	for _, old := range infos[:len(infos)-m.retention] {
		if err := os.Remove(old.Path); err != nil && !os.IsNotExist(err) {
			m.log.Error(err, "Failed to remove old backup %s", old.Name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.log.Info("Removed old backup: %s", old.Name)
	}
	return firstErr
}
