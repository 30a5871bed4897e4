// Package status persists the single most recent monitor snapshot and
// network health report. There is no history: every save replaces the
// previous file atomically.
package status

import (
	"time"
)

// Snapshot is the monitor state written at the end of every tick. It is the
// only queryable state of the supervisor and must be enough to reconstruct
// its health.
type Snapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	IsRunning           bool      `json:"is_running"`
	Message             string    `json:"message"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	HeartbeatAge        *float64  `json:"heartbeat_age"` // seconds; null when no usable heartbeat
	MonitorRunning      bool      `json:"monitor_running"`
	State               string    `json:"state,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// AgeSeconds converts an optional heartbeat age to the snapshot field.
func AgeSeconds(age time.Duration, ok bool) *float64 {
	if !ok {
		return nil
	}
	s := age.Seconds()
	return &s
}

// Store reads and writes a Snapshot file.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Save replaces the snapshot file.
func (s *Store) Save(snap Snapshot) error {
	return WriteJSON(s.path, snap)
}

// Load returns the last saved snapshot.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot
	err := ReadJSON(s.path, &snap)
	return snap, err
}
