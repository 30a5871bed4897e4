// Package heartbeat keeps the self-reported liveness timestamp. It is a
// separate piece of evidence from the externally probed liveness signal.
package heartbeat

import (
	"time"

	"clawguard/internal/status"
	"clawguard/pkg/logging"
)

// Status tags written into the record.
const (
	StatusAlive    = "alive"
	StatusBaseline = "baseline"
)

// Record is the persisted heartbeat. Only one exists per workspace.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	MonitorVersion string    `json:"monitor_version"`
	LastAction     string    `json:"last_action"`
}

// Store reads and writes the heartbeat file.
type Store struct {
	path    string
	version string
	now     func() time.Time
	log     *logging.Logger
}

// NewStore creates a Store. version is stamped into every record.
func NewStore(path, version string, log *logging.Logger) *Store {
	return &Store{path: path, version: version, now: time.Now, log: log.Named("Heartbeat")}
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Record overwrites the heartbeat with the current time.
func (s *Store) Record(action string) error {
	return s.write(StatusAlive, action)
}

// Baseline writes a record marking the first observed failure when no
// usable heartbeat exists, so staleness is measured from that moment.
func (s *Store) Baseline() error {
	return s.write(StatusBaseline, "failure_observed")
}

func (s *Store) write(tag, action string) error {
	rec := Record{
		Timestamp:      s.now(),
		Status:         tag,
		MonitorVersion: s.version,
		LastAction:     action,
	}
	if err := status.WriteJSON(s.path, rec); err != nil {
		s.log.Error(err, "Failed to write heartbeat")
		return err
	}
	s.log.Debug("Heartbeat written (%s/%s)", tag, action)
	return nil
}

// Load returns the stored record.
func (s *Store) Load() (Record, error) {
	var rec Record
	err := status.ReadJSON(s.path, &rec)
	return rec, err
}

// Age returns how old the heartbeat is. ok is false when there is no record
// or it cannot be decoded.
func (s *Store) Age() (age time.Duration, ok bool) {
	rec, err := s.Load()
	if err != nil {
		if !status.IsNotExist(err) {
			s.log.Warn("Ignoring unusable heartbeat: %v", err)
		}
		return 0, false
	}
	if rec.Timestamp.IsZero() {
		s.log.Warn("Ignoring heartbeat without timestamp")
		return 0, false
	}
	age = s.now().Sub(rec.Timestamp)
	if age < 0 {
		age = 0
	}
	return age, true
}
