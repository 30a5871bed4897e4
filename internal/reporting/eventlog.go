package reporting

import (
	"sync"
	"time"

	"clawguard/internal/status"
)

const (
	// MaxEvents is the length above which the log is compacted.
	MaxEvents = 100
	// CompactTo is how many of the most recent events survive compaction.
	CompactTo = 50
)

// EventLog is an append-only, bounded event log. When it grows past
// MaxEvents it is cut back to the most recent CompactTo entries in one
// step. If a path is set, every append rewrites the file.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	path   string
	now    func() time.Time
}

// NewEventLog creates a log persisted at path. An empty path keeps the log in memory.
func NewEventLog(path string) *EventLog {
	return &EventLog{path: path, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (l *EventLog) WithClock(now func() time.Time) *EventLog {
	l.now = now
	return l
}

// Path returns where the log is persisted, empty for in-memory logs.
func (l *EventLog) Path() string { return l.path }

// Load replaces the in-memory events with the persisted ones. A missing
// file is not an error.
func (l *EventLog) Load() error {
	if l.path == "" {
		return nil
	}
	var events []Event
	if err := status.ReadJSON(l.path, &events); err != nil {
		if status.IsNotExist(err) {
			return nil
		}
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = compact(events)
	return nil
}

// Append records an event and persists the log. The event is kept in
// memory even if persisting fails.
func (l *EventLog) Append(eventType EventType, details, proxyState string) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Event{
		Timestamp:  l.now(),
		Type:       eventType,
		Details:    details,
		ProxyState: proxyState,
	}
	l.events = compact(append(l.events, e))

	if l.path == "" {
		return e, nil
	}
	return e, status.WriteJSON(l.path, l.events)
}

func compact(events []Event) []Event {
	if len(events) <= MaxEvents {
		return events
	}
	kept := make([]Event, CompactTo)
	copy(kept, events[len(events)-CompactTo:])
	return kept
}

// Recent returns up to n of the newest events, oldest first. n <= 0 returns all.
func (l *EventLog) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if n > 0 && len(l.events) > n {
		start = len(l.events) - n
	}
	return append([]Event(nil), l.events[start:]...)
}

// Last returns the newest event of the given type.
func (l *EventLog) Last(types ...EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		for _, t := range types {
			if l.events[i].Type == t {
				return l.events[i], true
			}
		}
	}
	return Event{}, false
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
