package reporting

import (
	"fmt"
	"time"
)

// EventType defines the type of event
type EventType string

const (
	// Proxy events
	EventTypeProxyOn      EventType = "proxy_on"
	EventTypeProxyOff     EventType = "proxy_off"
	EventTypeProxyOnError EventType = "proxy_on_error"
	// EventTypeProxyOffError is recorded when clearing the proxy fails.
	EventTypeProxyOffError EventType = "proxy_off_error"

	// Gateway events
	EventTypeGatewayRestartSuccess EventType = "gateway_restart_success"
	EventTypeGatewayRestartWarning EventType = "gateway_restart_warning"
	EventTypeGatewayRestartFailed  EventType = "gateway_restart_failed"
	EventTypeGatewayRestartError   EventType = "gateway_restart_error"

	// Health events
	EventTypeHealthCheck EventType = "health_check"

	// Monitor events
	EventTypeTransition    EventType = "transition"
	EventTypeRestartFailed EventType = "restart_failed"
	EventTypeRecovered     EventType = "recovered"
	EventTypeLoopError     EventType = "loop_error"
)

// Event is one entry of a bounded event log.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	Details    string    `json:"details"`
	ProxyState string    `json:"proxy_state,omitempty"`
}

// String returns a human-readable description of the event
func (e Event) String() string {
	s := fmt.Sprintf("%s [%s] %s", e.Timestamp.Format(time.RFC3339), e.Type, e.Details)
	if e.ProxyState != "" {
		s += fmt.Sprintf(" (proxy: %s)", e.ProxyState)
	}
	return s
}
