package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_String(t *testing.T) {
	ts := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "proxy on",
			event: Event{Timestamp: ts, Type: EventTypeProxyOn, Details: "proxy enabled", ProxyState: "on"},
			want:  "2026-10-17T09:30:00Z [proxy_on] proxy enabled (proxy: on)",
		},
		{
			name:  "proxy off",
			event: Event{Timestamp: ts, Type: EventTypeProxyOff, Details: "proxy disabled", ProxyState: "off"},
			want:  "2026-10-17T09:30:00Z [proxy_off] proxy disabled (proxy: off)",
		},
		{
			name:  "transition without proxy state",
			event: Event{Timestamp: ts, Type: EventTypeTransition, Details: "nominal -> degraded(1): no process found"},
			want:  "2026-10-17T09:30:00Z [transition] nominal -> degraded(1): no process found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.String())
		})
	}
}
