package proxy

import (
	"context"
	"testing"

	"clawguard/internal/netctx"
	"clawguard/internal/reporting"
	"clawguard/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, env netctx.Env) (*Router, *reporting.EventLog) {
	t.Helper()
	nc := netctx.New(env, netctx.Settings{
		HTTP:  "http://127.0.0.1:4780",
		HTTPS: "http://127.0.0.1:4780",
		SOCKS: "socks5://127.0.0.1:4781",
	})
	events := reporting.NewEventLog("")
	r := New(nc,
		[]string{"baidu.com", "qq.com", "shared.example"},
		[]string{"google.com", "GitHub.com", "shared.example"},
		events, logging.Discard())
	return r, events
}

func TestDecide(t *testing.T) {
	r, _ := newRouter(t, netctx.NewMapEnv())

	tests := []struct {
		name string
		url  string
		want Route
	}{
		{"domestic", "https://www.baidu.com/s?wd=x", RouteOff},
		{"international", "https://api.github.com/repos", RouteOn},
		{"upper case host", "https://WWW.GOOGLE.COM", RouteOn},
		{"both lists resolve to domestic", "https://cdn.shared.example/x", RouteOff},
		{"unknown host never set", "https://example.org", RouteAuto},
		{"not a url", "::not a url", RouteAuto},
		{"relative", "/status", RouteAuto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Decide(tt.url))
		})
	}
}

func TestDecide_FallsBackToLastSetState(t *testing.T) {
	r, _ := newRouter(t, netctx.NewMapEnv())
	require.NoError(t, r.SetOn(context.Background()))
	assert.Equal(t, RouteOn, r.Decide("https://example.org"))

	require.NoError(t, r.SetOff(context.Background()))
	assert.Equal(t, RouteOff, r.Decide("https://example.org"))
}

func TestSetOnOff_RecordEvents(t *testing.T) {
	r, events := newRouter(t, netctx.NewMapEnv())
	_, ok := r.LastSwitch()
	assert.False(t, ok)

	require.NoError(t, r.SetOn(context.Background()))
	assert.Equal(t, netctx.StateOn, r.Detect())
	require.NoError(t, r.SetOff(context.Background()))
	assert.Equal(t, netctx.StateOff, r.Detect())

	recent := events.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, reporting.EventTypeProxyOn, recent[0].Type)
	assert.Equal(t, "on", recent[0].ProxyState)
	assert.Equal(t, reporting.EventTypeProxyOff, recent[1].Type)

	_, ok = r.LastSwitch()
	assert.True(t, ok)
}

func TestSetOn_FailureRecordsErrorEvent(t *testing.T) {
	env := netctx.NewMapEnv()
	env.FailOn = "HTTPS_PROXY"
	r, events := newRouter(t, env)

	require.Error(t, r.SetOn(context.Background()))
	assert.Equal(t, netctx.StateOff, r.Detect())

	last, ok := events.Last(reporting.EventTypeProxyOnError)
	require.True(t, ok)
	assert.Contains(t, last.Details, "HTTPS_PROXY")
	assert.Equal(t, RouteAuto, r.Decide("https://example.org"), "failed switch does not change the fallback")
}
