package liveness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clawguard/internal/process"
	"clawguard/internal/process/processtest"
	"clawguard/pkg/logging"

	"github.com/stretchr/testify/assert"
)

func newProbe(procs process.Supervisor, url string) *Probe {
	return New(Config{
		ProcessName:  "openclaw",
		StatusURL:    url,
		ProbeTimeout: 200 * time.Millisecond,
	}, procs, nil, logging.Discard())
}

func TestCheck_NoProcess(t *testing.T) {
	running, msg := newProbe(processtest.New(), "http://127.0.0.1:1/status").Check(context.Background())
	assert.False(t, running)
	assert.Equal(t, MsgNoProcess, msg)
}

func TestCheck_StatusEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantMsg string
	}{
		{"ok", http.StatusOK, MsgHealthy},
		{"server error", http.StatusInternalServerError, "api responded abnormally: 500"},
		{"not found", http.StatusNotFound, "api responded abnormally: 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			procs := processtest.New()
			procs.Add("node /usr/bin/openclaw gateway start")

			running, msg := newProbe(procs, srv.URL+"/status").Check(context.Background())
			assert.True(t, running, "a present process is running regardless of the API")
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestCheck_APIUnreachableStillRunning(t *testing.T) {
	procs := processtest.New()
	procs.Add("openclaw gateway")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	running, msg := newProbe(procs, srv.URL).Check(context.Background())
	assert.True(t, running)
	assert.Equal(t, MsgAPIUnreachable, msg)
}

func TestCheck_ProcessQueryFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"timeout", fmt.Errorf("pgrep: %w", process.ErrTimeout), "check failed: process check timed out"},
		{"os error", errors.New("permission denied"), "check failed: permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procs := processtest.New()
			procs.Add("openclaw gateway")
			procs.FindErr = tt.err

			running, msg := newProbe(procs, "http://127.0.0.1:1").Check(context.Background())
			assert.False(t, running)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
