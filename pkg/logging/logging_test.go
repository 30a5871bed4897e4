package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesSubsystemAndError(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug).Named("Orchestrator")

	log.Error(errors.New("boom"), "restart failed after %d attempts", 10)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "subsystem=Orchestrator")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "restart failed after 10 attempts")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn)

	log.Debug("hidden")
	log.Info("hidden too")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	assert.NotPanics(t, func() {
		log.Info("nothing happens")
		log.Named("x").Error(nil, "still nothing")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
			assert.NotEqual(t, "UNKNOWN", tt.want.String())
		})
	}
}
