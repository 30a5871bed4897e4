package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clawguard/internal/nethealth"
	"clawguard/internal/status"
	"clawguard/pkg/logging"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSnapshot(t *testing.T) {
	m := New()
	age := 42.0
	m.ObserveSnapshot(status.Snapshot{IsRunning: true, HeartbeatAge: &age})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServiceUp))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.HeartbeatAge))

	m.ObserveSnapshot(status.Snapshot{IsRunning: false, ConsecutiveFailures: 3})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ServiceUp))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConsecutiveFailures))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.HeartbeatAge))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ticks))
}

func TestObserveRestart(t *testing.T) {
	m := New()
	m.ObserveRestart(true, 12*time.Second)
	m.ObserveRestart(false, 35*time.Second)
	m.ObserveRestart(false, 35*time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Restarts.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Restarts.WithLabelValues("failure")))
}

func TestObserveHealth(t *testing.T) {
	m := New()
	checks := []nethealth.CategoryResult{
		{Check: nethealth.CheckDomestic, Status: nethealth.StatusFailed, Results: []nethealth.SiteResult{{Name: "Baidu", LatencyMS: 12.5}}},
		{Check: nethealth.CheckGateway, Status: nethealth.StatusHealthy},
	}
	m.ObserveHealth(nethealth.Report{Checks: checks, Summary: nethealth.Summarize(checks)})

	assert.Equal(t, 50.0, testutil.ToFloat64(m.HealthPercentage))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CategoryHealthy.WithLabelValues(nethealth.CheckDomestic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CategoryHealthy.WithLabelValues(nethealth.CheckGateway)))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.ProbeLatency.WithLabelValues(nethealth.CheckDomestic, "Baidu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthChecks.WithLabelValues("warning")))
}

func TestServer_ExposesMetrics(t *testing.T) {
	m := New()
	m.ServiceUp.Set(1)
	srv := NewServer("127.0.0.1:0", m, logging.Discard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clawguard_service_up 1")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}
