// Package metrics exposes the current supervisor and network health as
// Prometheus gauges and counters.
package metrics

import (
	"time"

	"clawguard/internal/nethealth"
	"clawguard/internal/status"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Monitor metrics
	ServiceUp           prometheus.Gauge
	ConsecutiveFailures prometheus.Gauge
	HeartbeatAge        prometheus.Gauge
	Ticks               prometheus.Counter
	Restarts            *prometheus.CounterVec
	RestartDuration     prometheus.Histogram

	// Network metrics
	HealthPercentage prometheus.Gauge
	CategoryHealthy  *prometheus.GaugeVec
	ProbeLatency     *prometheus.GaugeVec
	HealthChecks     *prometheus.CounterVec
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ServiceUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clawguard_service_up",
			Help: "Whether the managed service was running at the last tick",
		}),
		ConsecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clawguard_consecutive_failures",
			Help: "Consecutive failed liveness checks",
		}),
		HeartbeatAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clawguard_heartbeat_age_seconds",
			Help: "Age of the heartbeat record, -1 when absent",
		}),
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "clawguard_ticks_total",
			Help: "Total number of monitor ticks",
		}),
		Restarts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clawguard_restarts_total",
			Help: "Total number of restart sequences by outcome",
		}, []string{"outcome"}),
		RestartDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clawguard_restart_duration_seconds",
			Help:    "Duration of restart sequences",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 120},
		}),

		HealthPercentage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clawguard_network_health_percentage",
			Help: "Share of healthy network check categories",
		}),
		CategoryHealthy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clawguard_network_category_healthy",
			Help: "Whether a network check category passed",
		}, []string{"check"}),
		ProbeLatency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clawguard_network_probe_latency_ms",
			Help: "Latency of the last probe per target, 0 on failure",
		}, []string{"check", "target"}),
		HealthChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clawguard_network_health_checks_total",
			Help: "Total number of network health checks by overall status",
		}, []string{"overall"}),
	}
}

// Registry returns the registry backing the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSnapshot records a monitor tick.
func (m *Metrics) ObserveSnapshot(snap status.Snapshot) {
	m.Ticks.Inc()
	m.ServiceUp.Set(boolValue(snap.IsRunning))
	m.ConsecutiveFailures.Set(float64(snap.ConsecutiveFailures))
	if snap.HeartbeatAge != nil {
		m.HeartbeatAge.Set(*snap.HeartbeatAge)
	} else {
		m.HeartbeatAge.Set(-1)
	}
}

// ObserveRestart records a restart sequence.
func (m *Metrics) ObserveRestart(success bool, took time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.Restarts.WithLabelValues(outcome).Inc()
	m.RestartDuration.Observe(took.Seconds())
}

// ObserveHealth records a network health report.
func (m *Metrics) ObserveHealth(r nethealth.Report) {
	m.HealthPercentage.Set(r.Summary.HealthPercentage)
	m.HealthChecks.WithLabelValues(r.Summary.OverallStatus).Inc()
	for _, c := range r.Checks {
		m.CategoryHealthy.WithLabelValues(c.Check).Set(boolValue(c.Healthy()))
		for _, s := range c.Results {
			m.ProbeLatency.WithLabelValues(c.Check, s.Name).Set(s.LatencyMS)
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
