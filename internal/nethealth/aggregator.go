// Package nethealth probes batches of reachability targets under a forced
// proxy state and reduces the results to a tiered health verdict.
package nethealth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clawguard/internal/netctx"
	"clawguard/internal/proxy"
	"clawguard/internal/reporting"
	"clawguard/pkg/logging"
)

// Config configures an Aggregator.
type Config struct {
	Domestic       []Target
	International  []Target
	GatewayURL     string
	ProbeTimeout   time.Duration
	GatewayTimeout time.Duration
	// ReportPath, when set, receives the latest report from Run.
	ReportPath string
}

// Observer receives every completed report.
type Observer interface {
	ObserveHealth(Report)
}

// Aggregator runs the domestic, international and gateway checks.
type Aggregator struct {
	cfg      Config
	net      *netctx.Context
	router   *proxy.Router
	client   *http.Client
	events   *reporting.EventLog
	observer Observer
	log      *logging.Logger
	now      func() time.Time
}

// New creates an Aggregator. Probes resolve the proxy per request from nc,
// so switching state inside a batch takes effect immediately.
func New(cfg Config, nc *netctx.Context, router *proxy.Router, events *reporting.EventLog, log *logging.Logger) *Aggregator {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 3 * time.Second
	}
	transport := &http.Transport{
		Proxy:             nc.ProxyFunc(),
		DisableKeepAlives: true,
	}
	return &Aggregator{
		cfg:    cfg,
		net:    nc,
		router: router,
		client: &http.Client{Transport: transport},
		events: events,
		log:    log.Named("NetHealth"),
		now:    time.Now,
	}
}

// WithObserver registers o to receive reports.
func (a *Aggregator) WithObserver(o Observer) *Aggregator {
	a.observer = o
	return a
}

// WithClock replaces the time source, for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// RunCategory forces the proxy into required and probes every site, holding
// exclusive access to the proxy configuration for the whole batch.
func (a *Aggregator) RunCategory(ctx context.Context, check string, sites []Target, required netctx.State) (CategoryResult, error) {
	b, err := a.net.Acquire(ctx)
	if err != nil {
		return CategoryResult{}, err
	}
	defer b.Release()
	return a.runCategory(ctx, b, check, sites, required)
}

// TestDomestic probes the domestic targets with the proxy off.
func (a *Aggregator) TestDomestic(ctx context.Context) (CategoryResult, error) {
	return a.RunCategory(ctx, CheckDomestic, a.cfg.Domestic, netctx.StateOff)
}

// TestInternational probes the international targets with the proxy on.
func (a *Aggregator) TestInternational(ctx context.Context) (CategoryResult, error) {
	return a.RunCategory(ctx, CheckInternational, a.cfg.International, netctx.StateOn)
}

func (a *Aggregator) runCategory(ctx context.Context, b *netctx.Batch, check string, sites []Target, required netctx.State) (CategoryResult, error) {
	if err := a.router.Set(b, required); err != nil {
		return CategoryResult{}, fmt.Errorf("%s: %w", check, err)
	}

	results := make([]SiteResult, 0, len(sites))
	for _, site := range sites {
		results = append(results, a.probe(ctx, site, a.cfg.ProbeTimeout))
	}
	return categoryResult(check, string(required), results), nil
}

// probe issues one GET. Success means HTTP 200; latency is 0 when the
// request itself failed.
func (a *Aggregator) probe(ctx context.Context, site Target, timeout time.Duration) SiteResult {
	res := SiteResult{Name: site.Name, Target: site.URL}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.URL, nil)
	if err != nil {
		a.log.Warn("Invalid probe target %s: %v", site.URL, err)
		return res
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Debug("Probe %s failed: %v", site.Name, err)
		return res
	}
	resp.Body.Close()

	res.LatencyMS = round(float64(time.Since(start).Microseconds())/1000, 2)
	res.Success = resp.StatusCode == http.StatusOK
	a.log.Debug("Probe %s: %d in %.2fms", site.Name, resp.StatusCode, res.LatencyMS)
	return res
}

// HealthCheck runs the domestic batch with the proxy off, the international
// batch with the proxy on and the gateway probe, then restores the proxy
// state found before the check.
func (a *Aggregator) HealthCheck(ctx context.Context) (Report, error) {
	b, err := a.net.Acquire(ctx)
	if err != nil {
		return Report{}, err
	}
	defer b.Release()

	before := b.Detect()
	report := Report{Timestamp: a.now(), ProxyState: string(before)}

	var firstErr error
	add := func(check string, sites []Target, required netctx.State) {
		res, err := a.runCategory(ctx, b, check, sites, required)
		if err != nil {
			// the batch could not run under the required state, count it as failed
			if firstErr == nil {
				firstErr = err
			}
			res = CategoryResult{Check: check, Status: StatusFailed, Details: err.Error(), ProxyState: string(required)}
		}
		report.Checks = append(report.Checks, res)
	}
	add(CheckDomestic, a.cfg.Domestic, netctx.StateOff)
	add(CheckInternational, a.cfg.International, netctx.StateOn)

	gw := a.probe(ctx, Target{Name: "Gateway", URL: a.cfg.GatewayURL}, a.cfg.GatewayTimeout)
	report.Checks = append(report.Checks, categoryResult(CheckGateway, "", []SiteResult{gw}))

	if before == netctx.StateOn || before == netctx.StateOff {
		if err := a.router.Set(b, before); err != nil {
			a.log.Error(err, "Failed to restore proxy state %s", before)
		}
	}

	report.Summary = Summarize(report.Checks)
	a.log.Info("Health check: %d/%d healthy (%s)", report.Summary.HealthyChecks, report.Summary.TotalChecks, report.Summary.OverallStatus)

	if a.events != nil {
		details := fmt.Sprintf("%s %.1f%%", report.Summary.OverallStatus, report.Summary.HealthPercentage)
		if _, err := a.events.Append(reporting.EventTypeHealthCheck, details, report.ProxyState); err != nil {
			a.log.Warn("Failed to persist network event: %v", err)
		}
	}
	if a.observer != nil {
		a.observer.ObserveHealth(report)
	}
	return report, firstErr
}

// Run performs a health check immediately and then every interval until ctx
// is cancelled, persisting each report.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) error {
	a.log.Info("Network health loop started (interval %s)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.runOnce(ctx)
		select {
		case <-ctx.Done():
			a.log.Info("Network health loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (a *Aggregator) runOnce(ctx context.Context) {
	report, err := a.HealthCheck(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.log.Error(err, "Health check incomplete")
	}
	if a.cfg.ReportPath == "" || report.Timestamp.IsZero() {
		return
	}
	if err := SaveReport(a.cfg.ReportPath, report); err != nil {
		a.log.Error(err, "Failed to persist health report")
	}
}
