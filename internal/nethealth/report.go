package nethealth

import (
	"fmt"
	"math"
	"strings"
	"time"

	"clawguard/internal/status"
)

// Category check names.
const (
	CheckDomestic      = "domestic_connection"
	CheckInternational = "international_connection"
	CheckGateway       = "gateway_status"
)

// Status values of a category and of the composite verdict.
const (
	StatusHealthy  = "healthy"
	StatusFailed   = "failed"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Target is a named probe destination.
type Target struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SiteResult is the outcome of probing one target.
type SiteResult struct {
	Name      string  `json:"name"`
	Target    string  `json:"url"`
	Success   bool    `json:"success"`
	LatencyMS float64 `json:"latency_ms"`
}

// CategoryResult summarises one probe batch.
type CategoryResult struct {
	Check      string       `json:"check"`
	Status     string       `json:"status"`
	Details    string       `json:"details"`
	ProxyState string       `json:"proxy_state,omitempty"`
	Results    []SiteResult `json:"results,omitempty"`
}

// Healthy reports whether the category passed.
func (c CategoryResult) Healthy() bool { return c.Status == StatusHealthy }

// Summary is the composite verdict over all categories.
type Summary struct {
	HealthyChecks    int     `json:"healthy_checks"`
	TotalChecks      int     `json:"total_checks"`
	HealthPercentage float64 `json:"health_percentage"`
	OverallStatus    string  `json:"overall_status"`
}

// Report is one complete health check.
type Report struct {
	Timestamp  time.Time        `json:"timestamp"`
	ProxyState string           `json:"proxy_state"`
	Checks     []CategoryResult `json:"checks"`
	Summary    Summary          `json:"summary"`
}

// categoryResult builds the result of a batch: healthy only if every site succeeded.
func categoryResult(check, proxyState string, results []SiteResult) CategoryResult {
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	st := StatusHealthy
	if ok != len(results) {
		st = StatusFailed
	}
	return CategoryResult{
		Check:      check,
		Status:     st,
		Details:    fmt.Sprintf("%d/%d succeeded", ok, len(results)),
		ProxyState: proxyState,
		Results:    results,
	}
}

// Summarize computes the composite verdict. With no categories at all the
// verdict is critical at 0%.
func Summarize(checks []CategoryResult) Summary {
	healthy := 0
	for _, c := range checks {
		if c.Healthy() {
			healthy++
		}
	}
	total := len(checks)
	s := Summary{HealthyChecks: healthy, TotalChecks: total, OverallStatus: StatusCritical}
	if total == 0 {
		return s
	}

	s.HealthPercentage = round(float64(healthy)/float64(total)*100, 1)
	switch {
	case healthy == total:
		s.OverallStatus = StatusHealthy
	case float64(healthy)/float64(total) < 0.5:
		s.OverallStatus = StatusCritical
	default:
		s.OverallStatus = StatusWarning
	}
	return s
}

// round rounds half to even, so 3 of 16 checks is 18.8% and 1 of 16 is 6.2%.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

// Render formats a report for terminals and chat messages.
func Render(r Report) string {
	var b strings.Builder
	b.WriteString("# Network status report\n\n")
	fmt.Fprintf(&b, "**Time**: %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Proxy**: %s\n\n", r.ProxyState)

	b.WriteString("## Checks\n")
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "%s **%s**: %s\n", statusMark(c.Status), c.Check, c.Details)
	}

	b.WriteString("\n## Summary\n")
	fmt.Fprintf(&b, "**Checks passed**: %d/%d\n", r.Summary.HealthyChecks, r.Summary.TotalChecks)
	fmt.Fprintf(&b, "**Health**: %.1f%%\n", r.Summary.HealthPercentage)
	fmt.Fprintf(&b, "**Overall**: %s\n", r.Summary.OverallStatus)
	return b.String()
}

func statusMark(s string) string {
	switch s {
	case StatusHealthy:
		return "[ok]"
	case StatusWarning:
		return "[warn]"
	default:
		return "[fail]"
	}
}

// SaveReport replaces the persisted report at path.
func SaveReport(path string, r Report) error {
	return status.WriteJSON(path, r)
}

// LoadReport reads the persisted report at path.
func LoadReport(path string) (Report, error) {
	var r Report
	err := status.ReadJSON(path, &r)
	return r, err
}
