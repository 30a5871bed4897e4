// Package cli renders clawguard's command output as tables or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"clawguard/internal/backup"
	"clawguard/internal/nethealth"
	"clawguard/internal/reporting"
	"clawguard/internal/status"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Printer writes command output to w.
type Printer struct {
	w    io.Writer
	json bool
}

// NewPrinter returns a Printer. With asJSON set every Print* method emits
// indented JSON instead of a table.
func NewPrinter(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, json: asJSON}
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

func (p *Printer) newTable(headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleRounded)

	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = text.FgHiCyan.Sprint(strings.ToUpper(h))
	}
	t.AppendHeader(row)
	return t
}

// PrintSnapshot renders the monitor snapshot as key-value rows.
func (p *Printer) PrintSnapshot(snap status.Snapshot) error {
	if p.json {
		return p.JSON(snap)
	}
	t := p.newTable("field", "value")
	running := text.FgRed.Sprint("❌ not running")
	if snap.IsRunning {
		running = text.FgGreen.Sprint("✅ running")
	}
	heartbeat := text.FgHiBlack.Sprint("none")
	if snap.HeartbeatAge != nil {
		heartbeat = fmt.Sprintf("%.0fs", *snap.HeartbeatAge)
	}
	t.AppendRows([]table.Row{
		{"timestamp", snap.Timestamp.Format(time.RFC3339)},
		{"service", running},
		{"message", snap.Message},
		{"state", FormatStatus(snap.State)},
		{"consecutive failures", snap.ConsecutiveFailures},
		{"heartbeat age", heartbeat},
		{"monitor running", snap.MonitorRunning},
	})
	if snap.LastError != "" {
		t.AppendRow(table.Row{"last error", text.FgRed.Sprint(snap.LastError)})
	}
	t.Render()
	return nil
}

// PrintBackups lists backups newest first.
func (p *Printer) PrintBackups(infos []backup.Info) error {
	if p.json {
		return p.JSON(map[string]interface{}{"backups": infos, "total": len(infos)})
	}
	if len(infos) == 0 {
		fmt.Fprintln(p.w, text.FgYellow.Sprint("No backups found"))
		return nil
	}
	t := p.newTable("name", "modified", "size")
	for i := len(infos) - 1; i >= 0; i-- {
		b := infos[i]
		t.AppendRow(table.Row{b.Name, b.ModTime.Format("2006-01-02 15:04:05"), b.Size})
	}
	t.Render()
	fmt.Fprintf(p.w, "\n%s %s backups\n", text.FgHiBlue.Sprint("Total:"), text.FgHiWhite.Sprint(len(infos)))
	return nil
}

// PrintCategory renders one probe batch.
func (p *Printer) PrintCategory(c nethealth.CategoryResult) error {
	if p.json {
		return p.JSON(c)
	}
	fmt.Fprintf(p.w, "%s %s (proxy %s): %s\n", FormatStatus(c.Status), c.Check, c.ProxyState, c.Details)
	if len(c.Results) == 0 {
		return nil
	}
	t := p.newTable("site", "url", "result", "latency")
	for _, r := range c.Results {
		result := text.FgRed.Sprint("❌ failed")
		if r.Success {
			result = text.FgGreen.Sprint("✅ ok")
		}
		t.AppendRow(table.Row{r.Name, r.Target, result, fmt.Sprintf("%.2f ms", r.LatencyMS)})
	}
	t.Render()
	return nil
}

// PrintReport renders a health report with its summary.
func (p *Printer) PrintReport(r nethealth.Report) error {
	if p.json {
		return p.JSON(r)
	}
	t := p.newTable("check", "status", "details")
	for _, c := range r.Checks {
		t.AppendRow(table.Row{c.Check, FormatStatus(c.Status), c.Details})
	}
	t.AppendFooter(table.Row{"overall", FormatStatus(r.Summary.OverallStatus),
		fmt.Sprintf("%.1f%% (%d/%d)", r.Summary.HealthPercentage, r.Summary.HealthyChecks, r.Summary.TotalChecks)})
	t.Render()
	return nil
}

// PrintEvents lists events oldest first.
func (p *Printer) PrintEvents(events []reporting.Event) error {
	if p.json {
		return p.JSON(map[string]interface{}{"events": events, "total": len(events)})
	}
	if len(events) == 0 {
		fmt.Fprintln(p.w, text.FgYellow.Sprint("No events recorded"))
		return nil
	}
	t := p.newTable("time", "type", "details", "proxy")
	for _, e := range events {
		proxy := e.ProxyState
		if proxy == "" {
			proxy = text.FgHiBlack.Sprint("-")
		}
		t.AppendRow(table.Row{e.Timestamp.Format("2006-01-02 15:04:05"), string(e.Type), e.Details, proxy})
	}
	t.Render()
	return nil
}

// FormatStatus adds color coding to a health or monitor status word.
func FormatStatus(status string) string {
	switch strings.ToLower(status) {
	case "healthy", "nominal":
		return text.FgGreen.Sprint("✅ " + status)
	case "failed", "critical":
		return text.FgRed.Sprint("❌ " + status)
	case "warning", "recovering", "recovered_cooldown":
		return text.FgYellow.Sprint("⚠️  " + status)
	case "":
		return text.FgHiBlack.Sprint("-")
	default:
		if strings.HasPrefix(status, "degraded") {
			return text.FgRed.Sprint("🔴 " + status)
		}
		return status
	}
}
