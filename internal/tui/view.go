package tui

import (
	"fmt"
	"strings"
	"time"

	"clawguard/internal/nethealth"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	sections := []string{m.renderHeader(width)}
	if m.loading && m.data.LoadedAt.IsZero() {
		sections = append(sections, m.spinner.View()+" Loading...")
		return strings.Join(sections, "\n")
	}

	panelWidth := width/2 - 2
	if panelWidth < 30 {
		sections = append(sections, m.renderMonitor(width-2), m.renderNetwork(width-2))
	} else {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderMonitor(panelWidth), m.renderNetwork(panelWidth)))
	}
	if len(m.data.Errors) > 0 {
		sections = append(sections, m.renderErrors(width-2))
	}
	if m.showLog {
		sections = append(sections, m.renderLog(width-2))
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp(width-2))
	}
	sections = append(sections, m.renderFooter(width))
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader(width int) string {
	state := "unknown"
	if m.data.HasSnapshot && m.data.Snapshot.State != "" {
		state = m.data.Snapshot.State
	}
	title := fmt.Sprintf("clawguard  %s", statusStyle(state).Render(state))
	if m.loading {
		title += " " + m.spinner.View()
	}
	if !m.data.LoadedAt.IsZero() {
		title += dimStyle.Render("  updated " + m.data.LoadedAt.Format("15:04:05"))
	}
	return headerStyle.Width(width).Render(title)
}

func (m Model) renderMonitor(width int) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render(SafeIcon(IconGear) + "Monitor"))
	b.WriteString("\n")

	if !m.data.HasSnapshot {
		b.WriteString(dimStyle.Render("No status snapshot yet"))
		return panelStyle.Width(width).Render(b.String())
	}

	snap := m.data.Snapshot
	inner := width - 4
	running := failedStyle.Render(SafeIcon(IconCross) + "not running")
	if snap.IsRunning {
		running = healthyStyle.Render(SafeIcon(IconCheck) + "running")
	}
	heartbeat := "none"
	if snap.HeartbeatAge != nil {
		heartbeat = time.Duration(*snap.HeartbeatAge * float64(time.Second)).Round(time.Second).String()
	}
	loop := "stopped"
	if snap.MonitorRunning {
		loop = "active"
	}

	lines := []string{
		"Service:   " + running,
		fmt.Sprintf("Failures:  %d", snap.ConsecutiveFailures),
		"Heartbeat: " + heartbeat,
		"Loop:      " + loop,
		truncate("Message:   "+snap.Message, inner),
		dimStyle.Render("At:        " + snap.Timestamp.Format(time.RFC3339)),
	}
	if snap.LastError != "" {
		lines = append(lines, failedStyle.Render(truncate("Error:     "+snap.LastError, inner)))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return panelStyle.Width(width).Render(b.String())
}

func (m Model) renderNetwork(width int) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render(SafeIcon(IconGlobe) + "Network"))
	b.WriteString("\n")

	if !m.data.HasReport {
		b.WriteString(dimStyle.Render("No health report yet"))
		return panelStyle.Width(width).Render(b.String())
	}

	r := m.data.Report
	inner := width - 4
	var lines []string
	for _, c := range r.Checks {
		lines = append(lines, truncate(fmt.Sprintf("%s%-14s %s", checkIcon(c), c.Check, c.Details), inner))
	}
	overall := statusStyle(r.Summary.OverallStatus).Render(r.Summary.OverallStatus)
	lines = append(lines,
		"",
		fmt.Sprintf("Health:  %.1f%% (%s)", r.Summary.HealthPercentage, overall),
		"Proxy:   "+r.ProxyState,
		dimStyle.Render("At:      "+r.Timestamp.Format(time.RFC3339)),
	)
	b.WriteString(strings.Join(lines, "\n"))
	return panelStyle.Width(width).Render(b.String())
}

func checkIcon(c nethealth.CategoryResult) string {
	switch c.Status {
	case nethealth.StatusHealthy:
		return healthyStyle.Render(SafeIcon(IconCheck))
	case nethealth.StatusWarning:
		return warningStyle.Render(SafeIcon(IconWarning))
	default:
		return failedStyle.Render(SafeIcon(IconCross))
	}
}

func (m Model) renderLog(width int) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render(SafeIcon(IconScroll) + "Events"))
	b.WriteString("\n")
	if len(m.data.Events) == 0 {
		b.WriteString(dimStyle.Render("No events recorded"))
		return panelStyle.Width(width).Render(b.String())
	}
	inner := width - 4
	lines := make([]string, 0, len(m.data.Events))
	for _, e := range m.data.Events {
		lines = append(lines, truncate(e.String(), inner))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return panelStyle.Width(width).Render(b.String())
}

func (m Model) renderErrors(width int) string {
	lines := make([]string, 0, len(m.data.Errors))
	for _, e := range m.data.Errors {
		lines = append(lines, failedStyle.Render(truncate(SafeIcon(IconWarning)+e, width-4)))
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp(width int) string {
	lines := make([]string, 0, len(m.keys.ShortHelp()))
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		lines = append(lines, fmt.Sprintf("%-10s %s", h.Key, h.Desc))
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter(width int) string {
	text := "r refresh • y copy • L log • h help • q quit"
	if m.statusMessage != "" {
		text = m.statusMessage
	}
	return statusBarStyle.Width(width).Render(truncate(text, width-2))
}
