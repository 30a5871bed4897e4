package tui

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// dataLoadedMsg carries the result of a background Source.Load.
type dataLoadedMsg struct{ data Data }

// tickMsg triggers the periodic refresh.
type tickMsg time.Time

// clearStatusMsg clears an expired footer message.
type clearStatusMsg struct{}

func writeClipboard(s string) error { return clipboard.WriteAll(s) }

func (m Model) loadCmd() tea.Cmd {
	source, now := m.source, m.now
	return func() tea.Msg {
		return dataLoadedMsg{data: source.Load(now())}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the spinner, the first load and the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd(), m.tickCmd())
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case dataLoadedMsg:
		m.data = msg.data
		m.loading = false
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadCmd(), m.tickCmd())

	case clearStatusMsg:
		if !m.statusMessageExpiry.IsZero() && !m.now().Before(m.statusMessageExpiry) {
			m.statusMessage = ""
			m.statusMessageExpiry = time.Time{}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.loadCmd()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = !m.showLog
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.setStatus(m.copyStatus())
	}
	return m, nil
}

// copyStatus writes the snapshot JSON to the clipboard and returns the
// footer message describing the outcome.
func (m Model) copyStatus() string {
	if !m.data.HasSnapshot {
		return "No status snapshot to copy"
	}
	data, err := json.MarshalIndent(m.data.Snapshot, "", "  ")
	if err != nil {
		return fmt.Sprintf("Encode failed: %v", err)
	}
	if err := m.copy(string(data)); err != nil {
		return fmt.Sprintf("Copy failed: %v", err)
	}
	return "Status copied to clipboard"
}

func (m Model) setStatus(text string) (tea.Model, tea.Cmd) {
	m.statusMessage = text
	m.statusMessageExpiry = m.now().Add(statusMessageTTL)
	return m, tea.Tick(statusMessageTTL, func(time.Time) tea.Msg { return clearStatusMsg{} })
}
