package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	// defaultRefreshInterval is how often the persisted files are re-read.
	defaultRefreshInterval = 5 * time.Second
	// statusMessageTTL is how long a footer message stays visible.
	statusMessageTTL = 3 * time.Second
	// maxLogLines bounds the events shown in the log panel.
	maxLogLines = 15
)

const (
	IconCheck   = "✔"
	IconCross   = "❌"
	IconWarning = "⚠"
	IconGear    = "⚙"
	IconGlobe   = "🌐"
	IconScroll  = "📜"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#303030"}).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"})

	healthyStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#006400", Dark: "#8AE234"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8B4513", Dark: "#FCE94F"})
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8B0000", Dark: "#EF2929"})
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"})

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#0000CC", Dark: "#1E3A8A"}).
			Padding(0, 1)
)

// SafeIcon appends one space after narrow icons and two after wide ones so
// the icon never swallows the next character.
func SafeIcon(icon string) string {
	spaces := 1
	if runewidth.StringWidth(icon) >= 2 {
		spaces = 2
	}
	return fmt.Sprintf("%s%s", icon, strings.Repeat(" ", spaces))
}

// truncate shortens s to at most width terminal cells, marking the cut.
func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}

// statusStyle picks the colour for a health status word.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "healthy", "nominal":
		return healthyStyle
	case "warning", "recovering", "recovered_cooldown":
		return warningStyle
	default:
		return failedStyle
	}
}
