package tui

import (
	"sort"
	"time"

	"clawguard/internal/nethealth"
	"clawguard/internal/reporting"
	"clawguard/internal/status"

	"github.com/charmbracelet/bubbles/spinner"
)

// Source names the persisted files the dashboard reads.
type Source struct {
	StatusPath        string
	HealthPath        string
	MonitorEventsPath string
	NetworkEventsPath string
}

// Data is one read of every persisted file. Missing files leave the
// corresponding Has* flag false; read errors are collected in Errors.
type Data struct {
	Snapshot    status.Snapshot
	HasSnapshot bool
	Report      nethealth.Report
	HasReport   bool
	Events      []reporting.Event
	Errors      []string
	LoadedAt    time.Time
}

// Load reads the source files. It never fails as a whole: each unreadable
// file is reported in Data.Errors and the rest still load.
func (s Source) Load(now time.Time) Data {
	d := Data{LoadedAt: now}

	if s.StatusPath != "" {
		snap, err := status.NewStore(s.StatusPath).Load()
		switch {
		case err == nil:
			d.Snapshot, d.HasSnapshot = snap, true
		case !status.IsNotExist(err):
			d.Errors = append(d.Errors, err.Error())
		}
	}

	if s.HealthPath != "" {
		report, err := nethealth.LoadReport(s.HealthPath)
		switch {
		case err == nil:
			d.Report, d.HasReport = report, true
		case !status.IsNotExist(err):
			d.Errors = append(d.Errors, err.Error())
		}
	}

	for _, path := range []string{s.MonitorEventsPath, s.NetworkEventsPath} {
		if path == "" {
			continue
		}
		log := reporting.NewEventLog(path)
		if err := log.Load(); err != nil {
			d.Errors = append(d.Errors, err.Error())
			continue
		}
		d.Events = append(d.Events, log.Recent(maxLogLines)...)
	}
	sort.SliceStable(d.Events, func(i, j int) bool {
		return d.Events[i].Timestamp.Before(d.Events[j].Timestamp)
	})
	if len(d.Events) > maxLogLines {
		d.Events = d.Events[len(d.Events)-maxLogLines:]
	}
	return d
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	source   Source
	interval time.Duration
	now      func() time.Time
	copy     func(string) error

	keys    KeyMap
	spinner spinner.Model

	data    Data
	loading bool

	width  int
	height int

	showHelp bool
	showLog  bool

	statusMessage       string
	statusMessageExpiry time.Time
}

// NewModel builds a dashboard over source that refreshes every interval.
// A non-positive interval uses the default.
func NewModel(source Source, interval time.Duration) Model {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = warningStyle

	return Model{
		source:   source,
		interval: interval,
		now:      time.Now,
		copy:     writeClipboard,
		keys:     DefaultKeyMap(),
		spinner:  s,
		loading:  true,
		showLog:  true,
	}
}

// Data returns the last loaded data.
func (m Model) Data() Data { return m.data }
