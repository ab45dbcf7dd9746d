package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/dataset"
	errs "tilefetch/pkg/errors"
)

const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

// LogMessage is one line of the activity panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model of a fetch run. It is only touched by the
// program's event loop.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	total   int
	done    int
	saved   int
	skipped int
	failed  int

	currentID    int
	currentCoord dataset.Coordinate
	fetching     bool

	started  time.Time
	finished bool
	summary  downloader.Summary

	logMessages    []LogMessage
	maxLogMessages int

	width    int
	height   int
	showHelp bool

	// onQuit is called when the user leaves the screen before the run ends
	onQuit func()
}

// NewModel creates a model. onQuit may be nil.
func NewModel(onQuit func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:        s,
		bar:            progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		started:        time.Now(),
		maxLogMessages: 12,
		onQuit:         onQuit,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Start records the number of targets
func (m *Model) Start(total int) {
	m.total = total
	m.started = time.Now()
	m.AddLogMessage(LevelInfo, fmt.Sprintf("Fetching %d targets", total))
}

// Fetch marks id as in flight
func (m *Model) Fetch(id int, coord dataset.Coordinate) {
	m.currentID = id
	m.currentCoord = coord
	m.fetching = true
}

// Result applies the outcome of one id
func (m *Model) Result(r downloader.Result, done, total int) {
	m.done = done
	m.total = total
	m.fetching = false

	switch r.Outcome {
	case downloader.OutcomeSaved:
		m.saved++
		m.AddLogMessage(LevelSuccess, fmt.Sprintf("Saved %d (%d bytes)", r.ID, r.Size))
	case downloader.OutcomeSkipped:
		m.skipped++
	case downloader.OutcomeFailed:
		m.failed++
		if r.Kind() == errs.KindHTTPStatus {
			m.AddLogMessage(LevelWarn, fmt.Sprintf("Failed %d: status %d", r.ID, errs.StatusCode(r.Err)))
		} else {
			m.AddLogMessage(LevelError, fmt.Sprintf("Error at %d: %v", r.ID, r.Err))
		}
	}
}

// Finish freezes the model with the final summary
func (m *Model) Finish(s downloader.Summary) {
	m.finished = true
	m.fetching = false
	m.summary = s
	if s.Cancelled {
		m.AddLogMessage(LevelWarn, fmt.Sprintf("Interrupted, %d ids left", s.Remaining()))
		return
	}
	m.AddLogMessage(LevelInfo, "Finished")
}

// AddLogMessage appends to the activity panel, keeping the newest lines
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Percent is the share of targets handled so far
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

// ETA extrapolates the remaining time from the average so far
func (m Model) ETA() time.Duration {
	if m.done == 0 || m.done >= m.total {
		return 0
	}
	per := time.Since(m.started) / time.Duration(m.done)
	return per * time.Duration(m.total-m.done)
}
