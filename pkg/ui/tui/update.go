package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/dataset"
)

// StartMsg is sent when the run starts
type StartMsg struct {
	Total int
}

// FetchMsg is sent before a tile is requested
type FetchMsg struct {
	ID         int
	Coordinate dataset.Coordinate
}

// ResultMsg is sent after every id
type ResultMsg struct {
	Result downloader.Result
	Done   int
	Total  int
}

// FinishMsg is sent when the run ends
type FinishMsg struct {
	Summary downloader.Summary
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 20; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd

	case StartMsg:
		m.Start(msg.Total)
		return m, nil

	case FetchMsg:
		m.Fetch(msg.ID, msg.Coordinate)
		return m, nil

	case ResultMsg:
		m.Result(msg.Result, msg.Done, msg.Total)
		return m, nil

	case FinishMsg:
		m.Finish(msg.Summary)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.finished && m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}
