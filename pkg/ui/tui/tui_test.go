package tui

import (
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/dataset"
	errs "tilefetch/pkg/errors"
)

func TestModelCounts(t *testing.T) {
	m := NewModel(nil)
	m.Start(4)
	m.Fetch(3, dataset.Coordinate{Lat: 1.5, Lon: 2.5})
	assert.True(t, m.fetching)

	m.Result(downloader.Result{ID: 3, Outcome: downloader.OutcomeSaved, Size: 10}, 1, 4)
	m.Result(downloader.Result{ID: 4, Outcome: downloader.OutcomeSkipped}, 2, 4)
	m.Result(downloader.Result{ID: 5, Outcome: downloader.OutcomeFailed, Err: errs.HTTPStatus(404, "404 Not Found")}, 3, 4)
	m.Result(downloader.Result{ID: 6, Outcome: downloader.OutcomeFailed, Err: errs.Transport(errors.New("refused"))}, 4, 4)

	assert.False(t, m.fetching)
	assert.Equal(t, 1, m.saved)
	assert.Equal(t, 1, m.skipped)
	assert.Equal(t, 2, m.failed)
	assert.Equal(t, 1.0, m.Percent())
	assert.Equal(t, time.Duration(0), m.ETA())

	levels := make([]string, 0, len(m.logMessages))
	for _, msg := range m.logMessages {
		levels = append(levels, msg.Level)
	}
	assert.Equal(t, []string{LevelInfo, LevelSuccess, LevelWarn, LevelError}, levels)
}

func TestModelKeepsNewestLogs(t *testing.T) {
	m := NewModel(nil)
	for i := 0; i < 20; i++ {
		m.AddLogMessage(LevelInfo, "line")
	}
	assert.Len(t, m.logMessages, m.maxLogMessages)
}

func TestQuitCancelsUnfinishedRun(t *testing.T) {
	cancelled := 0
	m := NewModel(func() { cancelled++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, cancelled)

	m.Finish(downloader.Summary{Total: 1, Saved: 1})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, cancelled, "finished runs are not cancelled again")
}

func TestUpdateMessages(t *testing.T) {
	m := NewModel(nil)
	m.Update(StartMsg{Total: 2})
	m.Update(FetchMsg{ID: 0, Coordinate: dataset.Coordinate{Lat: 40.7, Lon: -74}})
	assert.Contains(t, m.View(), "fetching 0")

	m.Update(ResultMsg{Result: downloader.Result{ID: 0, Outcome: downloader.OutcomeSaved}, Done: 1, Total: 2})
	m.Update(FinishMsg{Summary: downloader.Summary{Total: 2, Saved: 1, Cancelled: true}})

	view := m.View()
	assert.Contains(t, view, "interrupted")
	assert.Contains(t, view, "1/2")
	assert.Contains(t, view, "Saved 0")
}

func TestTUIObserverRoundTrip(t *testing.T) {
	screen := NewTUI(nil, tea.WithInput(nil), tea.WithOutput(io.Discard))

	done := make(chan error, 1)
	go func() { done <- screen.Start() }()

	screen.OnStart(1)
	screen.OnFetch(0, dataset.Coordinate{})
	screen.OnResult(downloader.Result{ID: 0, Outcome: downloader.OutcomeSaved}, 1, 1)
	screen.OnFinish(downloader.Summary{Total: 1, Saved: 1})
	screen.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("screen did not stop")
	}
}
