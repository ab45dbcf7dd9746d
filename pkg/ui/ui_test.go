package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/dataset"
	errs "tilefetch/pkg/errors"
)

func TestBar(t *testing.T) {
	assert.Equal(t, "[░░░░░░░░░░░░░░░░░░░░] 0/4", Bar(0, 4))
	assert.Equal(t, "[██████████░░░░░░░░░░] 2/4", Bar(2, 4))
	assert.Equal(t, "[████████████████████] 4/4", Bar(4, 4))
	assert.Equal(t, "[░░░░░░░░░░░░░░░░░░░░] 0/0", Bar(0, 0))
}

func TestConsoleNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.Success("done")
	assert.Equal(t, "done\n", buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestConsoleNarration(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.OnStart(3)
	c.OnFetch(5, dataset.Coordinate{Lat: 40.7128, Lon: -74.006})
	c.OnResult(downloader.Result{ID: 5, Outcome: downloader.OutcomeSaved}, 1, 3)
	c.OnResult(downloader.Result{
		ID: 6, Outcome: downloader.OutcomeFailed,
		Err: errs.HTTPStatus(404, "404 Not Found").WithID(6),
	}, 2, 3)
	c.OnResult(downloader.Result{
		ID: 7, Outcome: downloader.OutcomeFailed,
		Err: errs.RowLookup(7, errors.New("row 7 out of range")),
	}, 3, 3)

	out := buf.String()
	assert.Contains(t, out, "[START] 3 targets")
	assert.Contains(t, out, "[FETCH] index 5 | lat=40.7128, lon=-74.006")
	assert.Contains(t, out, "[SAVED] 5")
	assert.Contains(t, out, "[FAILED] 6 | status 404")
	assert.Contains(t, out, "[ERROR] index 7")
	assert.Contains(t, out, "[COOLDOWN]")
}

func TestConsoleSkipIsSilent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.OnResult(downloader.Result{ID: 1, Outcome: downloader.OutcomeSkipped}, 1, 1)
	assert.Empty(t, buf.String())
}

func TestConsoleQuietKeepsFailuresAndSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.OnStart(2)
	c.OnFetch(1, dataset.Coordinate{})
	c.OnResult(downloader.Result{ID: 1, Outcome: downloader.OutcomeSaved}, 1, 2)
	c.OnResult(downloader.Result{
		ID: 2, Outcome: downloader.OutcomeFailed,
		Err: errs.HTTPStatus(503, "503 Service Unavailable"),
	}, 2, 2)
	c.OnFinish(downloader.Summary{Total: 2, Saved: 1, Failed: 1, FailedIDs: []int{2}, Duration: time.Second})

	out := buf.String()
	assert.NotContains(t, out, "[START]")
	assert.NotContains(t, out, "[SAVED]")
	assert.Contains(t, out, "[FAILED] 2 | status 503")
	assert.Contains(t, out, "[FINISHED] 1s")
}

func TestConsoleSummaryInterrupted(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.OnFinish(downloader.Summary{Total: 10, Saved: 3, Skipped: 1, Cancelled: true})

	out := buf.String()
	assert.Contains(t, out, "[INTERRUPTED]")
	assert.Regexp(t, `left\s+6`, out)
	assert.Regexp(t, `saved\s+3`, out)
}

func TestFormatIDs(t *testing.T) {
	assert.Equal(t, "1, 2, 3", formatIDs([]int{1, 2, 3}, 5))
	assert.Equal(t, "1, 2 and 2 more", formatIDs([]int{1, 2, 3, 4}, 2))
}

type recordingSender struct {
	title, message string
	calls          int
}

func (r *recordingSender) Send(title, message string) error {
	r.calls++
	r.title, r.message = title, message
	return nil
}

func TestNotifierFinished(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	require.True(t, n.Enabled())
	require.NoError(t, n.NotifyFinished(downloader.Summary{Total: 5, Saved: 3, Skipped: 1, Failed: 1}))

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "tilefetch finished", sender.title)
	assert.Equal(t, "3 saved, 1 skipped, 1 failed of 5", sender.message)

	require.NoError(t, n.NotifyFinished(downloader.Summary{Cancelled: true}))
	assert.Equal(t, "tilefetch interrupted", sender.title)
}

func TestNotifierWithoutSender(t *testing.T) {
	n := NewNotifierWithSender(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NotifyFinished(downloader.Summary{}))
}
