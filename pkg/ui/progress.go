package ui

import (
	"fmt"
	"strings"
	"time"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/dataset"
	errs "tilefetch/pkg/errors"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Bar renders done out of total as a fixed width bar
func Bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, barWidth-filled),
		done, total)
}

// OnStart announces the run
func (c *Console) OnStart(total int) {
	c.PrintLogo()
	c.println(false, fmt.Sprintf("%s %d targets", c.Magenta("[START]"), total))
}

// OnFetch narrates the request for one id
func (c *Console) OnFetch(id int, coord dataset.Coordinate) {
	c.println(false, fmt.Sprintf("%s index %d | lat=%v, lon=%v",
		c.Cyan("[FETCH]"), id, coord.Lat, coord.Lon))
}

// OnResult narrates the outcome of one id. Skipped ids stay silent.
func (c *Console) OnResult(r downloader.Result, done, total int) {
	progress := c.Dim(Bar(done, total))

	switch r.Outcome {
	case downloader.OutcomeSaved:
		c.println(false, fmt.Sprintf("%s %d %s", c.Green("[SAVED]"), r.ID, progress))
	case downloader.OutcomeFailed:
		if r.Kind() == errs.KindHTTPStatus {
			c.println(true, fmt.Sprintf("%s %d | status %d %s",
				c.Yellow("[FAILED]"), r.ID, errs.StatusCode(r.Err), progress))
			return
		}
		c.println(true, fmt.Sprintf("%s index %d: %v %s", c.Red("[ERROR]"), r.ID, r.Err, progress))
		c.println(false, c.Dim("[COOLDOWN] backing off before the next request"))
	}
}

// OnFinish prints the run summary, also in quiet mode
func (c *Console) OnFinish(s downloader.Summary) {
	title := c.Green("[FINISHED]")
	if s.Cancelled {
		title = c.Yellow("[INTERRUPTED]")
	}

	lines := []string{
		"",
		fmt.Sprintf("%s %s", title, s.Duration.Round(time.Millisecond)),
		fmt.Sprintf("  %-8s %d", "targets", s.Total),
		fmt.Sprintf("  %-8s %s", "saved", c.Green(fmt.Sprint(s.Saved))),
		fmt.Sprintf("  %-8s %d", "skipped", s.Skipped),
		fmt.Sprintf("  %-8s %s", "failed", c.failedCount(s.Failed)),
	}
	if s.Cancelled {
		lines = append(lines, fmt.Sprintf("  %-8s %d", "left", s.Remaining()))
	}
	if len(s.FailedIDs) > 0 {
		lines = append(lines, fmt.Sprintf("  %-8s %s", "ids", c.Dim(formatIDs(s.FailedIDs, 20))))
	}
	for _, line := range lines {
		c.println(true, line)
	}
}

func (c *Console) failedCount(n int) string {
	if n == 0 {
		return "0"
	}
	return c.Red(fmt.Sprint(n))
}

// formatIDs lists up to limit ids and counts the rest
func formatIDs(ids []int, limit int) string {
	shown := ids
	if len(shown) > limit {
		shown = shown[:limit]
	}
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = fmt.Sprint(id)
	}
	out := strings.Join(parts, ", ")
	if rest := len(ids) - len(shown); rest > 0 {
		out += fmt.Sprintf(" and %d more", rest)
	}
	return out
}
