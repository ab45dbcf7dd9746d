package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the whole screen
func (m Model) View() string {
	sections := []string{
		headerStyle.Render("▀█▀ █ █   █▀▀ █▀▀ ▀█▀ █▀▀ █ █   satellite tile fetcher"),
		m.renderProgress(),
		m.renderStats(),
		m.renderLogs(),
	}

	if m.showHelp {
		sections = append(sections, helpStyle.Render("q: stop the run and quit   ctrl+l: clear activity   ?: hide help"))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderProgress() string {
	var status string
	switch {
	case m.finished && m.summary.Cancelled:
		status = lipgloss.NewStyle().Foreground(neonOrange).Render("interrupted")
	case m.finished:
		status = lipgloss.NewStyle().Foreground(neonGreen).Render("finished")
	case m.fetching:
		status = fmt.Sprintf("%s fetching %d (lat=%v, lon=%v)",
			m.spinner.View(), m.currentID, m.currentCoord.Lat, m.currentCoord.Lon)
	default:
		status = m.spinner.View() + " waiting"
	}

	lines := []string{
		titleStyle.Render(" PROGRESS "),
		fmt.Sprintf("%s %d/%d", m.bar.ViewAs(m.Percent()), m.done, m.total),
		status,
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderStats() string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	elapsed := time.Since(m.started).Round(time.Second)
	lines := []string{
		titleStyle.Render(" STATS "),
		row("saved", fmt.Sprint(m.saved)),
		row("skipped", fmt.Sprint(m.skipped)),
		row("failed", fmt.Sprint(m.failed)),
		row("elapsed", elapsed.String()),
	}
	if eta := m.ETA(); eta > 0 && !m.finished {
		lines = append(lines, row("eta", eta.Round(time.Second).String()))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderLogs() string {
	lines := []string{titleStyle.Render(" ACTIVITY ")}
	if len(m.logMessages) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(dimWhite).Render("no activity yet"))
	}
	for _, msg := range m.logMessages {
		line := fmt.Sprintf("%s %s",
			timestampStyle.Render(msg.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(levelColor(msg.Level)).Render(msg.Message))
		lines = append(lines, line)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
