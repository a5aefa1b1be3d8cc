package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boat_radar/models"
)

var logLevels = []models.LogLevel{"", models.LogLevelInfo, models.LogLevelWarn, models.LogLevelError}

type logsMsg struct {
	logs []models.ScrapeLog
}

// LogsView shows the per-run log lines the pipeline records in SQLite.
type LogsView struct {
	ops           Operations
	width, height int
	logs          []models.ScrapeLog
	levelIndex    int
	scrollOffset  int
}

func NewLogsView(ops Operations) LogsView {
	return LogsView{ops: ops}
}

func (l LogsView) Init() tea.Cmd {
	return l.Refresh()
}

func (l LogsView) Refresh() tea.Cmd {
	level := logLevels[l.levelIndex]
	return func() tea.Msg {
		logs, _ := l.ops.RecentLogs(200, level)
		return logsMsg{logs}
	}
}

func (l LogsView) SetSize(w, h int) LogsView {
	l.width = w
	l.height = h
	return l
}

func (l LogsView) Update(msg tea.Msg) (LogsView, tea.Cmd) {
	switch msg := msg.(type) {
	case logsMsg:
		l.logs = msg.logs
		l.scrollOffset = 0

	case tea.KeyMsg:
		maxScroll := max(len(l.logs)-l.visibleLines(), 0)
		switch msg.String() {
		case "left", "h":
			if l.levelIndex > 0 {
				l.levelIndex--
				return l, l.Refresh()
			}
		case "right", "l":
			if l.levelIndex < len(logLevels)-1 {
				l.levelIndex++
				return l, l.Refresh()
			}
		case "up", "k":
			l.scrollOffset = max(l.scrollOffset-1, 0)
		case "down", "j":
			l.scrollOffset = min(l.scrollOffset+1, maxScroll)
		case "g":
			l.scrollOffset = 0
		case "G":
			l.scrollOffset = maxScroll
		}
	}
	return l, nil
}

func (l LogsView) visibleLines() int {
	if l.height-6 < 1 {
		return 10
	}
	return l.height - 6
}

func (l LogsView) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Logs"),
		l.renderFilter(),
		"",
		l.renderLogs(),
	)
}

func (l LogsView) renderFilter() string {
	var parts []string
	for i, level := range logLevels {
		name := strings.ToUpper(string(level))
		if level == "" {
			name = "ALL"
		}
		if i == l.levelIndex {
			parts = append(parts, tabActive.Render("["+name+"]"))
		} else {
			parts = append(parts, tabInactive.Render(name))
		}
	}
	return "Filter: " + strings.Join(parts, " ") + "  (←/→ to change)"
}

func (l LogsView) renderLogs() string {
	if len(l.logs) == 0 {
		return mutedStyle.Render("No logs")
	}

	start := l.scrollOffset
	end := min(start+l.visibleLines(), len(l.logs))

	lines := make([]string, 0, end-start)
	for _, entry := range l.logs[start:end] {
		lines = append(lines, l.formatLog(entry))
	}

	header := mutedStyle.Render(fmt.Sprintf("  [%d-%d of %d]", start+1, end, len(l.logs)))
	return header + "\n" + strings.Join(lines, "\n")
}

func (l LogsView) formatLog(entry models.ScrapeLog) string {
	var levelStyle lipgloss.Style
	switch entry.Level {
	case models.LogLevelInfo:
		levelStyle = statusSuccess
	case models.LogLevelWarn:
		levelStyle = statusPending
	case models.LogLevelError:
		levelStyle = statusError
	default:
		levelStyle = lipgloss.NewStyle()
	}

	query := ""
	if entry.Query != "" {
		query = fmt.Sprintf("[%s] ", entry.Query)
	}

	msg := entry.Message
	if l.width > 30 {
		msg = truncate(msg, l.width-25)
	}

	return fmt.Sprintf("%s %s %s%s",
		mutedStyle.Render(entry.Timestamp.Format("15:04:05")),
		levelStyle.Render(fmt.Sprintf("%-5s", strings.ToUpper(string(entry.Level)))),
		mutedStyle.Render(query),
		msg,
	)
}
