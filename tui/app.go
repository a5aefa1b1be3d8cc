// Package tui is the operator console: run history, stored listings and logs
// read from the daemon's databases, plus keys that queue daemon commands.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boat_radar/models"
	"boat_radar/pricing"
)

type tab int

const (
	tabDashboard tab = iota
	tabListings
	tabLogs
	tabCount
)

var tabNames = []string{"Dashboard", "Listings", "Logs"}

const notifyFor = 2 * time.Second

type tickMsg time.Time
type logTickMsg time.Time

type Model struct {
	ops           Operations
	activeTab     tab
	width, height int
	notification  string
	notifyUntil   time.Time

	dashboard Dashboard
	listings  ListingsView
	logs      LogsView
}

func NewModel(ops Operations, listings Listings, r pricing.Range, logPath string) Model {
	return Model{
		ops:       ops,
		activeTab: tabDashboard,
		dashboard: NewDashboard(ops, listings, r, logPath),
		listings:  NewListingsView(listings, r),
		logs:      NewLogsView(ops),
	}
}

// Run blocks until the user quits.
func Run(ops Operations, listings Listings, r pricing.Range, logPath string) error {
	p := tea.NewProgram(NewModel(ops, listings, r, logPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.listings.Init(),
		m.logs.Init(),
		tickCmd(),
		logTickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func logTickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return logTickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "1":
			m.activeTab = tabDashboard
			return m, nil
		case "2":
			m.activeTab = tabListings
			return m, nil
		case "3":
			m.activeTab = tabLogs
			return m, nil
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "r":
			m = m.notify("Refreshed")
			return m, m.refreshActive()
		case "n":
			return m.sendCommand(models.CmdRunNow, "Run queued"), nil
		case "p":
			return m.sendCommand(models.CmdPause, "Pause queued"), nil
		case "u":
			return m.sendCommand(models.CmdResume, "Resume queued"), nil
		}

		var cmd tea.Cmd
		switch m.activeTab {
		case tabDashboard:
			m.dashboard, cmd = m.dashboard.Update(msg)
		case tabListings:
			m.listings, cmd = m.listings.Update(msg)
		case tabLogs:
			m.logs, cmd = m.logs.Update(msg)
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.dashboard = m.dashboard.SetSize(msg.Width, msg.Height-4)
		m.listings = m.listings.SetSize(msg.Width, msg.Height-4)
		m.logs = m.logs.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshActive(), tickCmd())

	case logTickMsg:
		return m, tea.Batch(m.dashboard.RefreshLog(), logTickCmd())
	}

	// Data messages go to every view so the initial load fills all tabs.
	var cmd tea.Cmd
	m.dashboard, cmd = m.dashboard.Update(msg)
	cmds = append(cmds, cmd)
	m.listings, cmd = m.listings.Update(msg)
	cmds = append(cmds, cmd)
	m.logs, cmd = m.logs.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) sendCommand(cmd models.CommandType, ok string) Model {
	if err := m.ops.EnqueueCommand(cmd, nil); err != nil {
		return m.notify(fmt.Sprintf("Command failed: %v", err))
	}
	return m.notify(ok)
}

func (m Model) notify(text string) Model {
	m.notification = text
	m.notifyUntil = time.Now().Add(notifyFor)
	return m
}

func (m Model) refreshActive() tea.Cmd {
	switch m.activeTab {
	case tabDashboard:
		return m.dashboard.Refresh()
	case tabListings:
		return m.listings.Refresh()
	case tabLogs:
		return m.logs.Refresh()
	}
	return nil
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), m.renderContent(), m.renderStatusBar())
}

func (m Model) renderTabs() string {
	var rendered []string
	for i, name := range tabNames {
		if tab(i) == m.activeTab {
			rendered = append(rendered, tabActive.Render(name))
		} else {
			rendered = append(rendered, tabInactive.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...) + "\n"
}

func (m Model) renderContent() string {
	switch m.activeTab {
	case tabDashboard:
		return m.dashboard.View()
	case tabListings:
		return m.listings.View()
	case tabLogs:
		return m.logs.View()
	}
	return ""
}

func (m Model) renderStatusBar() string {
	left := "1 Dash  2 Listings  3 Logs  r Refresh  n Run now  p Pause  u Resume  q Quit"
	right := ""
	if time.Now().Before(m.notifyUntil) {
		right = notificationStyle.Render(m.notification)
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 0)
	return statusBar.Render(left) + lipgloss.NewStyle().Width(gap).Render("") + right
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// truncate cuts s to n runes; titles are mostly Hebrew so bytes would split letters.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string([]rune(s)[:n-1]) + "…"
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 40
	}
	var lines []string
	var line string
	for _, word := range strings.Fields(text) {
		if line != "" && utf8.RuneCountInString(line)+utf8.RuneCountInString(word)+1 > width {
			lines = append(lines, line)
			line = word
			continue
		}
		if line != "" {
			line += " "
		}
		line += word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
