package tui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boat_radar/models"
	"boat_radar/pricing"
)

// A log untouched for this long is shown as stale rather than live.
const liveLogWindow = 2 * time.Minute

type dashboardDataMsg struct {
	runs  []models.ScrapeRun
	stats listingStats
}

type logTailMsg struct {
	lines   []string
	modTime time.Time
}

type listingStats struct {
	total      int
	inRange    int
	classified int
	parking    int
	byQuery    map[string]int
}

func computeStats(listings []models.StoredListing, r pricing.Range) listingStats {
	s := listingStats{total: len(listings), byQuery: map[string]int{}}
	for _, l := range listings {
		if l.PriceNumeric != nil && r.ContainsValue(*l.PriceNumeric) {
			s.inRange++
		}
		if c := l.Classification; c != nil {
			s.classified++
			if c.HasParking {
				s.parking++
			}
		}
		if l.SearchQuery != "" {
			s.byQuery[l.SearchQuery]++
		}
	}
	return s
}

type Dashboard struct {
	ops           Operations
	listings      Listings
	priceRange    pricing.Range
	width, height int
	runs          []models.ScrapeRun
	stats         listingStats
	logLines      []string
	logPath       string
	logScroll     int // 0 = newest
	logViewport   int
	logBuffer     int
	logModTime    time.Time
}

func NewDashboard(ops Operations, listings Listings, r pricing.Range, logPath string) Dashboard {
	if logPath == "" {
		logPath = "radar.log"
	}
	return Dashboard{
		ops:         ops,
		listings:    listings,
		priceRange:  r,
		logPath:     logPath,
		logViewport: 20,
		logBuffer:   200,
	}
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(d.Refresh(), d.RefreshLog())
}

func (d Dashboard) Refresh() tea.Cmd {
	return func() tea.Msg {
		runs, _ := d.ops.RecentRuns(10)
		listings, _ := d.listings.ListListings(context.Background())
		return dashboardDataMsg{runs: runs, stats: computeStats(listings, d.priceRange)}
	}
}

func (d Dashboard) RefreshLog() tea.Cmd {
	return func() tea.Msg {
		lines, modTime := readLastLines(d.logPath, d.logBuffer)
		return logTailMsg{lines, modTime}
	}
}

func readLastLines(path string, n int) ([]string, time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		return []string{"(no log file)"}, time.Time{}
	}
	modTime := info.ModTime()

	f, err := os.Open(path)
	if err != nil {
		return []string{"(no log file)"}, time.Time{}
	}
	defer f.Close()

	var allLines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}

	if len(allLines) == 0 {
		return []string{"(empty log)"}, modTime
	}

	start := len(allLines) - n
	if start < 0 {
		start = 0
	}
	return allLines[start:], modTime
}

func (d Dashboard) SetSize(w, h int) Dashboard {
	d.width = w
	d.height = h
	return d
}

func (d Dashboard) Update(msg tea.Msg) (Dashboard, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.runs = msg.runs
		d.stats = msg.stats
	case logTailMsg:
		d.logLines = msg.lines
		d.logModTime = msg.modTime
	case tea.KeyMsg:
		maxScroll := len(d.logLines) - d.logViewport
		if maxScroll < 0 {
			maxScroll = 0
		}
		switch msg.String() {
		case "up", "k":
			d.logScroll = min(d.logScroll+1, maxScroll)
		case "down", "j":
			d.logScroll = max(d.logScroll-1, 0)
		case "pgup":
			d.logScroll = min(d.logScroll+10, maxScroll)
		case "pgdown":
			d.logScroll = max(d.logScroll-10, 0)
		case "home":
			d.logScroll = maxScroll
		case "end":
			d.logScroll = 0
		}
	}
	return d, nil
}

func (d Dashboard) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Dashboard"),
		d.renderStatCards(),
		"",
		d.renderQueryCards(),
		"",
		titleStyle.Render("Recent Runs"),
		d.renderRunsTable(),
		"",
		d.renderLogTail(),
	)
}

func (d Dashboard) renderStatCards() string {
	lastRun := "never"
	if len(d.runs) > 0 {
		lastRun = relativeTime(d.runs[0].StartedAt)
	}
	cards := []string{
		renderStatCard("Listings", fmt.Sprintf("%d", d.stats.total)),
		renderStatCard("In range", fmt.Sprintf("%d", d.stats.inRange)),
		renderStatCard("Classified", fmt.Sprintf("%d", d.stats.classified)),
		renderStatCard("Parking", fmt.Sprintf("%d", d.stats.parking)),
		renderStatCard("Last run", lastRun),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func renderStatCard(label, value string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		statValue.Render(value),
		statLabel.Render(label),
	)
	return cardBorder.Width(16).Render(content)
}

func (d Dashboard) renderQueryCards() string {
	if len(d.stats.byQuery) == 0 {
		return mutedStyle.Render("No listings stored yet")
	}

	var cards []string
	for _, q := range sortedKeys(d.stats.byQuery) {
		content := lipgloss.JoinVertical(lipgloss.Left,
			statValue.Render(truncate(q, 22)),
			statLabel.Render(fmt.Sprintf("Listings: %d", d.stats.byQuery[q])),
		)
		cards = append(cards, queryCardBorder.Width(26).Render(content))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (d Dashboard) renderRunsTable() string {
	if len(d.runs) == 0 {
		return mutedStyle.Render("No runs yet")
	}

	header := fmt.Sprintf("%-10s %-10s %-10s %6s %6s %6s %6s",
		"Run", "Status", "Started", "Found", "New", "Sent", "Errors")
	rows := tableHeader.Render(header) + "\n"

	for _, r := range d.runs {
		row := fmt.Sprintf("%-10s %s %-10s %6d %6d %6d %6d",
			truncate(r.RunUUID, 10),
			runStatusStyle(r.Status).Render(fmt.Sprintf("%-10s", r.Status)),
			r.StartedAt.Format("15:04:05"),
			r.ListingsFound,
			r.ListingsNew,
			r.Notified,
			r.ErrorsCount,
		)
		rows += row + "\n"
	}
	return rows
}

func runStatusStyle(status models.RunStatus) lipgloss.Style {
	switch status {
	case models.RunStatusCompleted:
		return statusSuccess
	case models.RunStatusFailed:
		return statusError
	default:
		return statusPending
	}
}

func (d Dashboard) renderLogTail() string {
	width := max(d.width-4, 20)
	if len(d.logLines) == 0 {
		return logBox.Width(width).Render(mutedStyle.Render("(waiting for logs...)"))
	}

	total := len(d.logLines)
	endIdx := total - d.logScroll
	startIdx := max(endIdx-d.logViewport, 0)
	if endIdx > total {
		endIdx = total
	}

	var lines []string
	for _, line := range d.logLines[startIdx:endIdx] {
		lines = append(lines, styleLogLine(line, width-4))
	}

	var indicator string
	switch {
	case time.Since(d.logModTime) > liveLogWindow:
		indicator = statusError.Render(" ● STALE ")
	case d.logScroll > 0:
		indicator = statusPending.Render(fmt.Sprintf(" ↑%d ", d.logScroll))
	default:
		indicator = statusSuccess.Render(" ● LIVE ")
	}

	header := titleStyle.Render("Live Log") + indicator +
		mutedStyle.Render(fmt.Sprintf("[%d-%d/%d]", startIdx+1, endIdx, total))
	return logBox.Width(width).Render(header + "\n" + strings.Join(lines, "\n"))
}

// styleLogLine colours a "2006/01/02 15:04:05 file.go:12: [level] msg" line.
func styleLogLine(line string, maxWidth int) string {
	line = truncate(line, maxWidth)

	ts, rest := "", line
	if len(line) > 19 && line[4] == '/' {
		ts, rest = mutedStyle.Render(line[:19]), line[19:]
	}

	switch {
	case strings.Contains(rest, "[error]") || strings.Contains(rest, "ERROR"):
		return ts + statusError.Render(rest)
	case strings.Contains(rest, "[warn]") || strings.Contains(rest, "WARN"):
		return ts + statusPending.Render(rest)
	case strings.Contains(rest, "[debug]"):
		return ts + mutedStyle.Render(rest)
	}
	return ts + rest
}
