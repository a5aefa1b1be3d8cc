package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boat_radar/models"
	"boat_radar/pricing"
)

type listingsMsg struct {
	listings []models.StoredListing
}

// ListingsView browses stored listings with a details panel for the selection.
type ListingsView struct {
	source        Listings
	priceRange    pricing.Range
	width, height int
	all           []models.StoredListing
	visible       []models.StoredListing
	selectedRow   int
	inRangeOnly   bool
}

func NewListingsView(source Listings, r pricing.Range) ListingsView {
	return ListingsView{source: source, priceRange: r}
}

func (v ListingsView) Init() tea.Cmd {
	return v.Refresh()
}

func (v ListingsView) Refresh() tea.Cmd {
	return func() tea.Msg {
		listings, _ := v.source.ListListings(context.Background())
		return listingsMsg{listings}
	}
}

func (v ListingsView) SetSize(w, h int) ListingsView {
	v.width = w
	v.height = h
	return v
}

func (v ListingsView) selected() (models.StoredListing, bool) {
	if v.selectedRow < 0 || v.selectedRow >= len(v.visible) {
		return models.StoredListing{}, false
	}
	return v.visible[v.selectedRow], true
}

func (v ListingsView) applyFilter() ListingsView {
	if !v.inRangeOnly {
		v.visible = v.all
	} else {
		v.visible = nil
		for _, l := range v.all {
			if l.PriceNumeric != nil && v.priceRange.ContainsValue(*l.PriceNumeric) {
				v.visible = append(v.visible, l)
			}
		}
	}
	if v.selectedRow >= len(v.visible) {
		v.selectedRow = 0
	}
	return v
}

func (v ListingsView) Update(msg tea.Msg) (ListingsView, tea.Cmd) {
	switch msg := msg.(type) {
	case listingsMsg:
		v.all = msg.listings
		v = v.applyFilter()

	case tea.KeyMsg:
		last := len(v.visible) - 1
		switch msg.String() {
		case "up", "k":
			v.selectedRow = max(v.selectedRow-1, 0)
		case "down", "j":
			v.selectedRow = max(min(v.selectedRow+1, last), 0)
		case "pgup", "ctrl+u":
			v.selectedRow = max(v.selectedRow-10, 0)
		case "pgdown", "ctrl+d":
			v.selectedRow = max(min(v.selectedRow+10, last), 0)
		case "home", "g":
			v.selectedRow = 0
		case "end", "G":
			v.selectedRow = max(last, 0)
		case "f":
			v.inRangeOnly = !v.inRangeOnly
			v.selectedRow = 0
			v = v.applyFilter()
		}
	}
	return v, nil
}

func (v ListingsView) visibleRows() int {
	rows := 25
	if v.height > 0 {
		rows = max(v.height*55/100, 10)
	}
	return rows
}

func (v ListingsView) View() string {
	filter := "All"
	if v.inRangeOnly {
		filter = fmt.Sprintf("%s to %s", pricing.Format(v.priceRange.Min), pricing.Format(v.priceRange.Max))
	}

	position := fmt.Sprintf("  %d/%d", min(v.selectedRow+1, len(v.visible)), len(v.visible))
	header := titleStyle.Render("Listings") +
		statValue.Render(position) +
		"  " + mutedStyle.Render(fmt.Sprintf("[f] Filter: %s", filter))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		v.renderTable(),
		"",
		v.renderDetails(),
	)
}

func (v ListingsView) renderTable() string {
	header := fmt.Sprintf("%-36s %10s %-14s %6s %-7s %-6s",
		"Title", "Price", "City", "Rating", "Parking", "Status")
	rows := tableHeader.Render(header) + "\n"

	if len(v.visible) == 0 {
		return rows + mutedStyle.Render("No listings")
	}

	visibleRows := v.visibleRows()
	scrollOffset := 0
	if v.selectedRow >= visibleRows {
		scrollOffset = v.selectedRow - visibleRows + 1
	}
	endRow := min(scrollOffset+visibleRows, len(v.visible))

	for i := scrollOffset; i < endRow; i++ {
		l := v.visible[i]
		row := fmt.Sprintf("%-36s %10s %-14s %6s %-7s %-6s",
			truncate(l.Title, 36),
			truncate(l.Price, 10),
			truncate(l.Location.City, 14),
			ratingCell(l.Classification),
			parkingCell(l.Classification),
			statusCell(l.Listing),
		)
		if i == v.selectedRow {
			rows += tableSelected.Render(row) + "\n"
		} else {
			rows += row + "\n"
		}
	}

	if len(v.visible) > visibleRows {
		rows += mutedStyle.Render(fmt.Sprintf("  [%d-%d of %d]", scrollOffset+1, endRow, len(v.visible)))
	}
	return rows
}

func (v ListingsView) renderDetails() string {
	l, ok := v.selected()
	if !ok {
		return ""
	}
	width := max(v.width-4, 30)

	lines := []string{
		statValue.Render(l.Title),
		fmt.Sprintf("%s  %s", l.Price, locationLine(l.Location)),
	}
	if l.Subtitle != nil && *l.Subtitle != "" {
		lines = append(lines, statLabel.Render(*l.Subtitle))
	}
	if l.SearchQuery != "" {
		lines = append(lines, statLabel.Render("Query: ")+l.SearchQuery)
	}
	if c := l.Classification; c != nil {
		lines = append(lines, "", statLabel.Render("Assessment: ")+c.Reason)
	}
	if l.Description != nil && *l.Description != "" {
		desc := truncate(*l.Description, 300)
		lines = append(lines, "")
		lines = append(lines, wrapText(desc, width-4)...)
	}
	lines = append(lines, "", mutedStyle.Render(truncate(l.URL, width-4)))

	return queryCardBorder.Width(width).Render(strings.Join(lines, "\n"))
}

func ratingCell(c *models.Classification) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%d/10", c.Rating)
}

func parkingCell(c *models.Classification) string {
	switch {
	case c == nil:
		return "-"
	case c.HasParking:
		return "yes"
	default:
		return "no"
	}
}

func statusCell(l models.Listing) string {
	switch {
	case l.IsSold != nil && *l.IsSold:
		return "sold"
	case l.IsPending != nil && *l.IsPending:
		return "pending"
	default:
		return ""
	}
}

func locationLine(loc models.Location) string {
	switch {
	case loc.City != "" && loc.Region != "":
		return loc.City + ", " + loc.Region
	case loc.City != "":
		return loc.City
	default:
		return loc.Region
	}
}
