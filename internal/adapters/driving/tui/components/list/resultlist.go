// Package list renders ranked songs as a navigable list.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// linesPerItem is the height of one rendered row: song line plus reasoning.
const linesPerItem = 2

// ResultList displays ranked songs with their reasoning.
type ResultList struct {
	items    []domain.EnrichedItem
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates an empty result list.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 20,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation keys.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the visible window of rows around the selection.
func (r *ResultList) View() string {
	if len(r.items) == 0 {
		return r.styles.Muted.Render("No matching songs")
	}

	start, end := r.window()
	lines := make([]string, 0, (end-start)*linesPerItem)
	for i := start; i < end; i++ {
		lines = append(lines, r.renderItem(i, &r.items[i]))
	}
	if end < len(r.items) || start > 0 {
		lines = append(lines, r.styles.Muted.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, len(r.items))))
	}
	return strings.Join(lines, "\n")
}

// window returns the half-open range of rows that fit the height.
func (r *ResultList) window() (int, int) {
	visible := max(r.height/linesPerItem, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	return start, min(start+visible, len(r.items))
}

func (r *ResultList) renderItem(index int, item *domain.EnrichedItem) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	song := truncate(songLine(item), max(r.width-8, 10))
	rank := r.styles.Rank.Render(fmt.Sprintf("%d.", index+1))

	var line string
	if index == r.selected {
		line = indicator + rank + r.styles.Selected.Render(song)
	} else {
		line = indicator + rank + r.styles.Song.Render(song)
	}

	note := item.Reasoning
	if note == "" {
		note = item.Collection
	}
	note = truncate(strings.Join(strings.Fields(note), " "), max(r.width-8, 20))
	return line + "\n" + r.styles.Reasoning.Render("  "+note)
}

// songLine is "Title - Contributors", or just the title when uncredited.
func songLine(item *domain.EnrichedItem) string {
	if names := item.ContributorNames(); names != "" {
		return item.Title + " - " + names
	}
	return item.Title
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// SetItems replaces the rows and resets the selection.
func (r *ResultList) SetItems(items []domain.EnrichedItem) {
	r.items = items
	r.selected = 0
}

// Items returns the current rows.
func (r *ResultList) Items() []domain.EnrichedItem {
	return r.items
}

// Selected returns the index of the selected row.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected moves the selection; out of range indices are ignored.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.items) {
		r.selected = index
	}
}

// SelectedItem returns the selected song, or nil if the list is empty.
func (r *ResultList) SelectedItem() *domain.EnrichedItem {
	if r.selected < 0 || r.selected >= len(r.items) {
		return nil
	}
	return &r.items[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.items)-1 {
		r.selected++
	}
}

// SetDimensions sets the space available to the list.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of rows.
func (r *ResultList) Count() int {
	return len(r.items)
}
