// Package input provides the query field of the search view.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
)

const (
	placeholder = "Describe the songs you want..."
	charLimit   = 512
	minWidth    = 20
)

// QueryInput wraps a bubbles textinput for free-text song queries.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewQueryInput creates a focused, empty query field.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = charLimit
	ti.Width = 60
	ti.Focus()

	return &QueryInput{
		textinput: ti,
		styles:    s,
		width:     60,
	}
}

// Init starts the cursor blinking.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards messages to the text field.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the labelled field.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("Find: ")
	field := q.styles.Input.Render(q.textinput.View())
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the raw text.
func (q *QueryInput) Value() string {
	return q.textinput.Value()
}

// Query returns the text with surrounding whitespace removed.
func (q *QueryInput) Query() string {
	return strings.TrimSpace(q.textinput.Value())
}

// SetValue replaces the text.
func (q *QueryInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Focus gives the field keyboard focus.
func (q *QueryInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes keyboard focus.
func (q *QueryInput) Blur() {
	q.textinput.Blur()
}

// Focused reports whether the field has focus.
func (q *QueryInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth fits the field to the terminal, leaving room for the label and border.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	q.textinput.Width = max(width-14, minWidth)
}

// Width returns the last width set.
func (q *QueryInput) Width() int {
	return q.width
}

// Reset clears the text.
func (q *QueryInput) Reset() {
	q.textinput.Reset()
}
