// Package status provides the bottom status line of the interactive views.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// State is what the search view is currently doing.
type State string

// Status bar states.
const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateError     State = "error"
)

// Bar shows the search state on the left and key hints on the right.
type Bar struct {
	styles  *styles.Styles
	state   State
	message string
	result  *domain.SearchResult
	hints   []key.Binding
	width   int
}

// NewBar creates a status bar in the ready state.
func NewBar(s *styles.Styles) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Bar{
		styles: s,
		state:  StateReady,
		width:  80,
	}
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderHints()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return b.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateSearching:
		return b.styles.Warning.Render("Searching...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateResults:
		if b.result != nil {
			return b.styles.Success.Render(Summary(b.result))
		}
	case StateReady:
		if b.message != "" {
			return b.styles.Muted.Render(b.message)
		}
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) renderHints() string {
	hints := make([]string, 0, len(b.hints))
	for _, binding := range b.hints {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return b.styles.Help.Render(strings.Join(hints, " | "))
}

// Summary describes a finished search in one line.
func Summary(result *domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d songs via %s", len(result.Items), result.Strategy)
	if result.FellBack {
		b.WriteString(" (fallback)")
	}
	if result.Usage.RequestCount > 0 {
		fmt.Fprintf(&b, ", %d tokens", result.Usage.Total())
	}
	return b.String()
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the text shown in the error and ready states.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetResult records a finished search and switches to the results state.
func (b *Bar) SetResult(result *domain.SearchResult) {
	b.result = result
	b.state = StateResults
}

// SetHints sets the key bindings listed on the right.
func (b *Bar) SetHints(bindings []key.Binding) {
	b.hints = bindings
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Clear resets the bar to the ready state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.result = nil
}
