// Package styles provides the colour palette and lipgloss styles shared by
// the terminal views.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#1DB954"), // Green
		Secondary: lipgloss.Color("#F59E0B"), // Amber
		Muted:     lipgloss.Color("#6C7086"), // Gray
		Success:   lipgloss.Color("#A6E3A1"),
		Warning:   lipgloss.Color("#F9E2AF"),
		Error:     lipgloss.Color("#F38BA8"),
	}
}

// Styles contains the pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	// Title is used for view headers.
	Title lipgloss.Style

	// Song renders a song title in result lists.
	Song lipgloss.Style

	// Rank renders the position prefix of a result.
	Rank lipgloss.Style

	// Reasoning renders the per-result justification.
	Reasoning lipgloss.Style

	// Selected highlights the focused row of a list.
	Selected lipgloss.Style

	// Input frames the query field.
	Input lipgloss.Style

	// StatusBar is the bottom line of the interactive views.
	StatusBar lipgloss.Style

	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Song: lipgloss.NewStyle().
			Bold(true),

		Rank: lipgloss.NewStyle().
			Foreground(theme.Secondary).
			Width(4),

		Reasoning: lipgloss.NewStyle().
			Italic(true).
			Foreground(theme.Muted).
			PaddingLeft(4),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Muted).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Help:    lipgloss.NewStyle().Foreground(theme.Muted),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
