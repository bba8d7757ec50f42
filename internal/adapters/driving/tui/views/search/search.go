// Package search provides the query and results view of the TUI.
package search

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
)

// View is the search view: query field, ranked songs and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	options       domain.SearchOptions
	ctx           context.Context

	result     *domain.SearchResult
	err        error
	width      int
	height     int
	ready      bool
	searching  bool
	focusInput bool
}

// NewView creates a search view. Queries run with opts.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
	opts domain.SearchOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQueryInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s),
		searchService: searchService,
		options:       opts,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
	v.statusbar.SetHints(km.InputHelp())
	return v
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		return v, v.handleSearchCompleted(msg)

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.searching {
		return v, nil
	}
	if v.focusInput {
		return v.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, v.keymap.Up):
		v.list.MoveUp()
	case key.Matches(msg, v.keymap.Down):
		v.list.MoveDown()
	case key.Matches(msg, v.keymap.Open):
		if item := v.list.SelectedItem(); item != nil {
			selected := *item
			return v, func() tea.Msg { return messages.SongSelected{Item: selected} }
		}
	case key.Matches(msg, v.keymap.NewSearch):
		v.input.SetValue("")
		return v, v.focus()
	case key.Matches(msg, v.keymap.Back):
		return v, v.focus()
	}
	return v, nil
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg { return messages.Quit{} }
	case key.Matches(msg, v.keymap.Search):
		text := v.input.Query()
		if text == "" {
			return v, nil
		}
		v.searching = true
		v.err = nil
		v.input.Blur()
		v.statusbar.SetState(status.StateSearching)
		v.statusbar.SetHints(nil)
		return v, v.performSearch(text)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// focus returns keyboard focus to the query field.
func (v *View) focus() tea.Cmd {
	v.focusInput = true
	v.statusbar.SetHints(v.keymap.InputHelp())
	return v.input.Focus()
}

// performSearch runs the query off the update loop.
func (v *View) performSearch(text string) tea.Cmd {
	service, ctx := v.searchService, v.ctx
	query := domain.Query{Text: text, Options: v.options}
	return func() tea.Msg {
		if service == nil {
			return messages.SearchCompleted{Err: ErrNoSearchService}
		}
		result, err := service.Search(ctx, query)
		return messages.SearchCompleted{Result: result, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) tea.Cmd {
	v.searching = false
	if msg.Err != nil {
		v.setError(msg.Err)
		return v.focus()
	}

	v.err = nil
	v.result = msg.Result
	var items []domain.EnrichedItem
	if msg.Result != nil {
		items = msg.Result.Items
	}
	v.list.SetItems(items)
	v.statusbar.SetResult(msg.Result)
	if len(items) == 0 {
		return v.focus()
	}
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetHints(v.keymap.ResultsHelp())
	return nil
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("sercha-music"), "", v.input.View(), "")

	if v.result != nil && v.result.FellBack {
		sections = append(sections,
			v.styles.Warning.Render("No song cleared the similarity threshold; ranked the full library instead."), "")
	}
	if v.result != nil || v.searching {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// Title, field with border, fallback notice and status bar.
	v.list.SetDimensions(width, max(height-11, 2))
	v.statusbar.SetWidth(width)
}

// SetStatusMessage shows a message while idle.
func (v *View) SetStatusMessage(message string) {
	v.statusbar.SetMessage(message)
}

// Ready returns whether the view has been sized.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Result returns the last completed search, or nil.
func (v *View) Result() *domain.SearchResult {
	return v.result
}

// SelectedItem returns the highlighted song, or nil.
func (v *View) SelectedItem() *domain.EnrichedItem {
	return v.list.SelectedItem()
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}

// Searching reports whether a search is in flight.
func (v *View) Searching() bool {
	return v.searching
}

// InputFocused returns whether the query field has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset clears the query and results.
func (v *View) Reset() tea.Cmd {
	v.input.SetValue("")
	v.list.SetItems(nil)
	v.result = nil
	v.err = nil
	v.searching = false
	v.statusbar.Clear()
	return v.focus()
}
