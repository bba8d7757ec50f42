// Package song provides the single-song view: credits, the reasoning from
// the last search, background notes and lyrics.
package song

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
)

// reservedLines covers the title, rule, scroll indicator and help footer.
const reservedLines = 6

// View shows one song. The ranked copy is shown at once and replaced by the
// stored copy when it loads.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	library driving.LibraryService
	ctx     context.Context

	item    *domain.EnrichedItem
	lines   []string
	offset  int
	width   int
	height  int
	loading bool
	err     error
}

// NewView creates a song view backed by library.
func NewView(s *styles.Styles, km *keymap.KeyMap, library driving.LibraryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:  s,
		keymap:  km,
		library: library,
		ctx:     context.Background(),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context lookups run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetItem shows a ranked song and returns the command that loads its stored copy.
func (v *View) SetItem(item domain.EnrichedItem) tea.Cmd {
	v.item = &item
	v.offset = 0
	v.err = nil
	v.layout()

	if v.library == nil {
		return nil
	}
	v.loading = true
	library, ctx, id := v.library, v.ctx, item.ID
	return func() tea.Msg {
		stored, err := library.Item(ctx, id)
		return messages.SongLoaded{ID: id, Item: stored, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the song view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SongLoaded:
		v.handleLoaded(msg)

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleLoaded(msg messages.SongLoaded) {
	if v.item == nil || msg.ID != v.item.ID {
		return
	}
	v.loading = false
	if msg.Err != nil {
		v.err = msg.Err
		return
	}
	if msg.Item == nil {
		return
	}
	stored := msg.Item.Clone()
	stored.Reasoning = v.item.Reasoning
	v.item = &stored
	v.layout()
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	page := v.visibleLines()
	switch {
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewSearch} }
	case key.Matches(msg, v.keymap.Up):
		v.scroll(-1)
	case key.Matches(msg, v.keymap.Down):
		v.scroll(1)
	case key.Matches(msg, v.keymap.Top):
		v.offset = 0
	case key.Matches(msg, v.keymap.Bottom):
		v.offset = v.maxOffset()
	default:
		switch msg.String() {
		case "pgup", "ctrl+u":
			v.scroll(-page)
		case "pgdown", "ctrl+d", " ":
			v.scroll(page)
		}
	}
	return v, nil
}

func (v *View) scroll(delta int) {
	v.offset = min(max(v.offset+delta, 0), v.maxOffset())
}

// layout renders the song body into wrapped lines.
func (v *View) layout() {
	v.lines = nil
	if v.item == nil {
		return
	}
	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))

	var body []string
	section := func(heading, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		body = append(body, v.styles.Title.Render(heading))
		for _, line := range strings.Split(wrap.Render(text), "\n") {
			body = append(body, strings.TrimRight(line, " "))
		}
		body = append(body, "")
	}

	var credits []string
	if names := v.item.ContributorNames(); names != "" {
		credits = append(credits, "by "+names)
	}
	if v.item.Collection != "" {
		credits = append(credits, "from "+v.item.Collection)
	}
	if len(credits) > 0 {
		body = append(body, v.styles.Muted.Render(strings.Join(credits, ", ")))
	}
	if v.item.ExternalLink != "" {
		body = append(body, v.styles.Muted.Render(v.item.ExternalLink))
	}
	body = append(body, "")

	section("Why it matched", v.item.Reasoning)
	section("Background", v.item.Metadata)
	section("Lyrics", v.item.DescriptiveText)
	v.lines = body
}

func (v *View) visibleLines() int {
	return max(v.height-reservedLines, 1)
}

func (v *View) maxOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the song view.
func (v *View) View() string {
	var b strings.Builder

	title := "Song"
	if v.item != nil {
		title = v.item.Title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	}

	visible := v.visibleLines()
	end := min(v.offset+visible, len(v.lines))
	for _, line := range v.lines[v.offset:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading lyrics..."))
		b.WriteString("\n")
	} else if len(v.lines) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  lines %d-%d of %d", v.offset+1, end, len(v.lines))))
		b.WriteString("\n")
	}

	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderHelp() string {
	bindings := v.keymap.SongHelp()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, "["+h.Key+"] "+h.Desc)
	}
	return v.styles.Help.Render(strings.Join(hints, "  "))
}

// SetDimensions sets the view dimensions and re-wraps the text.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.layout()
}

// Item returns the song being shown, or nil.
func (v *View) Item() *domain.EnrichedItem {
	return v.item
}

// Lines returns the wrapped body.
func (v *View) Lines() []string {
	return v.lines
}

// Offset returns the first visible body line.
func (v *View) Offset() int {
	return v.offset
}

// Loading reports whether the stored copy is still being fetched.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
