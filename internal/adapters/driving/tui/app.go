package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/views/song"
)

// libraryCounted carries the library size shown on start.
type libraryCounted struct {
	count int
	err   error
}

// App is the root tea.Model. It routes messages between the search view
// and the song view.
type App struct {
	ports  *Ports
	ctx    context.Context
	keymap *keymap.KeyMap

	searchView *search.View
	songView   *song.View

	currentView messages.ViewType
	err         error
	ready       bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the TUI application.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:       ports,
		ctx:         context.Background(),
		keymap:      km,
		searchView:  search.NewView(s, km, ports.Search, ports.options()),
		songView:    song.NewView(s, km, ports.Library),
		currentView: messages.ViewSearch,
	}, nil
}

// WithContext sets the context searches and lookups run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.songView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	library, ctx := a.ports.Library, a.ctx
	return tea.Batch(
		tea.SetWindowTitle("sercha-music"),
		a.searchView.Init(),
		func() tea.Msg {
			n, err := library.Count(ctx)
			return libraryCounted{count: n, err: err}
		},
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.ready = true
		a.searchView.SetDimensions(msg.Width, msg.Height)
		a.songView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}

	case libraryCounted:
		if msg.err != nil {
			a.err = msg.err
			a.searchView.SetStatusMessage("Library unavailable: " + msg.err.Error())
		} else {
			a.searchView.SetStatusMessage(fmt.Sprintf("%d songs in library", msg.count))
		}
		return a, nil

	case messages.SongSelected:
		a.currentView = messages.ViewSong
		return a, a.songView.SetItem(msg.Item)

	case messages.SongLoaded:
		a.songView, cmd = a.songView.Update(msg)
		return a, cmd

	case messages.SearchCompleted:
		a.err = msg.Err
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err

	case messages.Quit:
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewSong:
		a.songView, cmd = a.songView.Update(msg)
	default:
		a.searchView, cmd = a.searchView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.currentView == messages.ViewSong {
		return a.songView.View()
	}
	return a.searchView.View()
}

// Run starts the program on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SearchView returns the search view.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// SongView returns the song view.
func (a *App) SongView() *song.View {
	return a.songView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}
