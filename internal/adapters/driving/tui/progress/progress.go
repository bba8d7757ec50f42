// Package progress renders a live progress bar for library enrichment.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/styles"
)

const (
	padding  = 2
	maxWidth = 60
)

// ErrInterrupted is returned by Run when the user quits before the work ends.
var ErrInterrupted = errors.New("interrupted")

// ItemMsg reports one finished item.
type ItemMsg struct {
	Title string
	Done  int
	Total int

	// Degraded is set when the item was stored with missing fields.
	Degraded bool
}

// DoneMsg ends the view.
type DoneMsg struct {
	Err error
}

// Model is the bubbletea model for the progress view.
type Model struct {
	bar         progress.Model
	styles      *styles.Styles
	total       int
	done        int
	degraded    int
	last        string
	started     time.Time
	err         error
	finished    bool
	interrupted bool
}

// New creates a progress model for total items.
func New(total int) Model {
	s := styles.DefaultStyles()
	return Model{
		bar: progress.New(
			progress.WithGradient(string(s.Theme().Primary), string(s.Theme().Secondary)),
			progress.WithWidth(maxWidth),
		),
		styles:  s,
		total:   total,
		started: time.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-padding*2-4, 10), maxWidth)
		return m, nil

	case ItemMsg:
		m.done = msg.Done
		if msg.Total > 0 {
			m.total = msg.Total
		}
		m.last = msg.Title
		if msg.Degraded {
			m.degraded++
		}
		return m, m.bar.SetPercent(m.Percent())

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	pad := strings.Repeat(" ", padding)
	var b strings.Builder

	b.WriteString("\n" + pad + m.styles.Title.Render("Enriching library") + "\n\n")
	b.WriteString(pad + m.bar.ViewAs(m.Percent()) + "\n\n")

	status := fmt.Sprintf("%d/%d songs", m.done, m.total)
	if m.degraded > 0 {
		status += m.styles.Warning.Render(fmt.Sprintf("  %d incomplete", m.degraded))
	}
	b.WriteString(pad + status + "  " + m.styles.Muted.Render(m.Elapsed().Round(time.Second).String()) + "\n")

	if m.last != "" && !m.finished {
		b.WriteString(pad + m.styles.Muted.Render("last: "+m.last) + "\n")
	}
	if m.err != nil {
		b.WriteString(pad + m.styles.Error.Render("error: "+m.err.Error()) + "\n")
	}
	if !m.finished {
		b.WriteString("\n" + pad + m.styles.Help.Render("q: stop") + "\n")
	}
	return b.String()
}

// Percent returns the completed fraction in [0, 1].
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 1
	}
	return min(float64(m.done)/float64(m.total), 1)
}

// Elapsed returns the time since the model was created.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.started)
}

// Interrupted reports whether the user quit early.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Run shows the progress view on out while work runs. work reports each
// finished item through report. If the user quits, work's context is
// cancelled and ErrInterrupted is returned once work has stopped.
func Run(
	ctx context.Context,
	out io.Writer,
	total int,
	work func(ctx context.Context, report func(ItemMsg)) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(New(total), tea.WithOutput(out), tea.WithContext(ctx))

	errCh := make(chan error, 1)
	go func() {
		err := work(ctx, func(msg ItemMsg) { program.Send(msg) })
		errCh <- err
		program.Send(DoneMsg{Err: err})
	}()

	final, runErr := program.Run()
	interrupted := false
	if m, ok := final.(Model); ok {
		interrupted = m.Interrupted()
	}
	if interrupted || runErr != nil {
		cancel()
	}

	err := <-errCh
	switch {
	case interrupted:
		return ErrInterrupted
	case err != nil:
		return err
	case runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled):
		return runErr
	}
	return nil
}
