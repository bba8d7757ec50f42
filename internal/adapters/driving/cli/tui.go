package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search the library interactively",
	Long: `Open an interactive terminal view for searching the library.

Type a description of the songs you want and press Enter. Results are
ranked the same way as the search command, using the saved search settings.

Controls:
  Enter     Search / open the selected song
  ↑/k, ↓/j  Move through results or scroll a song
  n, /      New search
  Esc       Back (quits from the query field)
  Ctrl+C    Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

// runApp starts the program; tests replace it.
var runApp = (*tui.App).Run

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	if err := requireEngine(); err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{
		Search:   searchService,
		Library:  libraryService,
		Defaults: searchDefaults(),
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	defer func() {
		if r := recover(); r != nil {
			logger.Debug("tui panic stack:\n%s", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if err := runApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
