package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	filecatalog "github.com/custodia-labs/sercha-music/internal/adapters/driven/catalog/file"
	"github.com/custodia-labs/sercha-music/internal/adapters/driven/catalog/spotify"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/tui/progress"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

var errNoCatalog = errors.New("choose a catalog with --file or --spotify")

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Enrich and store songs from a catalog",
	Long: `Reads songs from a catalog and enriches the ones not yet in the library
with lyrics, a background note and an embedding. Songs already enriched are
taken from the library without calling any provider.

Catalogs:
  --file PATH   a JSON or YAML list of songs (id, title, contributors,
                collection, external_link)
  --spotify     the first playlists of the Spotify account connected with
                "sercha-music auth spotify" (or SPOTIFY_CLIENT_ID,
                SPOTIFY_CLIENT_SECRET and SPOTIFY_REFRESH_TOKEN)

With --watch, the catalog file is synced again every time it is saved.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent syncs",
	Args:  cobra.NoArgs,
	RunE:  runSyncHistory,
}

func init() {
	syncHistoryCmd.Flags().IntP("limit", "n", domain.DefaultHistoryLimit, "number of syncs to list")
	syncCmd.AddCommand(syncHistoryCmd)

	syncCmd.Flags().String("file", "", "catalog file (.json, .yaml, .yml)")
	syncCmd.Flags().Bool("spotify", false, "sync from Spotify playlists")
	syncCmd.Flags().Bool("watch", false, "re-sync when the catalog file changes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	useSpotify, _ := cmd.Flags().GetBool("spotify")
	watch, _ := cmd.Flags().GetBool("watch")

	source, err := catalogSource(path, useSpotify)
	if err != nil {
		return err
	}
	fileSource, watchable := source.(*filecatalog.Source)
	if watch && !watchable {
		return errors.New("--watch needs a --file catalog")
	}

	if err := requireEngine(); err != nil {
		return err
	}

	ctx := cmd.Context()
	items, err := source.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", source.Name(), err)
	}
	if err := syncItems(ctx, cmd.OutOrStdout(), source.Name(), items); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	updates, err := fileSource.Watch(ctx)
	if err != nil {
		return err
	}
	defer fileSource.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes (Ctrl+C to stop)\n", path)
	for items := range updates {
		if err := syncItems(ctx, cmd.OutOrStdout(), source.Name(), items); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn("sync %s: %v", source.Name(), err)
		}
	}
	return nil
}

// catalogSource builds the catalog named by the flags.
func catalogSource(path string, useSpotify bool) (driven.CatalogSource, error) {
	switch {
	case path != "" && useSpotify:
		return nil, errors.New("--file and --spotify cannot be combined")
	case path != "":
		return filecatalog.New(path), nil
	case useSpotify:
		svc, err := requireSettings()
		if err != nil {
			return nil, err
		}
		settings, err := svc.Get()
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		return spotify.NewSource(spotify.Config{
			ClientID:     settings.Catalog.ClientID,
			ClientSecret: settings.Catalog.ClientSecret,
			RefreshToken: settings.Catalog.RefreshToken,
		})
	default:
		return nil, errNoCatalog
	}
}

// syncItems runs one enrichment pass, showing a progress bar on a terminal
// and one line per song otherwise.
func syncItems(ctx context.Context, out io.Writer, name string, items []domain.RawItem) error {
	fmt.Fprintf(out, "Syncing %d songs from %s\n", len(items), name)

	var report *driving.SyncReport
	var err error
	if isTerminal(out) && !verbose {
		err = progress.Run(ctx, out, len(items), func(ctx context.Context, send func(progress.ItemMsg)) error {
			var syncErr error
			report, syncErr = enrichmentService.Sync(ctx, name, items, func(res driving.EnrichmentResult, done, total int) {
				send(progress.ItemMsg{
					Title:    res.Item.Title,
					Done:     done,
					Total:    total,
					Degraded: incomplete(res),
				})
			})
			return syncErr
		})
	} else {
		report, err = enrichmentService.Sync(ctx, name, items, func(res driving.EnrichmentResult, done, total int) {
			mark := ""
			if incomplete(res) {
				mark = " (incomplete)"
			}
			fmt.Fprintf(out, "  [%d/%d] %s%s\n", done, total, res.Item.Title, mark)
		})
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(out, "Synced %d songs: %d cached, %d enriched", len(report.Items), report.Cached, report.Enriched)
	if report.PersistFailures > 0 {
		fmt.Fprintf(out, ", %d not saved", report.PersistFailures)
	}
	fmt.Fprintln(out)
	if report.Usage.RequestCount > 0 {
		fmt.Fprintln(out, formatUsage(report.Usage))
	}
	return nil
}

// incomplete reports whether an enriched song is missing its embedding or
// could not be saved.
func incomplete(res driving.EnrichmentResult) bool {
	return res.PersistErr != nil || !res.Item.HasEmbedding()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runSyncHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if err := requireEngine(); err != nil {
		return err
	}

	runs, err := enrichmentService.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("No syncs recorded yet.")
		return nil
	}

	out := cmd.OutOrStdout()
	for i := range runs {
		writeSyncRun(out, &runs[i])
	}
	return nil
}

func writeSyncRun(w io.Writer, run *domain.SyncRun) {
	fmt.Fprintf(w, "%s  %-8s %d songs: %d cached, %d enriched",
		run.StartedAt.Local().Format("2006-01-02 15:04"), run.Source, run.Total, run.Cached, run.Enriched)
	if run.PersistFailures > 0 {
		fmt.Fprintf(w, ", %d not saved", run.PersistFailures)
	}
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(w, " in %s", d.Round(time.Second))
	}
	fmt.Fprintln(w)
	if run.Error != "" {
		fmt.Fprintf(w, "    failed: %s\n", run.Error)
	}
	if run.Usage.RequestCount > 0 {
		fmt.Fprintf(w, "    %s\n", formatUsage(run.Usage))
	}
}
