// Package cli implements the sercha-music command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-music/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-music/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-music/internal/adapters/driven/lyrics/genius"
	"github.com/custodia-labs/sercha-music/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-music/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-music/internal/adapters/driven/websearch/brave"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-music/internal/core/services"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

var version = "dev"

// Services used by the commands. They are built on first use; tests
// replace them with mocks.
var (
	searchService     driving.SearchService
	libraryService    driving.LibraryService
	enrichmentService driving.EnrichmentService
	settingsService   driving.SettingsService
)

// Global flags.
var (
	verbose   bool
	dataDir   string
	ephemeral bool
)

// closers release engine resources after the command finishes.
var closers []func() error

var rootCmd = &cobra.Command{
	Use:   "sercha-music",
	Short: "Search your music library in plain language",
	Long: `sercha-music enriches a song library with lyrics, background notes and
embeddings, then answers natural-language queries over it.

Start by configuring a provider and syncing a catalog:
  sercha-music settings llm
  sercha-music sync --file library.yaml
  sercha-music search "songs about leaving home"`,
	SilenceUsage:     true,
	PersistentPreRun: func(*cobra.Command, []string) { logger.SetVerbose(verbose) },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline progress to stderr")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "state directory (default ~/.sercha-music)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the library in memory for this run only")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. A .env file in the working directory is
// loaded first; variables already set in the environment take precedence.
func Execute(ctx context.Context) error {
	_ = godotenv.Load()
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// stateDir returns the --data-dir value or the default directory.
func stateDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	return file.DefaultDir()
}

// requireSettings returns the settings service, building it on first use.
func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}

	dir, err := stateDir()
	if err != nil {
		return nil, fmt.Errorf("locate state directory: %w", err)
	}
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	settingsService = services.NewSettingsService(newEnvConfigStore(configStore, nil), ai.NewConfigValidator())
	return settingsService, nil
}

// requireEngine builds the search and enrichment services on first use.
func requireEngine() error {
	if searchService != nil && libraryService != nil && enrichmentService != nil {
		return nil
	}

	settingsSvc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	dir, err := stateDir()
	if err != nil {
		return fmt.Errorf("locate state directory: %w", err)
	}

	store, runs, err := openItemStore(dir)
	if err != nil {
		return err
	}

	clients := ai.NewClients(settings)
	for _, w := range clients.Warnings {
		logger.Warn("%s", w)
	}
	closers = append(closers, func() error { clients.Close(); return nil })

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return fmt.Errorf("open prompts: %w", err)
	}

	var lyrics driven.LyricsProvider
	if !settings.Lyrics.Disabled {
		lyrics = genius.NewProvider(genius.Config{AccessToken: settings.Lyrics.AccessToken})
	}

	reasoner := services.NewReasoningGenerator(clients.Completion, settings.Search.MaxReasoningWorkers)
	reasoner.SetPromptStore(prompts)
	vector := services.NewVectorEngine(clients.Embedder, store)
	vector.SetReasoner(reasoner)
	reduction := services.NewReductionEngine(clients.Completion)
	reduction.SetPromptStore(prompts)

	search := services.NewSearchService(store, vector, reduction)
	if settings.Search.InstantMatch && lyrics != nil && clients.Completion != nil {
		instant := services.NewInstantMatcher(clients.Completion, lyrics)
		instant.SetPromptStore(prompts)
		search.SetInstantMatcher(instant)
	}

	enrich := services.NewEnrichmentService(store, clients.Completion, clients.Embedder)
	enrich.SetPromptStore(prompts)
	enrich.SetWorkers(settings.Search.MaxEnrichmentWorkers)
	enrich.SetRunStore(runs)
	if lyrics != nil {
		enrich.SetLyricsProvider(lyrics)
	}
	if settings.WebSearch.IsConfigured() {
		web, err := brave.NewSearcher(brave.Config{APIKey: settings.WebSearch.APIKey})
		if err != nil {
			logger.Warn("web search disabled: %v", err)
		} else {
			enrich.SetWebSearcher(web)
		}
	}

	searchService = search
	libraryService = search
	enrichmentService = enrich
	return nil
}

// openItemStore opens the SQLite library and sync history, or in-memory
// ones for --ephemeral.
func openItemStore(dir string) (driven.ItemStore, driven.SyncRunStore, error) {
	if ephemeral {
		return memory.NewItemStore(), memory.NewSyncRunStore(), nil
	}
	db, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, nil, fmt.Errorf("open library: %w", err)
	}
	closers = append(closers, db.Close)
	return db.ItemStore(), db.SyncRunStore(), nil
}

// searchDefaults returns the configured search options, or the built-in
// defaults when settings cannot be read.
func searchDefaults() domain.SearchOptions {
	svc, err := requireSettings()
	if err != nil {
		return domain.DefaultSearchOptions()
	}
	settings, err := svc.Get()
	if err != nil {
		return domain.DefaultSearchOptions()
	}
	return settings.Search.Options()
}

func shutdown() {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("shutdown: %v", err)
	}
}
