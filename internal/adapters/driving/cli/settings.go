package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure search behaviour and AI providers.

Settings live in ~/.sercha-music/config.toml. API keys may also come from
the environment (ANTHROPIC_API_KEY, OPENAI_API_KEY, GENIUS_ACCESS_TOKEN,
BRAVE_API_KEY); values in the config file take precedence.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for vector retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the language model used for reduction, reasoning and enrichment.`,
	RunE:  runSettingsLLM,
}

var settingsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Set search options",
	Long: `Set search and worker pool options. Only the flags given are changed.

Example:
  sercha-music settings search --result-count 20 --threshold 0.4`,
	RunE: runSettingsSearch,
}

func init() {
	flags := settingsSearchCmd.Flags()
	flags.Int("result-count", domain.DefaultResultCount, "songs returned per search (1-100)")
	flags.Int("chunk-size", domain.DefaultChunkSize, "songs per reduction call")
	flags.Float64("threshold", domain.DefaultSimilarityThreshold, "minimum embedding similarity (0-1)")
	flags.Bool("reasoning", true, "explain each result")
	flags.Bool("instant-match", true, "try a direct lyric lookup first")
	flags.Int("enrichment-workers", domain.DefaultEnrichmentWorkers, "concurrent enrichments (max 50)")
	flags.Int("reasoning-workers", domain.DefaultReasoningWorkers, "concurrent reasoning calls")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsSearchCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Result count: %d\n", settings.Search.ResultCount)
	cmd.Printf("  Chunk size: %d\n", settings.Search.ChunkSize)
	cmd.Printf("  Similarity threshold: %.2f\n", settings.Search.SimilarityThreshold)
	cmd.Printf("  Reasoning: %s\n", onOff(settings.Search.UseReasoning))
	cmd.Printf("  Instant lyric match: %s\n", onOff(settings.Search.InstantMatch))
	cmd.Printf("  Workers: %d enrichment, %d reasoning\n",
		settings.Search.MaxEnrichmentWorkers, settings.Search.MaxReasoningWorkers)
	cmd.Println()

	cmd.Println("[Embedding]")
	showProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())

	cmd.Println("[LLM]")
	showProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())

	cmd.Println("[Providers]")
	lyrics := "genius"
	switch {
	case settings.Lyrics.Disabled:
		lyrics = "disabled"
	case settings.Lyrics.AccessToken != "":
		lyrics += " (token " + maskAPIKey(settings.Lyrics.AccessToken) + ")"
	}
	cmd.Printf("  Lyrics: %s\n", lyrics)
	cmd.Printf("  Web search: %s\n", configured(settings.WebSearch.IsConfigured()))
	cmd.Printf("  Spotify: %s\n", configured(settings.Catalog.IsConfigured()))
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-music settings llm' or 'sercha-music settings embedding' to fix this.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func showProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, ok bool) {
	if provider == "" {
		cmd.Println("  Provider: (not set)")
		cmd.Println()
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
	cmd.Printf("  Status: %s\n", configured(ok))
	cmd.Println()
}

func runSettingsSearch(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	search := settings.Search
	flags := cmd.Flags()
	ints := []struct {
		name   string
		target *int
	}{
		{"result-count", &search.ResultCount},
		{"chunk-size", &search.ChunkSize},
		{"enrichment-workers", &search.MaxEnrichmentWorkers},
		{"reasoning-workers", &search.MaxReasoningWorkers},
	}
	for _, f := range ints {
		if flags.Changed(f.name) {
			*f.target, _ = flags.GetInt(f.name)
		}
	}
	if flags.Changed("threshold") {
		search.SimilarityThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("reasoning") {
		search.UseReasoning, _ = flags.GetBool("reasoning")
	}
	if flags.Changed("instant-match") {
		search.InstantMatch, _ = flags.GetBool("instant-match")
	}

	if err := svc.SetSearchSettings(search); err != nil {
		return fmt.Errorf("failed to save search settings: %w", err)
	}
	cmd.Println("Search settings saved.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	return configureProvider(cmd, "Embedding", domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	return configureProvider(cmd, "LLM", domain.AllLLMProviders(), domain.DefaultLLMModels())
}

// configureProvider prompts for a provider, model and API key, saves them
// and pings the provider.
func configureProvider(
	cmd *cobra.Command,
	kind string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Printf("Select %s Provider\n", kind)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	save, validate := svc.SetLLMProvider, svc.ValidateLLMConfig
	if kind == "Embedding" {
		save, validate = svc.SetEmbeddingProvider, svc.ValidateEmbeddingConfig
	}
	if err := save(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", kind, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", kind, provider.Description(), model)
	return nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when input is a terminal.
func readSecret(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
