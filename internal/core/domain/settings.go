package domain

const unknownDescription = "Unknown"

// Worker pool bounds.
const (
	// DefaultEnrichmentWorkers is the enrichment pool size when unset.
	DefaultEnrichmentWorkers = 20

	// MaxEnrichmentWorkers caps the enrichment pool to respect provider rate limits.
	MaxEnrichmentWorkers = 50

	// DefaultReasoningWorkers is the reasoning pool size when unset.
	DefaultReasoningWorkers = 10
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// SearchSettings holds library search and worker pool configuration.
type SearchSettings struct {
	// ResultCount is the number of items a search returns.
	ResultCount int `validate:"min=1,max=100"`

	// ChunkSize is the number of items per reduction call.
	ChunkSize int `validate:"min=1"`

	// SimilarityThreshold is the minimum vector similarity for a match.
	SimilarityThreshold float64 `validate:"gte=0,lte=1"`

	// UseReasoning enables per-item justifications.
	UseReasoning bool

	// MaxEnrichmentWorkers bounds concurrent item enrichment.
	MaxEnrichmentWorkers int `validate:"min=1,max=50"`

	// MaxReasoningWorkers bounds concurrent reasoning calls.
	MaxReasoningWorkers int `validate:"min=1"`

	// InstantMatch tries a direct lyric lookup before library search.
	InstantMatch bool
}

// Options returns the per-query options derived from these settings.
func (s SearchSettings) Options() SearchOptions {
	return SearchOptions{
		ResultCount:         s.ResultCount,
		ChunkSize:           s.ChunkSize,
		SimilarityThreshold: s.SimilarityThreshold,
		UseReasoning:        s.UseReasoning,
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// LyricsSettings configures the lyrics provider.
type LyricsSettings struct {
	// AccessToken is the optional Genius API bearer token.
	AccessToken string

	// Disabled turns lyrics lookups off entirely.
	Disabled bool
}

// WebSearchSettings configures the web-search fallback used for background notes.
type WebSearchSettings struct {
	// APIKey is the Brave Search subscription token.
	APIKey string
}

// IsConfigured returns true if web search can be used.
func (w WebSearchSettings) IsConfigured() bool {
	return w.APIKey != ""
}

// CatalogSettings configures the Spotify catalog source.
type CatalogSettings struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// IsConfigured returns true if all Spotify credentials are present.
func (c CatalogSettings) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Search holds search behaviour settings.
	Search SearchSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Lyrics holds lyrics provider settings.
	Lyrics LyricsSettings

	// WebSearch holds web-search provider settings.
	WebSearch WebSearchSettings

	// Catalog holds catalog provider settings.
	Catalog CatalogSettings
}

// DefaultSearchSettings returns the default search configuration.
func DefaultSearchSettings() SearchSettings {
	return SearchSettings{
		ResultCount:          DefaultResultCount,
		ChunkSize:            DefaultChunkSize,
		SimilarityThreshold:  DefaultSimilarityThreshold,
		UseReasoning:         true,
		MaxEnrichmentWorkers: DefaultEnrichmentWorkers,
		MaxReasoningWorkers:  DefaultReasoningWorkers,
		InstantMatch:         true,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; credentials come from the config file
// or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: DefaultSearchSettings(),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// ClampWorkers bounds a configured pool size to [1, limit] and to the batch size n.
func ClampWorkers(configured, limit, n int) int {
	w := configured
	if w < 1 {
		w = 1
	}
	if limit > 0 && w > limit {
		w = limit
	}
	if n > 0 && w > n {
		w = n
	}
	return w
}
