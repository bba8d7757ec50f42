package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyResultCount       = "search.result_count"
	keyChunkSize         = "search.chunk_size"
	keyThreshold         = "search.similarity_threshold"
	keyUseReasoning      = "search.use_reasoning"
	keyEnrichmentWorkers = "search.max_enrichment_workers"
	keyReasoningWorkers  = "search.max_reasoning_workers"
	keyInstantMatch      = "search.instant_match"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLyricsToken       = "lyrics.access_token"
	keyLyricsDisabled    = "lyrics.disabled"
	keyWebSearchAPIKey   = "websearch.api_key"
	keyCatalogClientID   = "catalog.client_id"
	keyCatalogSecret     = "catalog.client_secret"
	keyCatalogRefresh    = "catalog.refresh_token"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	validate    *validator.Validate
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		validate:    validator.New(),
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			ResultCount:          s.getInt(keyResultCount, defaults.Search.ResultCount),
			ChunkSize:            s.getInt(keyChunkSize, defaults.Search.ChunkSize),
			SimilarityThreshold:  s.getFloat(keyThreshold, defaults.Search.SimilarityThreshold),
			UseReasoning:         s.getBool(keyUseReasoning, defaults.Search.UseReasoning),
			MaxEnrichmentWorkers: s.getInt(keyEnrichmentWorkers, defaults.Search.MaxEnrichmentWorkers),
			MaxReasoningWorkers:  s.getInt(keyReasoningWorkers, defaults.Search.MaxReasoningWorkers),
			InstantMatch:         s.getBool(keyInstantMatch, defaults.Search.InstantMatch),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Lyrics: domain.LyricsSettings{
			AccessToken: s.configStore.GetString(keyLyricsToken),
			Disabled:    s.getBool(keyLyricsDisabled, false),
		},
		WebSearch: domain.WebSearchSettings{
			APIKey: s.configStore.GetString(keyWebSearchAPIKey),
		},
		Catalog: domain.CatalogSettings{
			ClientID:     s.configStore.GetString(keyCatalogClientID),
			ClientSecret: s.configStore.GetString(keyCatalogSecret),
			RefreshToken: s.configStore.GetString(keyCatalogRefresh),
		},
	}

	return settings, nil
}

// Save persists application settings.
// Empty secrets are not written, so a stored key is never cleared by accident.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyResultCount, settings.Search.ResultCount},
		{keyChunkSize, settings.Search.ChunkSize},
		{keyThreshold, settings.Search.SimilarityThreshold},
		{keyUseReasoning, settings.Search.UseReasoning},
		{keyEnrichmentWorkers, settings.Search.MaxEnrichmentWorkers},
		{keyReasoningWorkers, settings.Search.MaxReasoningWorkers},
		{keyInstantMatch, settings.Search.InstantMatch},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLyricsDisabled, settings.Lyrics.Disabled},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key   string
		value string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyLyricsToken, settings.Lyrics.AccessToken},
		{keyWebSearchAPIKey, settings.WebSearch.APIKey},
		{keyCatalogClientID, settings.Catalog.ClientID},
		{keyCatalogSecret, settings.Catalog.ClientSecret},
		{keyCatalogRefresh, settings.Catalog.RefreshToken},
	}
	for _, v := range secrets {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// SetSearchSettings validates and stores search settings.
func (s *SettingsService) SetSearchSettings(search domain.SearchSettings) error {
	if err := s.validate.Struct(search); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, describeValidation(err))
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Search = search
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = providerBaseURL(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = providerBaseURL(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings can answer a search: the search
// settings must be in range and at least one of the LLM (reduction) or
// embedding (vector retrieval) providers must be configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := s.validate.Struct(settings.Search); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, describeValidation(err))
	}

	if !settings.LLM.IsConfigured() && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: configure an LLM or embedding provider", domain.ErrLLMUnavailable)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat accepts TOML floats and integers ("threshold = 1").
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// providerBaseURL keeps a configured local endpoint and clears it for cloud providers.
func providerBaseURL(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// describeValidation renders validator errors as "Field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return msg
}
