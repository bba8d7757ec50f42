package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-music/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// failingConfigStore fails Set for one key, or for every key when failOn is empty.
type failingConfigStore struct {
	*memory.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if f.failOn == "" || key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

// mockAIConfigValidator implements driven.AIConfigValidator.
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSearchSettings(), settings.Search)
	assert.False(t, settings.LLM.IsConfigured())
	assert.False(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_Get_ReadsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("search.result_count", int64(5))
	_ = store.Set("search.chunk_size", 40)
	_ = store.Set("search.similarity_threshold", 0.75)
	_ = store.Set("search.use_reasoning", false)
	_ = store.Set("search.max_enrichment_workers", 8)
	_ = store.Set("search.instant_match", false)
	_ = store.Set("llm.provider", "anthropic")
	_ = store.Set("llm.api_key", "sk-ant")
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("lyrics.access_token", "genius-token")
	_ = store.Set("websearch.api_key", "brave-key")
	_ = store.Set("catalog.client_id", "id")
	_ = store.Set("catalog.client_secret", "secret")
	_ = store.Set("catalog.refresh_token", "refresh")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, 5, settings.Search.ResultCount)
	assert.Equal(t, 40, settings.Search.ChunkSize)
	assert.InDelta(t, 0.75, settings.Search.SimilarityThreshold, 1e-9)
	assert.False(t, settings.Search.UseReasoning)
	assert.Equal(t, 8, settings.Search.MaxEnrichmentWorkers)
	assert.Equal(t, domain.DefaultReasoningWorkers, settings.Search.MaxReasoningWorkers)
	assert.False(t, settings.Search.InstantMatch)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, "genius-token", settings.Lyrics.AccessToken)
	assert.True(t, settings.WebSearch.IsConfigured())
	assert.True(t, settings.Catalog.IsConfigured())
}

func TestSettingsService_Get_ThresholdAcceptsIntegers(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("search.similarity_threshold", int64(1))

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.InDelta(t, 1.0, settings.Search.SimilarityThreshold, 1e-9)
}

func TestSettingsService_Get_InvalidProviderUsesDefault(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.provider", "invalid_provider")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProvider(""), settings.LLM.Provider)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Search.ResultCount = 3
	settings.Search.SimilarityThreshold = 0.6
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: "http://localhost:11434"}
	settings.WebSearch.APIKey = "brave"

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.Search, got.Search)
	assert.Equal(t, settings.LLM, got.LLM)
	assert.Equal(t, "brave", got.WebSearch.APIKey)
}

func TestSettingsService_Save_KeepsStoredSecrets(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.api_key", "existing")
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing", store.GetString("llm.api_key"))
}

func TestSettingsService_Save_Errors(t *testing.T) {
	tests := []struct {
		failOn string
	}{
		{"search.result_count"},
		{"search.similarity_threshold"},
		{"embedding.provider"},
		{"llm.base_url"},
		{"llm.api_key"},
		{"websearch.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: tt.failOn}
			service := NewSettingsService(store, nil)

			settings := domain.DefaultAppSettings()
			settings.LLM.APIKey = "key"
			settings.WebSearch.APIKey = "key"

			err := service.Save(&settings)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.failOn)
		})
	}
}

func TestSettingsService_SetSearchSettings(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	search := domain.DefaultSearchSettings()
	search.ResultCount = 20
	search.ChunkSize = 50
	require.NoError(t, service.SetSearchSettings(search))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, search, got.Search)
}

func TestSettingsService_SetSearchSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.SearchSettings)
	}{
		{"zero result count", func(s *domain.SearchSettings) { s.ResultCount = 0 }},
		{"zero chunk size", func(s *domain.SearchSettings) { s.ChunkSize = 0 }},
		{"threshold above one", func(s *domain.SearchSettings) { s.SimilarityThreshold = 1.2 }},
		{"negative threshold", func(s *domain.SearchSettings) { s.SimilarityThreshold = -0.1 }},
		{"too many enrichment workers", func(s *domain.SearchSettings) { s.MaxEnrichmentWorkers = 51 }},
		{"no reasoning workers", func(s *domain.SearchSettings) { s.MaxReasoningWorkers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)
			search := domain.DefaultSearchSettings()
			tt.mutate(&search)

			err := service.SetSearchSettings(search)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))
	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", got.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", got.Embedding.BaseURL)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk"))
	got, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, got.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", got.Embedding.Model)
	assert.Empty(t, got.Embedding.BaseURL)
	assert.Equal(t, "sk", got.Embedding.APIKey)
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetEmbeddingProvider("bogus", "", ""))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key"))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.base_url", "http://gpu-box:11434")
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", got.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", got.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))
	got, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], got.LLM.Model)
	assert.Empty(t, got.LLM.BaseURL)
}

func TestSettingsService_SetLLMProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetLLMProvider("bogus", "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("no providers", func(t *testing.T) {
		err := NewSettingsService(memory.NewConfigStore(), nil).Validate()
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("llm only", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("llm.provider", "ollama")
		assert.NoError(t, NewSettingsService(store, nil).Validate())
	})

	t.Run("embedding only", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("embedding.provider", "openai")
		_ = store.Set("embedding.api_key", "sk")
		assert.NoError(t, NewSettingsService(store, nil).Validate())
	})

	t.Run("out of range search settings", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("llm.provider", "ollama")
		_ = store.Set("search.similarity_threshold", 3.0)
		assert.ErrorIs(t, NewSettingsService(store, nil).Validate(), domain.ErrInvalidInput)
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil).ValidateEmbeddingConfig())
	assert.NoError(t, NewSettingsService(store, nil).ValidateLLMConfig())

	ok := NewSettingsService(store, &mockAIConfigValidator{})
	assert.NoError(t, ok.ValidateEmbeddingConfig())
	assert.NoError(t, ok.ValidateLLMConfig())

	failing := NewSettingsService(store, &mockAIConfigValidator{embedErr: assert.AnError, llmErr: assert.AnError})
	assert.ErrorIs(t, failing.ValidateEmbeddingConfig(), assert.AnError)
	assert.ErrorIs(t, failing.ValidateLLMConfig(), assert.AnError)
}
