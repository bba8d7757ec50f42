package ai

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

func TestConfigValidator(t *testing.T) {
	up := ollamaServer(t, http.StatusOK)
	down := ollamaServer(t, http.StatusUnauthorized)
	validator := NewConfigValidator()

	t.Run("nil configs have nothing to check", func(t *testing.T) {
		assert.NoError(t, validator.ValidateEmbedding(nil))
		assert.NoError(t, validator.ValidateLLM(nil))
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Model: "m"}))
		assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI}))
	})

	t.Run("reachable ollama", func(t *testing.T) {
		assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama, BaseURL: up.URL,
		}))
		assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{
			Provider: domain.AIProviderOllama, BaseURL: up.URL,
		}))
	})

	t.Run("failing ping", func(t *testing.T) {
		err := validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
		assert.ErrorIs(t, err, domain.ErrProviderFailure)
	})

	t.Run("unsupported embeddings", func(t *testing.T) {
		err := validator.ValidateEmbedding(&domain.EmbeddingSettings{
			Provider: domain.AIProviderAnthropic, APIKey: "k",
		})
		assert.ErrorIs(t, err, ErrEmbeddingsUnsupported)
	})
}
