package ai

import (
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by creating a client and pinging it.
// Unconfigured settings are valid; there is nothing to check.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	embedder, err := CreateEmbedder(config)
	if err != nil || embedder == nil {
		return err
	}
	defer embedder.Close()
	return ping(embedder)
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	client, err := CreateCompletionClient(config)
	if err != nil || client == nil {
		return err
	}
	defer client.Close()
	return ping(client)
}
