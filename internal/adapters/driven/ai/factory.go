// Package ai selects and validates the language-model and embedding clients
// named in the application settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/sercha-music/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-music/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-music/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-music/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-music/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ErrEmbeddingsUnsupported is returned when a provider without an embedding
// API is configured for embeddings.
var ErrEmbeddingsUnsupported = errors.New("provider does not support embeddings, use ollama or openai")

// Clients holds the model clients a search or sync needs.
// Either client may be nil when its provider is not configured or unreachable.
type Clients struct {
	Completion driven.TextCompletionClient
	Embedder   driven.Embedder

	// Warnings lists non-fatal issues that left a client unset.
	Warnings []string
}

// Close releases all resources held by the clients.
func (c *Clients) Close() {
	if c.Completion != nil {
		_ = c.Completion.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// NewClients creates and validates both clients from settings.
// A client that fails creation or its ping is left nil and reported in
// Warnings; the search falls back to whichever engine remains.
func NewClients(settings *domain.AppSettings) *Clients {
	clients := &Clients{}

	completion, err := CreateAndValidateCompletionClient(&settings.LLM)
	if err != nil {
		clients.Warnings = append(clients.Warnings, err.Error())
	}
	clients.Completion = completion

	embedder, err := CreateAndValidateEmbedder(&settings.Embedding)
	if err != nil {
		clients.Warnings = append(clients.Warnings, err.Error())
	}
	clients.Embedder = embedder

	return clients
}

// pinger is the subset shared by both client kinds.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ping validates connectivity within pingTimeout.
func ping(svc pinger) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateAndValidateEmbedder creates an embedder and validates connectivity.
// Returns nil without error when embeddings are not configured.
func CreateAndValidateEmbedder(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	embedder, err := CreateEmbedder(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-music settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if embedder == nil {
		return nil, nil
	}

	if err := ping(embedder); err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-music settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return embedder, nil
}

// CreateAndValidateCompletionClient creates a completion client and validates connectivity.
// Returns nil without error when the LLM is not configured.
func CreateAndValidateCompletionClient(settings *domain.LLMSettings) (driven.TextCompletionClient, error) {
	client, err := CreateCompletionClient(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-music settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if client == nil {
		return nil, nil
	}

	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-music settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return client, nil
}

// CreateEmbedder creates the embedder named by settings.
// Returns nil if the provider is not configured.
func CreateEmbedder(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbedder(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		embedder, err := openaiembed.NewEmbedder(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return embedder, nil

	default:
		return nil, fmt.Errorf("%s: %w", settings.Provider, ErrEmbeddingsUnsupported)
	}
}

// CreateCompletionClient creates the completion client named by settings.
// Returns nil if the provider is not configured.
func CreateCompletionClient(settings *domain.LLMSettings) (driven.TextCompletionClient, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewClient(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		client, err := openaillm.NewClient(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	case domain.AIProviderAnthropic:
		client, err := anthropicllm.NewClient(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
