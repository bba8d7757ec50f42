// Package openai provides an embedder using the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"

	llmopenai "github.com/custodia-labs/sercha-music/internal/adapters/driven/llm/openai"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

const providerName = "openai"

// Default configuration values.
const (
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI embedder.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int
}

// Embedder generates embeddings using the OpenAI API.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
	shorten    bool
}

// NewEmbedder creates a new OpenAI embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	native := domain.EmbeddingDimensions()[cfg.Model]
	dims := cfg.Dimensions
	if dims == 0 {
		dims = native
	}

	return &Embedder{
		client:     openai.NewClient(llmopenai.RequestOptions(cfg.APIKey, cfg.BaseURL, cfg.Timeout)...),
		model:      cfg.Model,
		dimensions: dims,
		// Only text-embedding-3 models accept a dimensions parameter
		shorten: cfg.Dimensions > 0 && cfg.Dimensions != native && strings.HasPrefix(cfg.Model, "text-embedding-3"),
	}, nil
}

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) (*driven.Embedding, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.shorten {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "embed", llmopenai.Classify(err))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, domain.NewProviderError(providerName, "embed", fmt.Errorf("empty embedding for model %s", e.model))
	}

	// Convert float64 to float32
	raw := resp.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}

	return &driven.Embedding{
		Vector: vector,
		Usage:  domain.TokenUsage{InputTokens: int(resp.Usage.PromptTokens), RequestCount: 1},
	}, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the embedding model.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping lists models to validate the API key.
func (e *Embedder) Ping(ctx context.Context) error {
	if _, err := e.client.Models.List(ctx); err != nil {
		return domain.NewProviderError(providerName, "ping", llmopenai.Classify(err))
	}
	return nil
}

// Close releases resources.
func (e *Embedder) Close() error {
	return nil
}
