package driven

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// Embedder converts text to a fixed-length vector.
type Embedder interface {
	// Embed generates an embedding for a single text.
	// Failures are returned as *domain.ProviderError and are not retried.
	Embed(ctx context.Context, text string) (*Embedding, error)

	// Dimensions returns the embedding vector size, or 0 when the model's
	// size is unknown.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable and credentials are valid.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Embedding is an embedding vector and the tokens spent computing it.
type Embedding struct {
	Vector []float32

	// Usage carries input tokens and a request count; output tokens are zero.
	Usage domain.TokenUsage
}
