package driven

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// TextCompletionClient is a stateless request/response interface to a
// language model. Implementations exist per provider and are selected by the
// AI factory from configuration.
type TextCompletionClient interface {
	// Generate sends the conversation turns and returns the model's content
	// blocks with token usage. Each turn is a list of content blocks; a single
	// user prompt is one turn holding one text block.
	// Failures are returned as *domain.ProviderError and are not retried.
	Generate(ctx context.Context, turns [][]ContentBlock, opts GenerateOptions) (*Completion, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable and credentials are valid.
	// This is a lightweight check that should not consume significant resources.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ContentBlock is one piece of a conversation turn.
type ContentBlock struct {
	// Text is the block's text content.
	Text string
}

// GenerateOptions configures completion generation.
type GenerateOptions struct {
	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-1.0). Zero uses the provider default.
	Temperature float64
}

// Completion is a model response.
type Completion struct {
	// Blocks are the response content blocks.
	Blocks []ContentBlock

	// Usage reports the tokens consumed by this request.
	Usage domain.TokenUsage
}

// Text returns the first content block's text, or "" if the model returned nothing.
func (c *Completion) Text() string {
	if c == nil || len(c.Blocks) == 0 {
		return ""
	}
	return c.Blocks[0].Text
}

// Prompt wraps a single user prompt as a one-turn conversation.
func Prompt(text string) [][]ContentBlock {
	return [][]ContentBlock{{{Text: text}}}
}
