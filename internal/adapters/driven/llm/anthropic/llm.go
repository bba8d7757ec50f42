// Package anthropic provides a text-completion client using the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.TextCompletionClient = (*Client)(nil)

const providerName = "anthropic"

// Default configuration values.
const (
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL overrides the API endpoint (default: the SDK's endpoint).
	BaseURL string

	// Model is the model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds each request (default: 60s).
	Timeout time.Duration
}

// Client sends prompts to Anthropic models.
type Client struct {
	client *anthropic.Client
	model  string
}

// NewClient creates a new Anthropic client.
// Requests are not retried; failures surface to the caller immediately.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)
	return &Client{client: &client, model: cfg.Model}, nil
}

// Generate sends the conversation as alternating user turns and returns the
// text blocks of the reply.
func (c *Client) Generate(
	ctx context.Context, turns [][]driven.ContentBlock, opts driven.GenerateOptions,
) (*driven.Completion, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn))
		for _, b := range turn {
			blocks = append(blocks, anthropic.NewTextBlock(b.Text))
		}
		messages = append(messages, anthropic.NewUserMessage(blocks...))
	}

	// Anthropic requires max_tokens to be set
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "generate", classify(err))
	}

	completion := &driven.Completion{
		Usage: domain.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			RequestCount: 1,
		},
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			completion.Blocks = append(completion.Blocks, driven.ContentBlock{Text: block.AsText().Text})
		}
	}
	return completion, nil
}

// ModelName returns the name of the model being used.
func (c *Client) ModelName() string {
	return c.model
}

// Ping lists models, which validates the API key without running inference.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return domain.NewProviderError(providerName, "ping", classify(err))
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// classify marks rate-limit responses so callers can tell them apart.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return err
}
