// Package openai provides a text-completion client using the OpenAI chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.TextCompletionClient = (*Client)(nil)

const providerName = "openai"

// Default configuration values.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL.
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Client sends prompts to OpenAI chat models.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a new OpenAI client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: openai.NewClient(RequestOptions(cfg.APIKey, cfg.BaseURL, cfg.Timeout)...),
		model:  cfg.Model,
	}, nil
}

// RequestOptions builds the SDK options shared by the chat and embedding clients.
// Retries are disabled so provider failures surface to the caller.
func RequestOptions(apiKey, baseURL string, timeout time.Duration) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

// Generate sends each turn as a user message and returns the first choice.
func (c *Client) Generate(
	ctx context.Context, turns [][]driven.ContentBlock, opts driven.GenerateOptions,
) (*driven.Completion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		for _, b := range turn {
			messages = append(messages, openai.UserMessage(b.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "generate", Classify(err))
	}

	completion := &driven.Completion{
		Usage: domain.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			RequestCount: 1,
		},
	}
	if len(resp.Choices) > 0 {
		completion.Blocks = []driven.ContentBlock{{Text: resp.Choices[0].Message.Content}}
	}
	return completion, nil
}

// ModelName returns the name of the model being used.
func (c *Client) ModelName() string {
	return c.model
}

// Ping lists models, which validates the API key without running inference.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return domain.NewProviderError(providerName, "ping", Classify(err))
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// Classify marks rate-limit responses so callers can tell them apart.
func Classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return err
}
