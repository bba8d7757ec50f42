package domain

import (
	"fmt"
	"strings"
)

// Default search options.
const (
	DefaultResultCount         = 10
	DefaultChunkSize           = 100
	DefaultSimilarityThreshold = 0.5
)

// SearchOptions are the per-query parameters of a library search.
type SearchOptions struct {
	// ResultCount is the number of items to return.
	ResultCount int `json:"result_count" validate:"min=1"`

	// ChunkSize is the number of items sent to the model per reduction call.
	ChunkSize int `json:"chunk_size" validate:"min=1"`

	// SimilarityThreshold is the minimum vector similarity for a match.
	SimilarityThreshold float64 `json:"similarity_threshold" validate:"gte=0,lte=1"`

	// UseReasoning asks the model for per-item justifications.
	UseReasoning bool `json:"use_reasoning"`
}

// DefaultSearchOptions returns the options used when none are configured.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		ResultCount:         DefaultResultCount,
		ChunkSize:           DefaultChunkSize,
		SimilarityThreshold: DefaultSimilarityThreshold,
		UseReasoning:        true,
	}
}

// Validate checks the option ranges.
func (o SearchOptions) Validate() error {
	if o.ResultCount < 1 {
		return fmt.Errorf("%w: result count must be at least 1", ErrInvalidInput)
	}
	if o.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be at least 1", ErrInvalidInput)
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold must be within [0,1]", ErrInvalidInput)
	}
	return nil
}

// Query is a natural-language search request over the library.
type Query struct {
	// Text is the user's free-text query.
	Text string `json:"text"`

	// Options holds the search parameters.
	Options SearchOptions `json:"options"`
}

// NewQuery creates a query with default options.
func NewQuery(text string) Query {
	return Query{Text: text, Options: DefaultSearchOptions()}
}

// Validate checks the query text and options.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text is empty", ErrInvalidInput)
	}
	return q.Options.Validate()
}
