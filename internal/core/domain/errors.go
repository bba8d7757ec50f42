package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Providers return it for lookups that legitimately find nothing; callers
	// treat it as an empty result, never as a failure.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderFailure indicates an upstream provider (language model,
	// embedding service, lyrics or web search API) failed to answer.
	ErrProviderFailure = errors.New("provider failure")

	// ErrMissingCredentials indicates a provider was constructed without the
	// credentials it needs.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Reduction search, reasoning and enrichment summaries are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoLibrary indicates a search was requested but no enriched items exist.
	ErrNoLibrary = errors.New("library is empty")
)

// ProviderError describes a failed call to an upstream provider.
// errors.Is(err, ErrProviderFailure) reports true for every ProviderError.
type ProviderError struct {
	// Provider names the upstream service (e.g. "anthropic", "genius").
	Provider string

	// Op is the operation that failed (e.g. "generate", "embed").
	Op string

	// Err is the underlying cause.
	Err error
}

// NewProviderError wraps err as a failure of provider while performing op.
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, ErrProviderFailure)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProviderFailure.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailure
}

// IsNotFound reports whether err signals an empty, non-fatal lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
