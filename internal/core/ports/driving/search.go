package driving

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// SearchService answers natural-language queries over the stored library.
type SearchService interface {
	// Search returns the ranked items matching query.
	// A failure of the whole search is returned as a retryable error.
	Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error)
}

// LibraryService reports on the stored library.
type LibraryService interface {
	// Count returns the number of enriched items in the library.
	Count(ctx context.Context) (int, error)

	// Item returns one stored item, or domain.ErrNotFound.
	Item(ctx context.Context, id string) (*domain.EnrichedItem, error)
}
