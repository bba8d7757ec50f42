package driving

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// EnrichmentResult is one completed item from an enrichment run.
type EnrichmentResult struct {
	// Item is the enriched item; fields whose provider failed are empty.
	Item domain.EnrichedItem

	// Usage is the tokens spent on this item.
	Usage domain.TokenUsage

	// PersistErr is set if the item could not be written to the store.
	PersistErr error
}

// SyncReport summarises a library sync.
type SyncReport struct {
	// RunID identifies the sync in logs.
	RunID string

	// Items are all enriched items in catalog order.
	Items []domain.EnrichedItem

	// Cached is the number of items served from the store.
	Cached int

	// Enriched is the number of items enriched during this run.
	Enriched int

	// PersistFailures is the number of enriched items that failed to persist.
	PersistFailures int

	// Usage sums the tokens spent enriching.
	Usage domain.TokenUsage
}

// ProgressFunc receives each item as it completes; done counts completed
// items out of total.
type ProgressFunc func(result EnrichmentResult, done, total int)

// EnrichmentService turns raw catalog items into stored, searchable items.
type EnrichmentService interface {
	// Enrich enriches every item concurrently and streams each result as it
	// completes. The channel is closed after the last item. Every item is
	// upserted to the store before it is sent.
	Enrich(ctx context.Context, items []domain.RawItem) <-chan EnrichmentResult

	// Reconcile splits items into those already enriched in the store and
	// those that still need enrichment.
	Reconcile(ctx context.Context, items []domain.RawItem) ([]domain.EnrichedItem, []domain.RawItem, error)

	// Sync reconciles items with the store and enriches the missing ones.
	// source names the catalog in the sync history. progress may be nil.
	Sync(ctx context.Context, source string, items []domain.RawItem, progress ProgressFunc) (*SyncReport, error)

	// History returns up to limit recorded syncs, newest first.
	History(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
