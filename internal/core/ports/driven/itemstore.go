package driven

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// ItemStore persists enriched items keyed by id.
// Upserts are idempotent: writing a record twice leaves one record with the
// latest content. All methods are safe for concurrent use.
type ItemStore interface {
	// GetByIDs returns the records that exist for ids. Missing ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]domain.ItemRecord, error)

	// Upsert inserts or overwrites records by id.
	Upsert(ctx context.Context, records []domain.ItemRecord) error

	// NearestNeighbors returns up to query.Count records whose embedding
	// similarity to query.Vector is at least query.Threshold, best first.
	NearestNeighbors(ctx context.Context, query domain.NeighborQuery) ([]domain.ScoredRecord, error)

	// List returns every stored record in id order.
	List(ctx context.Context) ([]domain.ItemRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
