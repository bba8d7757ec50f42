package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore is an in-memory implementation of driven.ItemStore.
type ItemStore struct {
	mu      sync.RWMutex
	records map[string]domain.ItemRecord
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		records: make(map[string]domain.ItemRecord),
	}
}

// GetByIDs returns the stored records for ids, skipping missing ones.
func (s *ItemStore) GetByIDs(_ context.Context, ids []string) ([]domain.ItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ItemRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

// Upsert inserts or overwrites records by id. Rewriting unchanged content
// keeps the stored UpdatedAt.
func (s *ItemStore) Upsert(_ context.Context, records []domain.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			return domain.ErrInvalidInput
		}
	}
	for _, r := range records {
		if prev, ok := s.records[r.ID]; ok && prev.SameContent(r) {
			r.UpdatedAt = prev.UpdatedAt
		}
		s.records[r.ID] = copyRecord(r)
	}
	return nil
}

// NearestNeighbors ranks every stored embedding against the query vector.
func (s *ItemStore) NearestNeighbors(ctx context.Context, query domain.NeighborQuery) ([]domain.ScoredRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.RankNeighbors(records, query), nil
}

// List returns all records in id order.
func (s *ItemStore) List(_ context.Context) ([]domain.ItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ItemRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of stored records.
func (s *ItemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func copyRecord(r domain.ItemRecord) domain.ItemRecord {
	if r.Embedding != nil {
		r.Embedding = append([]float32(nil), r.Embedding...)
	}
	return r
}
