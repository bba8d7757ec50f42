package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Ensure SearchService implements the interfaces.
var (
	_ driving.SearchService  = (*SearchService)(nil)
	_ driving.LibraryService = (*SearchService)(nil)
)

// SearchService answers queries over the stored library. It tries an instant
// lyric match, then vector retrieval, and falls back to the reduction engine
// over the whole library when retrieval finds nothing.
type SearchService struct {
	store     driven.ItemStore
	vector    *VectorEngine
	reduction *ReductionEngine
	instant   *InstantMatcher

	// Instant matches are not stored, so Item serves them from here.
	mu          sync.Mutex
	instantHits map[string]domain.EnrichedItem
	instantIDs  []string
}

// maxInstantHits bounds how many instant matches Item can still resolve.
const maxInstantHits = 32

// NewSearchService creates a new search service.
// The vector and reduction parameters are optional (can be nil), but at
// least one is needed to answer queries.
func NewSearchService(store driven.ItemStore, vector *VectorEngine, reduction *ReductionEngine) *SearchService {
	return &SearchService{
		store:     store,
		vector:    vector,
		reduction: reduction,
	}
}

// SetInstantMatcher enables the instant lyric match before library search.
func (s *SearchService) SetInstantMatcher(m *InstantMatcher) {
	s.instant = m
}

// Search ranks the library against query.
func (s *SearchService) Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error) {
	logger.Section("Library Search")
	logger.Debug("Query: %q", query.Text)

	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if s.vector == nil && s.reduction == nil {
		return nil, fmt.Errorf("search: %w", domain.ErrLLMUnavailable)
	}

	result := &domain.SearchResult{
		ID:    uuid.NewString(),
		Query: query,
		Items: []domain.EnrichedItem{},
	}
	logger.Debug("Search %s: vector=%t, reduction=%t, instant=%t",
		result.ID, s.vector != nil, s.reduction != nil, s.instant != nil)

	if s.instant != nil {
		item, usage := s.instant.Match(ctx, query.Text)
		result.Usage = result.Usage.Add(usage)
		if item != nil {
			s.rememberInstant(*item)
			result.Items = []domain.EnrichedItem{*item}
			result.Strategy = domain.StrategyInstant
			return result, nil
		}
	}

	var vectorErr error
	if s.vector != nil {
		items, usage, err := s.vector.Search(ctx, query, nil)
		result.Usage = result.Usage.Add(usage)
		result.Strategy = domain.StrategyVector
		switch {
		case err != nil:
			logger.Warn("Vector search failed: %v", err)
			vectorErr = err
		default:
			kept := withoutExcluded(items)
			if len(kept) > 0 {
				result.Items = kept
				return result, nil
			}
			logger.Debug("Vector search found no match above %.2f", query.Options.SimilarityThreshold)
		}
	}

	library, err := s.library(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if s.reduction == nil || len(library) == 0 {
		if vectorErr != nil {
			return nil, fmt.Errorf("search: %w", vectorErr)
		}
		if s.reduction != nil {
			result.Strategy = domain.StrategyReduction
		}
		logger.Info("Search %s returned no items", result.ID)
		return result, nil
	}

	ranked, usage, err := s.reduction.Search(ctx, library, query)
	result.Usage = result.Usage.Add(usage)
	if err != nil {
		logger.Warn("Reduction search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	result.Items = ranked
	result.Strategy = domain.StrategyReduction
	result.FellBack = s.vector != nil

	logger.Info("Search %s returned %d items via %s (%d tokens)",
		result.ID, len(result.Items), result.Strategy, result.Usage.Total())
	return result, nil
}

// Count returns the number of stored items.
func (s *SearchService) Count(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.Count(ctx)
}

// Item returns the stored item with id. Recent instant matches resolve too,
// although they never enter the store.
func (s *SearchService) Item(ctx context.Context, id string) (*domain.EnrichedItem, error) {
	if item, ok := s.instantHit(id); ok {
		return &item, nil
	}
	if s.store == nil {
		return nil, domain.ErrNoLibrary
	}
	records, err := s.store.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	item := records[0].Item()
	return &item, nil
}

func (s *SearchService) rememberInstant(item domain.EnrichedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.instantHits == nil {
		s.instantHits = make(map[string]domain.EnrichedItem)
	}
	if _, seen := s.instantHits[item.ID]; !seen {
		s.instantIDs = append(s.instantIDs, item.ID)
	}
	s.instantHits[item.ID] = item.Clone()

	for len(s.instantIDs) > maxInstantHits {
		delete(s.instantHits, s.instantIDs[0])
		s.instantIDs = s.instantIDs[1:]
	}
}

func (s *SearchService) instantHit(id string) (domain.EnrichedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.instantHits[id]
	if !ok {
		return domain.EnrichedItem{}, false
	}
	return item.Clone(), true
}

// library loads every stored item as the reduction fallback library.
func (s *SearchService) library(ctx context.Context) ([]domain.EnrichedItem, error) {
	if s.store == nil {
		return nil, nil
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	items := make([]domain.EnrichedItem, len(records))
	for i, r := range records {
		items[i] = r.Item()
	}
	return items, nil
}

func withoutExcluded(items []domain.EnrichedItem) []domain.EnrichedItem {
	kept := make([]domain.EnrichedItem, 0, len(items))
	for _, item := range items {
		if !item.Excluded {
			kept = append(kept, item)
		}
	}
	return kept
}
