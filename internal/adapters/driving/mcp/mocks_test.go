package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	result *domain.SearchResult
	err    error
	got    domain.Query
}

func (m *mockSearchService) Search(_ context.Context, query domain.Query) (*domain.SearchResult, error) {
	m.got = query
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.SearchResult{Query: query, Items: []domain.EnrichedItem{}}, nil
	}
	return m.result, nil
}

// mockLibraryService is a mock implementation of driving.LibraryService.
type mockLibraryService struct {
	count int
	items map[string]domain.EnrichedItem
	err   error
}

func (m *mockLibraryService) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

func (m *mockLibraryService) Item(_ context.Context, id string) (*domain.EnrichedItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}
