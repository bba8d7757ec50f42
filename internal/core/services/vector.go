package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// VectorEngine retrieves the stored items nearest to a query embedding.
type VectorEngine struct {
	embedder driven.Embedder
	store    driven.ItemStore
	reasoner *ReasoningGenerator
}

// NewVectorEngine creates a vector engine.
func NewVectorEngine(embedder driven.Embedder, store driven.ItemStore) *VectorEngine {
	return &VectorEngine{embedder: embedder, store: store}
}

// SetReasoner enables per-item explanations for queries with UseReasoning set.
func (e *VectorEngine) SetReasoner(reasoner *ReasoningGenerator) {
	e.reasoner = reasoner
}

// Search returns up to query.Options.ResultCount stored items whose similarity
// to query.Text is at least query.Options.SimilarityThreshold, best first.
// scope optionally restricts matches to the given ids.
//
// The threshold is never relaxed: no match returns an empty list and the
// caller decides whether to fall back. A store failure returns the embedding
// usage with the error.
func (e *VectorEngine) Search(
	ctx context.Context, query domain.Query, scope []string,
) ([]domain.EnrichedItem, domain.TokenUsage, error) {
	var usage domain.TokenUsage

	if e.embedder == nil {
		return nil, usage, domain.ErrEmbeddingUnavailable
	}
	if e.store == nil {
		return nil, usage, domain.ErrNoLibrary
	}
	if err := query.Validate(); err != nil {
		return nil, usage, err
	}

	logger.Section("Vector Search")
	logger.Debug("Threshold: %.2f, count: %d", query.Options.SimilarityThreshold, query.Options.ResultCount)

	emb, err := e.embedder.Embed(ctx, query.Text)
	if err != nil {
		return nil, usage, fmt.Errorf("embed query: %w", err)
	}
	usage = usage.Add(emb.Usage)

	matches, err := e.store.NearestNeighbors(ctx, domain.NeighborQuery{
		Vector:    emb.Vector,
		Threshold: query.Options.SimilarityThreshold,
		Count:     query.Options.ResultCount,
		Scope:     scope,
	})
	if err != nil {
		return nil, usage, fmt.Errorf("nearest neighbors: %w", err)
	}

	logger.Debug("Neighbors above threshold: %d", len(matches))
	if len(matches) == 0 {
		return []domain.EnrichedItem{}, usage, nil
	}

	items := make([]domain.EnrichedItem, len(matches))
	scores := make([]float64, len(matches))
	for i, m := range matches {
		items[i] = m.Record.Item()
		items[i].Reasoning = similarityReason(m.Similarity)
		scores[i] = m.Similarity
	}

	if query.Options.UseReasoning && e.reasoner != nil {
		explained, u := e.reasoner.ExplainMany(ctx, items, query.Text, scores)
		usage = usage.Add(u)
		items = explained
	}

	return items, usage, nil
}

// similarityReason is the reasoning attached to a plain vector match.
func similarityReason(score float64) string {
	return fmt.Sprintf("Similar to your search (similarity %.2f)", score)
}
