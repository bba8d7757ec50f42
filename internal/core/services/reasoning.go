package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

const (
	reasoningMaxTokens = 150
	fallbackReasoning  = "Relevant to your search"
)

// matchReasoningPrompt holds the fields of the match_reasoning template.
type matchReasoningPrompt struct {
	Query         string
	Item          string
	HasSimilarity bool
	Similarity    float64
}

// ReasoningGenerator explains, item by item, why ranked items match a query
// and flags the ones that do not fit.
type ReasoningGenerator struct {
	llm     driven.TextCompletionClient
	workers int
	prompts promptRenderer
}

// NewReasoningGenerator creates a reasoning generator running at most
// workers model calls at once.
func NewReasoningGenerator(llm driven.TextCompletionClient, workers int) *ReasoningGenerator {
	if workers < 1 {
		workers = domain.DefaultReasoningWorkers
	}
	return &ReasoningGenerator{llm: llm, workers: workers}
}

// SetPromptStore sets the store for user-edited prompt templates.
func (g *ReasoningGenerator) SetPromptStore(store driven.PromptStore) {
	g.prompts = promptRenderer{store: store}
}

// ExplainMany returns copies of items, in input order, with Reasoning and
// Excluded set. scores, when non-nil, holds the similarity of each item by
// position.
//
// A failed call never affects other items: the item keeps a generic reason
// and contributes no tokens.
func (g *ReasoningGenerator) ExplainMany(
	ctx context.Context, items []domain.EnrichedItem, queryText string, scores []float64,
) ([]domain.EnrichedItem, domain.TokenUsage) {
	out := make([]domain.EnrichedItem, len(items))
	if len(items) == 0 {
		return out, domain.TokenUsage{}
	}

	logger.Debug("Generating reasoning for %d items", len(items))

	var meter domain.UsageMeter
	var group errgroup.Group
	group.SetLimit(domain.ClampWorkers(g.workers, 0, len(items)))

	for i := range items {
		score, hasScore := scoreAt(scores, i)
		group.Go(func() error {
			item, usage := g.explain(ctx, items[i], queryText, score, hasScore)
			meter.Record(usage)
			out[i] = item
			return nil
		})
	}
	_ = group.Wait()

	return out, meter.Total()
}

func (g *ReasoningGenerator) explain(
	ctx context.Context, item domain.EnrichedItem, queryText string, score float64, hasScore bool,
) (domain.EnrichedItem, domain.TokenUsage) {
	out := item.Clone()
	out.Reasoning = fallbackReason(score, hasScore)

	if g.llm == nil {
		return out, domain.TokenUsage{}
	}

	prompt, err := g.prompts.render(driven.PromptMatchReasoning, matchReasoningPrompt{
		Query:         queryText,
		Item:          item.String(),
		HasSimilarity: hasScore,
		Similarity:    score,
	})
	if err != nil {
		logger.Warn("Reasoning prompt for %s: %v", item.ID, err)
		return out, domain.TokenUsage{}
	}

	resp, err := g.llm.Generate(ctx, driven.Prompt(prompt), driven.GenerateOptions{MaxTokens: reasoningMaxTokens})
	if err != nil {
		logger.Warn("Reasoning for %s failed, using fallback: %v", item.ID, err)
		return out, domain.TokenUsage{}
	}

	v := parseVerdict(resp.Text())
	out.Excluded = v.exclude
	if v.reason != "" {
		out.Reasoning = v.reason
	}
	return out, resp.Usage
}

func scoreAt(scores []float64, i int) (float64, bool) {
	if i < len(scores) {
		return scores[i], true
	}
	return 0, false
}

func fallbackReason(score float64, hasScore bool) string {
	if !hasScore {
		return fallbackReasoning
	}
	return fmt.Sprintf("%s (similarity %.2f)", fallbackReasoning, score)
}
