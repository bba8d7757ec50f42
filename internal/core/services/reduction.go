package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Response budget of a reduction call.
const (
	reductionMinTokens       = 1000
	reductionTokensPerID     = 15
	reductionTokensPerReason = 60
)

// librarySearchPrompt holds the fields of the library_search template.
type librarySearchPrompt struct {
	Library     string
	Query       string
	Count       int
	WithReasons bool
}

// ReductionEngine narrows an arbitrarily large item set to the best matches
// for a query by asking the language model to pick from bounded chunks.
type ReductionEngine struct {
	llm     driven.TextCompletionClient
	prompts promptRenderer
}

// NewReductionEngine creates a reduction engine.
func NewReductionEngine(llm driven.TextCompletionClient) *ReductionEngine {
	return &ReductionEngine{llm: llm}
}

// SetPromptStore sets the store for user-edited prompt templates.
func (e *ReductionEngine) SetPromptStore(store driven.PromptStore) {
	e.prompts = promptRenderer{store: store}
}

// Search ranks items against query in two phases. Every chunk of
// query.Options.ChunkSize items is reduced independently; if the combined
// picks exceed the result count they are reduced once more.
//
// Ids the model invents are dropped. A failed model call fails the search and
// the usage spent so far is returned alongside the error.
func (e *ReductionEngine) Search(
	ctx context.Context, items []domain.EnrichedItem, query domain.Query,
) ([]domain.EnrichedItem, domain.TokenUsage, error) {
	var usage domain.TokenUsage

	if e.llm == nil {
		return nil, usage, domain.ErrLLMUnavailable
	}
	if err := query.Validate(); err != nil {
		return nil, usage, err
	}

	logger.Section("Reduction Search")
	chunks := chunkItems(items, query.Options.ChunkSize)
	logger.Debug("Items: %d, chunk size: %d, chunks: %d", len(items), query.Options.ChunkSize, len(chunks))

	var filtered []domain.EnrichedItem
	for i, chunk := range chunks {
		picked, u, err := e.recursiveSearch(ctx, chunk, query)
		usage = usage.Add(u)
		if err != nil {
			return nil, usage, fmt.Errorf("reduce chunk %d/%d: %w", i+1, len(chunks), err)
		}
		logger.Debug("Chunk %d/%d: %d of %d items kept", i+1, len(chunks), len(picked), len(chunk))
		filtered = append(filtered, picked...)
	}

	if len(filtered) > query.Options.ResultCount {
		logger.Debug("Final pass over %d candidates", len(filtered))
		final, u, err := e.recursiveSearch(ctx, filtered, query)
		usage = usage.Add(u)
		if err != nil {
			return nil, usage, fmt.Errorf("reduce final pass: %w", err)
		}
		filtered = final
	}

	if len(filtered) > query.Options.ResultCount {
		filtered = filtered[:query.Options.ResultCount]
	}

	logger.Info("Reduction returned %d items (%d requests, %d tokens)",
		len(filtered), usage.RequestCount, usage.Total())
	return filtered, usage, nil
}

// recursiveSearch runs one reduction call over sublibrary and returns the
// picked items in the model's order.
func (e *ReductionEngine) recursiveSearch(
	ctx context.Context, sublibrary []domain.EnrichedItem, query domain.Query,
) ([]domain.EnrichedItem, domain.TokenUsage, error) {
	opts := query.Options
	prompt, err := e.prompts.render(driven.PromptLibrarySearch, librarySearchPrompt{
		Library:     renderLibrary(sublibrary),
		Query:       query.Text,
		Count:       opts.ResultCount,
		WithReasons: opts.UseReasoning,
	})
	if err != nil {
		return nil, domain.TokenUsage{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := e.llm.Generate(ctx, driven.Prompt(prompt), driven.GenerateOptions{
		MaxTokens: reductionMaxTokens(opts.ResultCount, opts.UseReasoning),
	})
	if err != nil {
		return nil, domain.TokenUsage{}, err
	}

	byID := make(map[string]domain.EnrichedItem, len(sublibrary))
	for _, item := range sublibrary {
		if _, ok := byID[item.ID]; !ok {
			byID[item.ID] = item
		}
	}

	picked := make([]domain.EnrichedItem, 0, opts.ResultCount)
	seen := make(map[string]bool)
	for _, sel := range parseSelections(resp.Text()) {
		item, ok := byID[sel.id]
		if !ok {
			logger.Warn("Dropping id %q: not in the candidate set", sel.id)
			continue
		}
		if seen[sel.id] {
			continue
		}
		seen[sel.id] = true

		c := item.Clone()
		if opts.UseReasoning && sel.reason != "" {
			c.Reasoning = sel.reason
		}
		picked = append(picked, c)
	}

	return picked, resp.Usage, nil
}

// chunkItems partitions items into consecutive slices of at most size items.
func chunkItems(items []domain.EnrichedItem, size int) [][]domain.EnrichedItem {
	if size < 1 {
		size = 1
	}
	chunks := make([][]domain.EnrichedItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// renderLibrary serialises items into the prompt's library block.
func renderLibrary(items []domain.EnrichedItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.String())
	}
	return b.String()
}

func reductionMaxTokens(count int, withReasons bool) int {
	per := reductionTokensPerID
	if withReasons {
		per += reductionTokensPerReason
	}
	return max(reductionMinTokens, count*per)
}
