package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Ensure EnrichmentService implements the interface.
var _ driving.EnrichmentService = (*EnrichmentService)(nil)

const (
	backgroundMaxTokens = 400
	webBackgroundPages  = 3
)

// songBackgroundPrompt holds the fields of the song_background and
// web_background templates.
type songBackgroundPrompt struct {
	Title        string
	Contributors string
	Documents    []driven.WebDocument
}

// EnrichmentService turns raw catalog items into stored items with lyrics,
// background notes and an embedding.
type EnrichmentService struct {
	store    driven.ItemStore
	llm      driven.TextCompletionClient
	embedder driven.Embedder
	lyrics   driven.LyricsProvider
	web      driven.WebSearcher
	prompts  promptRenderer
	workers  int
	runs     driven.SyncRunStore
}

// NewEnrichmentService creates an enrichment service.
// The llm and embedder parameters are optional (can be nil); the matching
// fields are left empty.
func NewEnrichmentService(
	store driven.ItemStore,
	llm driven.TextCompletionClient,
	embedder driven.Embedder,
) *EnrichmentService {
	return &EnrichmentService{
		store:    store,
		llm:      llm,
		embedder: embedder,
		workers:  domain.DefaultEnrichmentWorkers,
	}
}

// SetLyricsProvider sets the source of item descriptive text.
func (s *EnrichmentService) SetLyricsProvider(lyrics driven.LyricsProvider) {
	s.lyrics = lyrics
}

// SetWebSearcher sets the fallback source for background notes.
func (s *EnrichmentService) SetWebSearcher(web driven.WebSearcher) {
	s.web = web
}

// SetPromptStore sets the store for user-edited prompt templates.
func (s *EnrichmentService) SetPromptStore(store driven.PromptStore) {
	s.prompts = promptRenderer{store: store}
}

// SetRunStore sets where finished syncs are recorded.
func (s *EnrichmentService) SetRunStore(runs driven.SyncRunStore) {
	s.runs = runs
}

// SetWorkers sets the enrichment pool size, capped at domain.MaxEnrichmentWorkers.
func (s *EnrichmentService) SetWorkers(workers int) {
	s.workers = workers
}

// Enrich enriches items concurrently and streams each result as soon as it
// is stored. Every item yields exactly one result; provider failures leave
// the affected field empty.
func (s *EnrichmentService) Enrich(ctx context.Context, items []domain.RawItem) <-chan driving.EnrichmentResult {
	out := make(chan driving.EnrichmentResult, len(items))

	go func() {
		defer close(out)

		var group errgroup.Group
		group.SetLimit(domain.ClampWorkers(s.workers, domain.MaxEnrichmentWorkers, len(items)))
		for _, raw := range items {
			group.Go(func() error {
				out <- s.enrichOne(ctx, raw)
				return nil
			})
		}
		_ = group.Wait()
	}()

	return out
}

// enrichOne runs the three enrichment steps for one item and upserts it.
func (s *EnrichmentService) enrichOne(ctx context.Context, raw domain.RawItem) driving.EnrichmentResult {
	result := driving.EnrichmentResult{Item: domain.EnrichedItem{RawItem: raw}}

	result.Item.DescriptiveText = s.fetchLyrics(ctx, raw)

	metadata, usage := s.background(ctx, raw)
	result.Item.Metadata = metadata
	result.Usage = usage

	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, result.Item.String())
		if err != nil {
			logger.Warn("Embedding %s failed: %v", raw.ID, err)
		} else {
			result.Item.Embedding = emb.Vector
			result.Usage = result.Usage.Add(emb.Usage)
		}
	}

	if s.store != nil {
		record := domain.NewItemRecord(result.Item)
		if err := s.store.Upsert(ctx, []domain.ItemRecord{record}); err != nil {
			logger.Warn("Persisting %s failed: %v", raw.ID, err)
			result.PersistErr = fmt.Errorf("persist %s: %w", raw.ID, err)
		}
	}

	logger.Debug("Enriched %s (lyrics=%t, metadata=%t, embedding=%t)",
		raw.ID, result.Item.DescriptiveText != "", result.Item.Metadata != "", result.Item.HasEmbedding())
	return result
}

func (s *EnrichmentService) fetchLyrics(ctx context.Context, raw domain.RawItem) string {
	if s.lyrics == nil {
		return ""
	}
	text, err := s.lyrics.Lyrics(ctx, raw.Title, raw.Contributors)
	if err != nil {
		if !domain.IsNotFound(err) {
			logger.Warn("Lyrics for %s failed: %v", raw.ID, err)
		}
		return ""
	}
	return text
}

// background asks the model for a background note, falling back to a note
// grounded on web search results.
func (s *EnrichmentService) background(ctx context.Context, raw domain.RawItem) (string, domain.TokenUsage) {
	var usage domain.TokenUsage
	if s.llm == nil {
		return "", usage
	}

	data := songBackgroundPrompt{Title: raw.Title, Contributors: raw.ContributorNames()}

	text, u, err := s.complete(ctx, driven.PromptSongBackground, data)
	usage = usage.Add(u)
	if err == nil && text != "" {
		return text, usage
	}
	if err != nil {
		logger.Warn("Background for %s failed: %v", raw.ID, err)
	}

	if s.web == nil {
		return "", usage
	}

	query := fmt.Sprintf("%s %s song background", raw.Title, raw.ContributorNames())
	docs, err := s.web.Search(ctx, query, webBackgroundPages)
	if err != nil || len(docs) == 0 {
		if err != nil {
			logger.Warn("Web search for %s failed: %v", raw.ID, err)
		}
		return "", usage
	}

	data.Documents = docs
	text, u, err = s.complete(ctx, driven.PromptWebBackground, data)
	usage = usage.Add(u)
	if err != nil {
		logger.Warn("Web background for %s failed: %v", raw.ID, err)
		return "", usage
	}
	return text, usage
}

func (s *EnrichmentService) complete(
	ctx context.Context, name string, data songBackgroundPrompt,
) (string, domain.TokenUsage, error) {
	prompt, err := s.prompts.render(name, data)
	if err != nil {
		return "", domain.TokenUsage{}, err
	}
	resp, err := s.llm.Generate(ctx, driven.Prompt(prompt), driven.GenerateOptions{MaxTokens: backgroundMaxTokens})
	if err != nil {
		return "", domain.TokenUsage{}, err
	}
	return strings.TrimSpace(resp.Text()), resp.Usage, nil
}

// Reconcile splits items into those already enriched in the store and those
// still missing. Duplicate ids keep their first occurrence and invalid items
// are skipped. Items embedded with a different vector size than the current
// embedder produces count as missing.
func (s *EnrichmentService) Reconcile(
	ctx context.Context, items []domain.RawItem,
) ([]domain.EnrichedItem, []domain.RawItem, error) {
	unique := uniqueRawItems(items)
	if s.store == nil || len(unique) == 0 {
		return []domain.EnrichedItem{}, unique, nil
	}

	ids := make([]string, len(unique))
	for i, raw := range unique {
		ids[i] = raw.ID
	}

	records, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: %w", err)
	}

	stored := make(map[string]domain.ItemRecord, len(records))
	for _, r := range records {
		stored[r.ID] = r
	}

	dims := 0
	if s.embedder != nil {
		dims = s.embedder.Dimensions()
	}

	cached := make([]domain.EnrichedItem, 0, len(records))
	missing := make([]domain.RawItem, 0, len(unique))
	stale := 0
	for _, raw := range unique {
		r, ok := stored[raw.ID]
		switch {
		case !ok || !r.IsEnriched():
			missing = append(missing, raw)
		case dims > 0 && len(r.Embedding) != dims:
			stale++
			missing = append(missing, raw)
		default:
			cached = append(cached, r.Item())
		}
	}
	if stale > 0 {
		logger.Info("%d stored items have %s embeddings of another size and will be re-embedded",
			stale, s.embedder.ModelName())
	}

	logger.Debug("Reconciled %d items: %d cached, %d missing", len(unique), len(cached), len(missing))
	return cached, missing, nil
}

// Sync reconciles items with the store, enriches the missing ones and
// returns every item in catalog order. The run is recorded in the history
// whether or not it completes.
func (s *EnrichmentService) Sync(
	ctx context.Context, source string, items []domain.RawItem, progress driving.ProgressFunc,
) (*driving.SyncReport, error) {
	report := &driving.SyncReport{RunID: uuid.NewString()}
	run := domain.SyncRun{ID: report.RunID, Source: source, StartedAt: time.Now()}
	logger.Section("Library Sync")
	logger.Debug("Run %s: %d catalog items from %s", report.RunID, len(items), source)

	unique := uniqueRawItems(items)
	run.Total = len(unique)
	cached, missing, err := s.Reconcile(ctx, unique)
	if err != nil {
		run.Error = err.Error()
		s.record(ctx, run)
		return nil, err
	}
	report.Cached = len(cached)
	report.Items = make([]domain.EnrichedItem, 0, len(unique))

	byID := make(map[string]domain.EnrichedItem, len(cached)+len(missing))
	for _, item := range cached {
		byID[item.ID] = item
	}

	done := 0
	for res := range s.Enrich(ctx, missing) {
		done++
		report.Enriched++
		report.Usage = report.Usage.Add(res.Usage)
		if res.PersistErr != nil {
			report.PersistFailures++
		}
		byID[res.Item.ID] = res.Item
		if progress != nil {
			progress(res, done, len(missing))
		}
	}

	for _, raw := range unique {
		if item, ok := byID[raw.ID]; ok {
			report.Items = append(report.Items, item)
		}
	}

	run.Cached = report.Cached
	run.Enriched = report.Enriched
	run.PersistFailures = report.PersistFailures
	run.Usage = report.Usage
	if ctx.Err() != nil {
		run.Error = ctx.Err().Error()
	}
	s.record(ctx, run)

	logger.Info("Sync %s: %d cached, %d enriched, %d persist failures",
		report.RunID, report.Cached, report.Enriched, report.PersistFailures)
	return report, nil
}

// record stores a finished run. History is best effort and never fails a sync.
func (s *EnrichmentService) record(ctx context.Context, run domain.SyncRun) {
	if s.runs == nil {
		return
	}
	run.FinishedAt = time.Now()
	if err := s.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to record sync %s: %v", run.ID, err)
	}
}

// History returns up to limit recorded syncs, newest first.
func (s *EnrichmentService) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	if limit < 1 {
		limit = domain.DefaultHistoryLimit
	}
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read sync history: %w", err)
	}
	return runs, nil
}

// uniqueRawItems drops invalid items and repeated ids, keeping order.
func uniqueRawItems(items []domain.RawItem) []domain.RawItem {
	seen := make(map[string]bool, len(items))
	out := make([]domain.RawItem, 0, len(items))
	for _, raw := range items {
		if err := raw.Validate(); err != nil {
			logger.Warn("Skipping invalid catalog item %q", raw.ID)
			continue
		}
		if seen[raw.ID] {
			continue
		}
		seen[raw.ID] = true
		out = append(out, raw)
	}
	return out
}
