package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// --- Mock implementations ---

// stubUsage is the usage every successful mock model call reports.
var stubUsage = domain.TokenUsage{InputTokens: 10, OutputTokens: 5, RequestCount: 1}

var errProvider = domain.NewProviderError("mock", "generate", errors.New("boom"))

// mockLLM implements driven.TextCompletionClient, answering each prompt with respond.
type mockLLM struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	prompts []string
	opts    []driven.GenerateOptions
}

func newMockLLM(respond func(prompt string) (string, error)) *mockLLM {
	return &mockLLM{respond: respond}
}

func (m *mockLLM) Generate(
	_ context.Context, turns [][]driven.ContentBlock, opts driven.GenerateOptions,
) (*driven.Completion, error) {
	prompt := turns[0][0].Text
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	text, err := m.respond(prompt)
	if err != nil {
		return nil, err
	}
	return &driven.Completion{Blocks: []driven.ContentBlock{{Text: text}}, Usage: stubUsage}, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) recordedPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// embedUsage is the usage every successful mock embedding reports.
var embedUsage = domain.TokenUsage{InputTokens: 3, RequestCount: 1}

// mockEmbedder implements driven.Embedder.
type mockEmbedder struct {
	mu     sync.Mutex
	vector func(text string) ([]float32, error)
	texts  []string

	// dims overrides the reported size; -1 reports an unknown size.
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (*driven.Embedding, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	vec, err := m.vector(text)
	if err != nil {
		return nil, err
	}
	return &driven.Embedding{Vector: vec, Usage: embedUsage}, nil
}

func (m *mockEmbedder) Dimensions() int {
	switch {
	case m.dims < 0:
		return 0
	case m.dims > 0:
		return m.dims
	default:
		return 2
	}
}

func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func fixedVector(vec ...float32) func(string) ([]float32, error) {
	return func(string) ([]float32, error) { return vec, nil }
}

// mockLyrics implements driven.LyricsProvider.
type mockLyrics struct {
	mu        sync.Mutex
	lyrics    func(title string) (string, error)
	hits      map[string][]driven.LyricsHit
	byID      map[string]string
	searches  []string
	fetchedID []string
	tracker   *concurrencyTracker
}

func (m *mockLyrics) Lyrics(_ context.Context, title string, _ []string) (string, error) {
	if m.tracker != nil {
		m.tracker.enter()
		defer m.tracker.leave()
	}
	if m.lyrics == nil {
		return "", domain.ErrNotFound
	}
	return m.lyrics(title)
}

func (m *mockLyrics) Search(_ context.Context, text string, limit int) ([]driven.LyricsHit, error) {
	m.mu.Lock()
	m.searches = append(m.searches, text)
	m.mu.Unlock()
	hits := m.hits[text]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockLyrics) LyricsByID(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	m.fetchedID = append(m.fetchedID, id)
	m.mu.Unlock()
	text, ok := m.byID[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

// mockWeb implements driven.WebSearcher.
type mockWeb struct {
	docs    []driven.WebDocument
	err     error
	queries []string
	mu      sync.Mutex
}

func (m *mockWeb) Search(_ context.Context, query string, count int) ([]driven.WebDocument, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(m.docs) > count {
		return m.docs[:count], nil
	}
	return m.docs, nil
}

// failingItemStore implements driven.ItemStore with configurable failures.
type failingItemStore struct {
	getErr    error
	upsertErr error
	nearErr   error
	listErr   error
}

func (f *failingItemStore) GetByIDs(_ context.Context, _ []string) ([]domain.ItemRecord, error) {
	return nil, f.getErr
}

func (f *failingItemStore) Upsert(_ context.Context, _ []domain.ItemRecord) error {
	return f.upsertErr
}

func (f *failingItemStore) NearestNeighbors(_ context.Context, _ domain.NeighborQuery) ([]domain.ScoredRecord, error) {
	return nil, f.nearErr
}

func (f *failingItemStore) List(_ context.Context) ([]domain.ItemRecord, error) {
	return nil, f.listErr
}

func (f *failingItemStore) Count(_ context.Context) (int, error) {
	return 0, nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// concurrencyTracker records the peak number of concurrent callers.
type concurrencyTracker struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (c *concurrencyTracker) enter() {
	c.mu.Lock()
	c.current++
	if c.current > c.peak {
		c.peak = c.current
	}
	c.mu.Unlock()
}

func (c *concurrencyTracker) leave() {
	c.mu.Lock()
	c.current--
	c.mu.Unlock()
}

func (c *concurrencyTracker) max() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// --- Helpers ---

var promptIDPattern = regexp.MustCompile(`(?m)^ID: (.*)$`)

// promptIDs returns the item ids serialised into a prompt, in order.
func promptIDs(prompt string) []string {
	var ids []string
	for _, m := range promptIDPattern.FindAllStringSubmatch(prompt, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// songTags answers with a song_id tag for each id.
func songTags(ids ...string) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString("<song_id>" + id + "</song_id>\n")
	}
	return b.String()
}

func testItems(ids ...string) []domain.EnrichedItem {
	items := make([]domain.EnrichedItem, len(ids))
	for i, id := range ids {
		items[i] = domain.EnrichedItem{
			RawItem: domain.RawItem{
				ID:           id,
				Title:        "Song " + id,
				Contributors: []string{"Artist " + id},
				Collection:   "Album " + id,
			},
			DescriptiveText: "lyrics of " + id,
		}
	}
	return items
}

func testRawItems(ids ...string) []domain.RawItem {
	raws := make([]domain.RawItem, len(ids))
	for i, id := range ids {
		raws[i] = domain.RawItem{ID: id, Title: "Song " + id, Contributors: []string{"Artist " + id}}
	}
	return raws
}

func testQuery(text string, count, chunk int, reasoning bool) domain.Query {
	return domain.Query{
		Text: text,
		Options: domain.SearchOptions{
			ResultCount:         count,
			ChunkSize:           chunk,
			SimilarityThreshold: domain.DefaultSimilarityThreshold,
			UseReasoning:        reasoning,
		},
	}
}
