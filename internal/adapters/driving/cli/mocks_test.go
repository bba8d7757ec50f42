package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
)

type mockSearchService struct {
	mu       sync.Mutex
	result   *domain.SearchResult
	err      error
	queries  []domain.Query
	onSearch func(ctx context.Context)
}

func (m *mockSearchService) Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.onSearch != nil {
		m.onSearch(ctx)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.SearchResult{Query: query, Strategy: domain.StrategyVector}, nil
	}
	res := *m.result
	res.Query = query
	return &res, nil
}

func (m *mockSearchService) lastQuery() domain.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

type mockLibraryService struct {
	count int
	items map[string]domain.EnrichedItem
}

func (m *mockLibraryService) Count(context.Context) (int, error) {
	return m.count, nil
}

func (m *mockLibraryService) Item(_ context.Context, id string) (*domain.EnrichedItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

type mockEnrichmentService struct {
	mu       sync.Mutex
	calls    [][]domain.RawItem
	results  []driving.EnrichmentResult
	cached   int
	err      error
	onSync   func(call int)
	failures int
	sources  []string
	history  []domain.SyncRun
	limits   []int
}

func (m *mockEnrichmentService) Enrich(_ context.Context, items []domain.RawItem) <-chan driving.EnrichmentResult {
	out := make(chan driving.EnrichmentResult, len(items))
	for _, raw := range items {
		out <- driving.EnrichmentResult{Item: domain.EnrichedItem{RawItem: raw}}
	}
	close(out)
	return out
}

func (m *mockEnrichmentService) Reconcile(
	_ context.Context, items []domain.RawItem,
) ([]domain.EnrichedItem, []domain.RawItem, error) {
	return nil, items, nil
}

func (m *mockEnrichmentService) Sync(
	_ context.Context, source string, items []domain.RawItem, progress driving.ProgressFunc,
) (*driving.SyncReport, error) {
	m.mu.Lock()
	m.calls = append(m.calls, items)
	m.sources = append(m.sources, source)
	call := len(m.calls)
	m.mu.Unlock()

	if m.onSync != nil {
		m.onSync(call)
	}
	if m.err != nil {
		return nil, m.err
	}

	results := m.results
	if results == nil {
		for _, raw := range items {
			results = append(results, driving.EnrichmentResult{
				Item: domain.EnrichedItem{RawItem: raw, Embedding: []float32{1}},
			})
		}
	}
	report := &driving.SyncReport{RunID: "run-1", Cached: m.cached, PersistFailures: m.failures}
	for i, res := range results {
		if progress != nil {
			progress(res, i+1, len(results))
		}
		report.Items = append(report.Items, res.Item)
		report.Enriched++
		report.Usage = report.Usage.Add(res.Usage)
	}
	return report, nil
}

func (m *mockEnrichmentService) History(_ context.Context, limit int) ([]domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, limit)
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *mockEnrichmentService) syncCalls() [][]domain.RawItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.RawItem(nil), m.calls...)
}

type providerCall struct {
	provider domain.AIProvider
	model    string
	apiKey   string
}

type mockSettingsService struct {
	settings    domain.AppSettings
	getErr      error
	setErr      error
	validateErr error
	pingErr     error
	llmCalls    []providerCall
	embedCalls  []providerCall
	savedSearch *domain.SearchSettings
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return m.setErr
}

func (m *mockSettingsService) SetSearchSettings(search domain.SearchSettings) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.savedSearch = &search
	m.settings.Search = search
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedCalls = append(m.embedCalls, providerCall{provider, model, apiKey})
	return m.setErr
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmCalls = append(m.llmCalls, providerCall{provider, model, apiKey})
	return m.setErr
}

func (m *mockSettingsService) Validate() error { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	search     *mockSearchService
	library    *mockLibraryService
	enrichment *mockEnrichmentService
	settings   *mockSettingsService
}

// setupTestServices installs mocks for every service and restores the
// previous globals when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	prevSearch, prevLibrary := searchService, libraryService
	prevEnrichment, prevSettings := enrichmentService, settingsService

	svc := &testServices{
		search:     &mockSearchService{},
		library:    &mockLibraryService{},
		enrichment: &mockEnrichmentService{},
		settings:   newMockSettingsService(),
	}
	searchService = svc.search
	libraryService = svc.library
	enrichmentService = svc.enrichment
	settingsService = svc.settings

	t.Cleanup(func() {
		searchService, libraryService = prevSearch, prevLibrary
		enrichmentService, settingsService = prevEnrichment, prevSettings
	})
	return svc
}

// execute runs the root command with args and returns everything written to
// stdout and stderr.
func execute(t *testing.T, input string, args ...string) (string, error) {
	return executeContext(t, context.Background(), input, args...)
}

func executeContext(t *testing.T, ctx context.Context, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores every flag in the command tree to its default, since
// cobra keeps flag values between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
