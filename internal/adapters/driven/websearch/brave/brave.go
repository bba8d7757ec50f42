// Package brave implements driven.WebSearcher on the Brave Search API. Each
// result page is downloaded and reduced to plain text.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-music/internal/adapters/driven/resilience"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Ensure Searcher implements the interface.
var _ driven.WebSearcher = (*Searcher)(nil)

const providerName = "brave"

// Defaults.
const (
	DefaultBaseURL = "https://api.search.brave.com/res/v1"
	DefaultTimeout = 10 * time.Second

	// PageTimeout bounds each page download.
	PageTimeout = 15 * time.Second

	// MaxPageText caps the text kept per page.
	MaxPageText = 4000

	// MaxParallelFetches bounds concurrent page downloads.
	MaxParallelFetches = 16

	maxPageBytes = 2 << 20
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds configuration for the Brave searcher.
type Config struct {
	// APIKey is the Brave subscription token (required).
	APIKey string

	// BaseURL is the API base URL.
	BaseURL string

	// Timeout bounds each API request.
	Timeout time.Duration

	// Backoff overrides the retry backoff for both API and page requests.
	Backoff func(attempt int) time.Duration

	// HTTPClient overrides the transport used for page downloads.
	HTTPClient *http.Client
}

// Searcher searches the web and returns the text of result pages.
type Searcher struct {
	api     *resilience.Client
	pages   *resilience.Client
	baseURL string
	apiKey  string
}

type searchResponse struct {
	Web struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

// NewSearcher creates a Brave searcher. A missing API key is an error.
func NewSearcher(cfg Config) (*Searcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("brave: %w", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Searcher{
		api: resilience.New(resilience.Config{
			Name:              providerName,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: 1,
			Burst:             1,
			Backoff:           cfg.Backoff,
		}),
		// Pages come from many hosts; one flaky site must not open the breaker.
		pages: resilience.New(resilience.Config{
			Name:       providerName + "-pages",
			Timeout:    PageTimeout,
			Retries:    1,
			TripAfter:  1 << 16,
			Backoff:    cfg.Backoff,
			HTTPClient: cfg.HTTPClient,
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

// Search returns the text of up to count result pages for query, in result
// order. Pages that cannot be downloaded or have no text are skipped.
func (s *Searcher) Search(ctx context.Context, query string, count int) ([]driven.WebDocument, error) {
	links, err := s.links(ctx, query, count)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "search", err)
	}

	texts := make([]string, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelFetches)
	for i, link := range links {
		g.Go(func() error {
			text, err := s.fetch(gctx, link)
			if err != nil {
				logger.Debug("brave: skipping %s: %v", link, err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]driven.WebDocument, 0, len(links))
	for i, text := range texts {
		if text != "" {
			docs = append(docs, driven.WebDocument{URL: links[i], Text: text})
		}
	}
	logger.Debug("brave: %d/%d pages for %q", len(docs), len(links), query)
	return docs, nil
}

// links asks the search API for result URLs.
func (s *Searcher) links(ctx context.Context, query string, count int) ([]string, error) {
	params := url.Values{
		"q":             {query},
		"count":         {strconv.Itoa(count)},
		"country":       {"US"},
		"search_lang":   {"en"},
		"result_filter": {"web"},
	}
	endpoint := s.baseURL + "/web/search?" + params.Encode()

	resp, err := s.api.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", s.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &resilience.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	links := make([]string, 0, count)
	for _, r := range result.Web.Results {
		if r.URL != "" && len(links) < count {
			links = append(links, r.URL)
		}
	}
	return links, nil
}

// fetch downloads one page and returns its text, truncated to MaxPageText.
func (s *Searcher) fetch(ctx context.Context, link string) (string, error) {
	resp, err := s.pages.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return domain.TruncateRunes(extractText(string(body)), MaxPageText), nil
}
