// Package genius provides a lyrics provider backed by the Genius API.
package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-music/internal/adapters/driven/resilience"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LyricsProvider = (*Provider)(nil)

const providerName = "genius"

// Default configuration values.
const (
	DefaultBaseURL = "https://api.genius.com"
	DefaultTimeout = 10 * time.Second

	// MaxLyricsLength caps the lyrics kept per song.
	MaxLyricsLength = 1600

	requestsPerSecond = 5
	requestBurst      = 10
)

// Config holds configuration for the Genius provider.
type Config struct {
	// AccessToken is an optional Genius API bearer token.
	AccessToken string

	// BaseURL is the API base URL (default: https://api.genius.com).
	BaseURL string

	// Timeout bounds each request (default: 10s).
	Timeout time.Duration

	// Retries overrides the retry count; see resilience.Config.
	Retries int

	// Backoff overrides the retry backoff; see resilience.Config.
	Backoff func(attempt int) time.Duration
}

// Provider looks up lyrics on Genius.
type Provider struct {
	client  *resilience.Client
	baseURL string
	token   string
}

type searchResponse struct {
	Response struct {
		Hits []struct {
			Result searchResult `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type searchResult struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PrimaryArtist struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

type songResponse struct {
	Response struct {
		Song struct {
			Lyrics struct {
				Plain string `json:"plain"`
			} `json:"lyrics"`
		} `json:"song"`
	} `json:"response"`
}

// NewProvider creates a Genius lyrics provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Provider{
		client: resilience.New(resilience.Config{
			Name:              providerName,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: requestsPerSecond,
			Burst:             requestBurst,
			Retries:           cfg.Retries,
			Backoff:           cfg.Backoff,
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
	}
}

// Lyrics searches for "<title> <first contributor>" and returns the lyrics of
// the top hit, truncated to MaxLyricsLength.
func (p *Provider) Lyrics(ctx context.Context, title string, contributors []string) (string, error) {
	query := title
	if len(contributors) > 0 {
		query += " " + contributors[0]
	}

	hits, err := p.Search(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", fmt.Errorf("no lyrics for %q: %w", query, domain.ErrNotFound)
	}
	return p.LyricsByID(ctx, hits[0].ID)
}

// Search returns up to limit songs matching text.
func (p *Provider) Search(ctx context.Context, text string, limit int) ([]driven.LyricsHit, error) {
	var resp searchResponse
	if err := p.get(ctx, "/search?q="+url.QueryEscape(text), &resp); err != nil {
		return nil, domain.NewProviderError(providerName, "search", err)
	}

	hits := make([]driven.LyricsHit, 0, min(limit, len(resp.Response.Hits)))
	for _, h := range resp.Response.Hits {
		if len(hits) == limit {
			break
		}
		if h.Result.ID == 0 {
			continue
		}
		hits = append(hits, driven.LyricsHit{
			ID:     strconv.FormatInt(h.Result.ID, 10),
			Title:  h.Result.Title,
			Artist: h.Result.PrimaryArtist.Name,
			URL:    h.Result.URL,
		})
	}
	return hits, nil
}

// LyricsByID returns the plain-text lyrics of a song, truncated to MaxLyricsLength.
func (p *Provider) LyricsByID(ctx context.Context, id string) (string, error) {
	var resp songResponse
	if err := p.get(ctx, "/songs/"+url.PathEscape(id)+"?text_format=plain", &resp); err != nil {
		if domain.IsNotFound(err) {
			return "", err
		}
		return "", domain.NewProviderError(providerName, "lyrics", err)
	}

	lyrics := strings.TrimSpace(resp.Response.Song.Lyrics.Plain)
	if lyrics == "" {
		return "", fmt.Errorf("song %s has no lyrics: %w", id, domain.ErrNotFound)
	}
	return domain.TruncateRunes(lyrics, MaxLyricsLength), nil
}

// get fetches path and decodes the JSON body into out. 404 maps to ErrNotFound.
func (p *Provider) get(ctx context.Context, path string, out any) error {
	resp, err := p.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if p.token != "" {
			req.Header.Set("Authorization", "Bearer "+p.token)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
