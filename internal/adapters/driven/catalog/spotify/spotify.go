// Package spotify reads a user's playlists from the Spotify Web API and
// turns their tracks into catalog items.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-music/internal/adapters/driven/resilience"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CatalogSource = (*Source)(nil)

const sourceName = "spotify"

// Defaults.
const (
	DefaultAPIBaseURL = "https://api.spotify.com/v1"
	DefaultTokenURL   = "https://accounts.spotify.com/api/token"
	DefaultTimeout    = 15 * time.Second

	// DefaultMaxPlaylists is how many of the user's playlists are read.
	DefaultMaxPlaylists = 5

	// DefaultMaxTracks caps the tracks read per playlist.
	DefaultMaxTracks = 100

	playlistPageSize = 50
)

// Config holds Spotify credentials and limits.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// APIBaseURL and TokenURL override the Spotify endpoints.
	APIBaseURL string
	TokenURL   string

	Timeout      time.Duration
	MaxPlaylists int
	MaxTracks    int

	// Backoff overrides the retry backoff; see resilience.Config.
	Backoff func(attempt int) time.Duration
}

// Source lists tracks from the user's playlists.
type Source struct {
	client       *resilience.Client
	baseURL      string
	maxPlaylists int
	maxTracks    int
}

type playlistsResponse struct {
	Items []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
}

type tracksResponse struct {
	Items []struct {
		Track *track `json:"track"`
	} `json:"items"`
}

type track struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
}

// NewSource creates a Spotify catalog source. Access tokens are obtained from
// the refresh token and renewed automatically.
func NewSource(cfg Config) (*Source, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("spotify: %w", domain.ErrMissingCredentials)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPlaylists <= 0 {
		cfg.MaxPlaylists = DefaultMaxPlaylists
	}
	if cfg.MaxTracks <= 0 {
		cfg.MaxTracks = DefaultMaxTracks
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ts := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return &Source{
		client: resilience.New(resilience.Config{
			Name:              sourceName,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: 10,
			Burst:             10,
			Backoff:           cfg.Backoff,
			HTTPClient:        oauth2.NewClient(context.Background(), ts),
		}),
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		maxPlaylists: cfg.MaxPlaylists,
		maxTracks:    cfg.MaxTracks,
	}, nil
}

// Name returns "spotify".
func (s *Source) Name() string {
	return sourceName
}

// ListItems returns the tracks of the user's first playlists, deduplicated by
// track ID in first-seen order. A playlist whose tracks cannot be read is
// skipped; failing to list playlists is an error.
func (s *Source) ListItems(ctx context.Context) ([]domain.RawItem, error) {
	var playlists playlistsResponse
	query := url.Values{"limit": {fmt.Sprint(playlistPageSize)}}
	if err := s.get(ctx, "/me/playlists?"+query.Encode(), &playlists); err != nil {
		return nil, domain.NewProviderError(sourceName, "list playlists", err)
	}

	seen := make(map[string]bool)
	var items []domain.RawItem
	for i, pl := range playlists.Items {
		if i == s.maxPlaylists {
			break
		}

		var tracks tracksResponse
		query := url.Values{"limit": {fmt.Sprint(s.maxTracks)}}
		path := "/playlists/" + url.PathEscape(pl.ID) + "/tracks?" + query.Encode()
		if err := s.get(ctx, path, &tracks); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("spotify: skipping playlist %q: %v", pl.Name, err)
			continue
		}

		for j, entry := range tracks.Items {
			if j == s.maxTracks {
				break
			}
			if entry.Track == nil || entry.Track.ID == "" || seen[entry.Track.ID] {
				continue
			}
			seen[entry.Track.ID] = true
			items = append(items, entry.Track.rawItem())
		}
	}

	logger.Debug("spotify: %d unique tracks from %d playlists", len(items), min(len(playlists.Items), s.maxPlaylists))
	return items, nil
}

func (t *track) rawItem() domain.RawItem {
	contributors := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			contributors = append(contributors, a.Name)
		}
	}
	return domain.RawItem{
		ID:           t.ID,
		Title:        t.Name,
		Contributors: contributors,
		Collection:   t.Album.Name,
		ExternalLink: t.ExternalURLs.Spotify,
	}
}

func (s *Source) get(ctx context.Context, path string, out any) error {
	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &resilience.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
