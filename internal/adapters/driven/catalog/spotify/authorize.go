package spotify

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// DefaultAuthURL is the Spotify authorization endpoint.
const DefaultAuthURL = "https://accounts.spotify.com/authorize"

// Scopes are the permissions needed to read the user's playlists.
var Scopes = []string{"playlist-read-private", "playlist-read-collaborative"}

// errNoRefreshToken is returned when the token response lacks a refresh token.
var errNoRefreshToken = errors.New("token response has no refresh token")

// AuthConfig configures the authorization code flow.
type AuthConfig struct {
	ClientID     string
	ClientSecret string

	// RedirectURL must match a redirect URI registered for the app.
	RedirectURL string

	// AuthURL and TokenURL override the Spotify endpoints.
	AuthURL  string
	TokenURL string
}

// Authorizer runs the authorization code flow with PKCE and yields the
// refresh token a Source is built from.
type Authorizer struct {
	config   *oauth2.Config
	verifier string
}

// NewAuthorizer creates an authorizer with a fresh PKCE verifier.
func NewAuthorizer(cfg AuthConfig) (*Authorizer, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify: %w", domain.ErrMissingCredentials)
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("spotify: %w: redirect URL is required", domain.ErrInvalidInput)
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}

	return &Authorizer{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		verifier: oauth2.GenerateVerifier(),
	}, nil
}

// AuthCodeURL returns the consent page URL the user must visit.
func (a *Authorizer) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.S256ChallengeOption(a.verifier))
}

// Exchange trades an authorization code for a refresh token.
func (a *Authorizer) Exchange(ctx context.Context, code string) (string, error) {
	token, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(a.verifier))
	if err != nil {
		return "", domain.NewProviderError(sourceName, "exchange code", err)
	}
	if token.RefreshToken == "" {
		return "", domain.NewProviderError(sourceName, "exchange code", errNoRefreshToken)
	}
	return token.RefreshToken, nil
}
