package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-music/internal/adapters/driven/catalog/spotify"
	"github.com/custodia-labs/sercha-music/internal/adapters/driving/oauth"
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Overridden in tests.
var (
	openBrowser      = oauth.OpenBrowser
	spotifyAuthURL   = spotify.DefaultAuthURL
	spotifyTokenURL  = spotify.DefaultTokenURL
	authorizeTimeout = 5 * time.Minute
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorise catalog providers",
}

var authSpotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "Connect a Spotify account",
	Long: `Opens the Spotify consent page and stores the refresh token that
"sync --spotify" needs.

Register an app at https://developer.spotify.com/dashboard and add the
redirect URI http://127.0.0.1:8888/callback (or the port given with --port).`,
	Args: cobra.NoArgs,
	RunE: runAuthSpotify,
}

func init() {
	flags := authSpotifyCmd.Flags()
	flags.Int("port", 8888, "local port for the redirect URI")
	flags.Bool("no-browser", false, "print the consent URL instead of opening a browser")
	flags.String("client-id", "", "Spotify client ID (default from settings)")
	flags.String("client-secret", "", "Spotify client secret (default from settings)")

	authCmd.AddCommand(authSpotifyCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSpotify(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	catalog, err := spotifyCredentials(cmd, settings.Catalog)
	if err != nil {
		return err
	}

	port, _ := cmd.Flags().GetInt("port")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	state := oauth.NewState()
	server := oauth.NewCallbackServer(port, state)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Debug("callback server shutdown: %v", err)
		}
	}()

	authorizer, err := spotify.NewAuthorizer(spotify.AuthConfig{
		ClientID:     catalog.ClientID,
		ClientSecret: catalog.ClientSecret,
		RedirectURL:  server.RedirectURI(),
		AuthURL:      spotifyAuthURL,
		TokenURL:     spotifyTokenURL,
	})
	if err != nil {
		return err
	}

	consentURL := authorizer.AuthCodeURL(state)
	cmd.Printf("Redirect URI: %s\n", server.RedirectURI())
	if noBrowser {
		cmd.Printf("Open this URL to authorise sercha-music:\n  %s\n", consentURL)
	} else if err := openBrowser(consentURL); err != nil {
		cmd.Printf("Could not open a browser (%v). Open this URL instead:\n  %s\n", err, consentURL)
	} else {
		cmd.Println("Waiting for authorisation in your browser...")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authorizeTimeout)
	defer cancel()

	code, err := server.WaitForCode(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("authorisation timed out after %s", authorizeTimeout)
		}
		return fmt.Errorf("authorisation failed: %w", err)
	}

	refreshToken, err := authorizer.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	catalog.RefreshToken = refreshToken
	settings.Catalog = catalog
	if err := svc.Save(settings); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	cmd.Println("Spotify connected. Run \"sercha-music sync --spotify\" to import your playlists.")
	return nil
}

// spotifyCredentials resolves the client credentials from flags, then
// settings, then a prompt.
func spotifyCredentials(cmd *cobra.Command, current domain.CatalogSettings) (domain.CatalogSettings, error) {
	creds := current
	if id, _ := cmd.Flags().GetString("client-id"); id != "" {
		creds.ClientID = id
	}
	if secret, _ := cmd.Flags().GetString("client-secret"); secret != "" {
		creds.ClientSecret = secret
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if creds.ClientID == "" {
		cmd.Print("Spotify client ID: ")
		creds.ClientID = readLine(reader)
	}
	if creds.ClientSecret == "" {
		cmd.Print("Spotify client secret: ")
		creds.ClientSecret = readSecret(cmd, reader)
		cmd.Println()
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return creds, fmt.Errorf("spotify: %w", domain.ErrMissingCredentials)
	}
	return creds, nil
}
