package cli

import (
	"os"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// Environment variables that can supply credentials.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	envAnthropicKey  = "ANTHROPIC_API_KEY"
	envOpenAIKey     = "OPENAI_API_KEY"
	envGeniusToken   = "GENIUS_ACCESS_TOKEN"
	envBraveKey      = "BRAVE_API_KEY"
	envSpotifyID     = "SPOTIFY_CLIENT_ID"
	envSpotifySecret = "SPOTIFY_CLIENT_SECRET"
	envSpotifyToken  = "SPOTIFY_REFRESH_TOKEN"
)

// envKeys maps config keys that read directly from one variable.
var envKeys = map[string]string{
	"lyrics.access_token":   envGeniusToken,
	"websearch.api_key":     envBraveKey,
	"catalog.client_id":     envSpotifyID,
	"catalog.client_secret": envSpotifySecret,
	"catalog.refresh_token": envSpotifyToken,
}

// providerKeys maps a provider to the variable holding its API key.
var providerKeys = map[domain.AIProvider]string{
	domain.AIProviderAnthropic: envAnthropicKey,
	domain.AIProviderOpenAI:    envOpenAIKey,
}

// envConfigStore overlays environment credentials on a config store.
// Stored values always win. Values that only exist in the environment are
// never written back to the underlying store.
type envConfigStore struct {
	driven.ConfigStore
	lookup func(string) (string, bool)
}

func newEnvConfigStore(base driven.ConfigStore, lookup func(string) (string, bool)) *envConfigStore {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envConfigStore{ConfigStore: base, lookup: lookup}
}

// Get returns the stored value, or the environment value when none is stored.
func (s *envConfigStore) Get(key string) (any, bool) {
	if val, ok := s.ConfigStore.Get(key); ok {
		return val, true
	}
	if val := s.fromEnv(key); val != "" {
		return val, true
	}
	return nil, false
}

// GetString returns the stored string, or the environment value when it is empty.
func (s *envConfigStore) GetString(key string) string {
	if val := s.ConfigStore.GetString(key); val != "" {
		return val
	}
	return s.fromEnv(key)
}

// Set stores value unless it merely repeats what the environment supplies.
func (s *envConfigStore) Set(key string, value any) error {
	if _, stored := s.ConfigStore.Get(key); !stored {
		if str, ok := value.(string); ok && str != "" && str == s.fromEnv(key) {
			return nil
		}
	}
	return s.ConfigStore.Set(key, value)
}

// fromEnv resolves key from the environment. Providers are inferred from
// whichever API key is present; API keys follow the resolved provider.
func (s *envConfigStore) fromEnv(key string) string {
	switch key {
	case "llm.provider":
		switch {
		case s.getenv(envAnthropicKey) != "":
			return domain.AIProviderAnthropic.String()
		case s.getenv(envOpenAIKey) != "":
			return domain.AIProviderOpenAI.String()
		}
		return ""
	case "embedding.provider":
		if s.getenv(envOpenAIKey) != "" {
			return domain.AIProviderOpenAI.String()
		}
		return ""
	case "llm.api_key":
		return s.getenv(providerKeys[domain.AIProvider(s.GetString("llm.provider"))])
	case "embedding.api_key":
		return s.getenv(providerKeys[domain.AIProvider(s.GetString("embedding.provider"))])
	}
	return s.getenv(envKeys[key])
}

func (s *envConfigStore) getenv(name string) string {
	if name == "" {
		return ""
	}
	val, _ := s.lookup(name)
	return val
}
