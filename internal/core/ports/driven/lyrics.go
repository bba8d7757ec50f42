package driven

import "context"

// LyricsProvider looks up song lyrics from an external service.
type LyricsProvider interface {
	// Lyrics returns the lyrics of the song best matching title and contributors.
	// Returns domain.ErrNotFound when the provider has no lyrics for the song.
	Lyrics(ctx context.Context, title string, contributors []string) (string, error)

	// Search returns up to limit songs whose lyrics or title match text.
	Search(ctx context.Context, text string, limit int) ([]LyricsHit, error)

	// LyricsByID returns the lyrics of a song returned by Search.
	LyricsByID(ctx context.Context, id string) (string, error)
}

// LyricsHit is a song found by a lyrics provider search.
type LyricsHit struct {
	ID     string
	Title  string
	Artist string
	URL    string
}
