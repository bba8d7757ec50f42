// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// SearchCompleted carries a finished search back to the model.
type SearchCompleted struct {
	Result *domain.SearchResult
	Err    error
}

// SongSelected is sent when a result is opened. Item is the ranked copy,
// carrying the reasoning for the query.
type SongSelected struct {
	Item domain.EnrichedItem
}

// SongLoaded carries the stored copy of a song.
type SongLoaded struct {
	ID   string
	Item *domain.EnrichedItem
	Err  error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the query input and result list.
	ViewSearch ViewType = iota
	// ViewSong shows one song in full.
	ViewSong
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewSong:
		return "song"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
