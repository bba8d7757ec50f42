// Package tui provides the interactive terminal interface for library search.
// It is a driving adapter over the core search and library ports.
package tui

import (
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Search ranks songs for a query.
	Search driving.SearchService

	// Library looks up stored songs.
	Library driving.LibraryService

	// Defaults are the options every query runs with.
	Defaults domain.SearchOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Library == nil {
		return ErrMissingLibraryService
	}
	return nil
}

// options returns Defaults, or the built-in defaults when unset.
func (p *Ports) options() domain.SearchOptions {
	if p.Defaults == (domain.SearchOptions{}) {
		return domain.DefaultSearchOptions()
	}
	return p.Defaults
}
