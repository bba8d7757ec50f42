package mcp

import (
	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Search answers library queries.
	Search driving.SearchService

	// Library reports on stored items.
	Library driving.LibraryService

	// Defaults are the search options used when a tool call leaves them unset.
	Defaults domain.SearchOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Library == nil {
		return ErrMissingLibraryService
	}
	return nil
}
