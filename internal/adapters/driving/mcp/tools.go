package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// maxToolResults caps the limit a client may request.
const maxToolResults = 100

// SearchInput is the input schema for the search_library tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"a description of the songs to find, such as a mood, theme or half-remembered lyric"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of songs to return (default 10)"`
}

// SearchOutput is the output schema for the search_library tool.
type SearchOutput struct {
	Songs    []SongOutput      `json:"songs"`
	Count    int               `json:"count"`
	Strategy string            `json:"strategy,omitempty"`
	Usage    domain.TokenUsage `json:"usage"`
}

// SongOutput is one ranked song.
type SongOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Contributors []string `json:"contributors"`
	Collection   string   `json:"collection,omitempty"`
	Link         string   `json:"link,omitempty"`
	Reasoning    string   `json:"reasoning,omitempty"`
}

// StatsInput is the (empty) input schema for the library_stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the library_stats tool.
type StatsOutput struct {
	Items int `json:"items"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_library",
		Description: "Search the user's synced music library with a natural-language description",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "library_stats",
		Description: "Report how many songs are stored in the library",
	}, s.handleStats)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := s.ports.Defaults
	if input.Limit > 0 {
		opts.ResultCount = min(input.Limit, maxToolResults)
	}

	result, err := s.ports.Search.Search(ctx, domain.Query{Text: input.Query, Options: opts})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Songs:    make([]SongOutput, len(result.Items)),
		Count:    len(result.Items),
		Strategy: result.Strategy.String(),
		Usage:    result.Usage,
	}
	for i, item := range result.Items {
		output.Songs[i] = SongOutput{
			ID:           item.ID,
			Title:        item.Title,
			Contributors: item.Contributors,
			Collection:   item.Collection,
			Link:         item.ExternalLink,
			Reasoning:    item.Reasoning,
		}
	}

	return nil, output, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	n, err := s.ports.Library.Count(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{Items: n}, nil
}
