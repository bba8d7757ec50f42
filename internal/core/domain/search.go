package domain

// SearchStrategy names the path that produced a search result.
type SearchStrategy string

// Available search strategies.
const (
	// StrategyInstant is a direct lyric match found before library search.
	StrategyInstant SearchStrategy = "instant"

	// StrategyVector is nearest-neighbor retrieval over item embeddings.
	StrategyVector SearchStrategy = "vector"

	// StrategyReduction is the chunked language-model reduction.
	StrategyReduction SearchStrategy = "reduction"
)

// String returns the string representation.
func (s SearchStrategy) String() string {
	return string(s)
}

// SearchResult is the outcome of a library search.
type SearchResult struct {
	// ID identifies this search run in logs.
	ID string `json:"id"`

	// Query is the query that was answered.
	Query Query `json:"query"`

	// Items are the ranked matches, best first.
	Items []EnrichedItem `json:"items"`

	// Usage sums every model call made for this search.
	Usage TokenUsage `json:"usage"`

	// Strategy is the path that produced Items.
	Strategy SearchStrategy `json:"strategy"`

	// FellBack is set when vector retrieval gave nothing and the reduction
	// engine answered instead.
	FellBack bool `json:"fell_back,omitempty"`
}
