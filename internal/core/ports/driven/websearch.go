package driven

import "context"

// WebSearcher finds supporting documents on the web.
type WebSearcher interface {
	// Search returns the text of up to count pages matching query.
	// Pages that cannot be fetched are skipped.
	Search(ctx context.Context, query string, count int) ([]WebDocument, error)
}

// WebDocument is the extracted text of one web page.
type WebDocument struct {
	URL  string
	Text string
}
