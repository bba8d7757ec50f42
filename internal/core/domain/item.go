package domain

import (
	"strings"
)

// sectionRule separates the blocks of an item's textual form.
const sectionRule = "------------"

// RawItem is a catalog entry as produced by a catalog scan.
// Identity is the provider-assigned ID; a RawItem is immutable once produced.
type RawItem struct {
	// ID is the stable, provider-assigned identifier.
	ID string `json:"id" yaml:"id"`

	// Title is the song name.
	Title string `json:"title" yaml:"title"`

	// Contributors lists the performing artists in credit order.
	Contributors []string `json:"contributors" yaml:"contributors"`

	// Collection is the album or release the song belongs to.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`

	// ExternalLink points at the song on the catalog provider.
	ExternalLink string `json:"external_link,omitempty" yaml:"external_link,omitempty"`
}

// ContributorNames returns the contributors joined for display.
func (r RawItem) ContributorNames() string {
	return strings.Join(r.Contributors, ", ")
}

// PrimaryContributor returns the first credited contributor, or "".
func (r RawItem) PrimaryContributor() string {
	if len(r.Contributors) == 0 {
		return ""
	}
	return r.Contributors[0]
}

// Validate checks the fields every catalog entry must carry.
func (r RawItem) Validate() error {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Title) == "" {
		return ErrInvalidInput
	}
	return nil
}

// EnrichedItem is a RawItem augmented with descriptive text, background
// metadata and an embedding. Reasoning and Excluded are only set once the
// item has been ranked for a query.
type EnrichedItem struct {
	RawItem

	// DescriptiveText holds the lyrics, possibly empty.
	DescriptiveText string `json:"descriptive_text,omitempty"`

	// Metadata is the model-authored background note, possibly empty.
	Metadata string `json:"metadata,omitempty"`

	// Embedding is the vector of the item's textual form, empty if not computed.
	Embedding []float32 `json:"-"`

	// Reasoning explains why the item matched a query.
	Reasoning string `json:"reasoning,omitempty"`

	// Excluded is set when the reasoning step decided the item does not fit.
	Excluded bool `json:"excluded,omitempty"`
}

// HasEmbedding reports whether the item has been embedded.
func (e EnrichedItem) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// String renders the item as the structured text block used both in model
// prompts and as embedding input.
func (e EnrichedItem) String() string {
	var b strings.Builder
	b.WriteString(sectionRule + "\n")
	b.WriteString("ID: " + e.ID + "\n")
	b.WriteString("Title: " + e.Title + "\n")
	b.WriteString("Contributors: " + e.ContributorNames() + "\n")
	b.WriteString("Collection: " + e.Collection + "\n")
	b.WriteString("Link: " + e.ExternalLink + "\n")
	b.WriteString(sectionRule + "\n")
	b.WriteString("Metadata:\n" + e.Metadata + "\n")
	b.WriteString(sectionRule + "\n")
	b.WriteString("Lyrics:\n" + e.DescriptiveText + "\n")
	b.WriteString(sectionRule + "\n")
	return b.String()
}

// Clone returns a deep copy, so ranked results never alias library items.
func (e EnrichedItem) Clone() EnrichedItem {
	c := e
	if e.Contributors != nil {
		c.Contributors = append([]string(nil), e.Contributors...)
	}
	if e.Embedding != nil {
		c.Embedding = append([]float32(nil), e.Embedding...)
	}
	return c
}

// ItemIDs returns the ids of items in order.
func ItemIDs(items []EnrichedItem) []string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

// TruncateRunes keeps at most n runes of s.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
