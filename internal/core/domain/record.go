package domain

import (
	"slices"
	"strings"
	"time"
)

// contributorSeparator joins list-valued fields in persisted records.
const contributorSeparator = ","

// ItemRecord is the persisted form of an EnrichedItem.
// List-valued fields are flattened to comma-joined strings.
type ItemRecord struct {
	ID              string
	Title           string
	Contributors    string
	Collection      string
	ExternalLink    string
	DescriptiveText string
	Metadata        string
	Embedding       []float32
	UpdatedAt       time.Time
}

// ScoredRecord is a store record returned by a similarity query.
type ScoredRecord struct {
	Record ItemRecord

	// Similarity is the cosine similarity to the query vector, in [0,1] for
	// normalised embeddings.
	Similarity float64
}

// NeighborQuery describes a nearest-neighbor lookup.
type NeighborQuery struct {
	// Vector is the query embedding.
	Vector []float32

	// Threshold is the minimum similarity a match must reach.
	Threshold float64

	// Count is the maximum number of matches.
	Count int

	// Scope optionally restricts matches to these item ids.
	Scope []string
}

// NewItemRecord flattens an enriched item for persistence.
// Reasoning and Excluded are query-specific and are not persisted.
func NewItemRecord(item EnrichedItem) ItemRecord {
	return ItemRecord{
		ID:              item.ID,
		Title:           item.Title,
		Contributors:    JoinContributors(item.Contributors),
		Collection:      item.Collection,
		ExternalLink:    item.ExternalLink,
		DescriptiveText: item.DescriptiveText,
		Metadata:        item.Metadata,
		Embedding:       item.Embedding,
		UpdatedAt:       time.Now(),
	}
}

// Item restores the enriched item held by the record.
func (r ItemRecord) Item() EnrichedItem {
	return EnrichedItem{
		RawItem: RawItem{
			ID:           r.ID,
			Title:        r.Title,
			Contributors: SplitContributors(r.Contributors),
			Collection:   r.Collection,
			ExternalLink: r.ExternalLink,
		},
		DescriptiveText: r.DescriptiveText,
		Metadata:        r.Metadata,
		Embedding:       r.Embedding,
	}
}

// IsEnriched reports whether the record has completed enrichment.
// The embedding is computed last, so its presence marks a finished item.
func (r ItemRecord) IsEnriched() bool {
	return len(r.Embedding) > 0
}

// SameContent reports whether r and other hold the same item data.
// UpdatedAt is ignored.
func (r ItemRecord) SameContent(other ItemRecord) bool {
	return r.ID == other.ID &&
		r.Title == other.Title &&
		r.Contributors == other.Contributors &&
		r.Collection == other.Collection &&
		r.ExternalLink == other.ExternalLink &&
		r.DescriptiveText == other.DescriptiveText &&
		r.Metadata == other.Metadata &&
		slices.Equal(r.Embedding, other.Embedding)
}

// JoinContributors flattens a contributor list.
func JoinContributors(names []string) string {
	return strings.Join(names, contributorSeparator)
}

// SplitContributors restores a contributor list, trimming whitespace and
// dropping empty entries.
func SplitContributors(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, contributorSeparator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
