package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem() EnrichedItem {
	return EnrichedItem{
		RawItem: RawItem{
			ID:           "7",
			Title:        "The Sound of Silence",
			Contributors: []string{"Simon & Garfunkel"},
			Collection:   "Sounds of Silence",
			ExternalLink: "https://open.spotify.com/track/7",
		},
		DescriptiveText: "Hello darkness, my old friend",
		Metadata:        "Folk rock, 1964.",
		Embedding:       []float32{0.1, 0.2},
	}
}

func TestRawItem_ContributorNames(t *testing.T) {
	item := RawItem{Contributors: []string{"Daft Punk", "Pharrell Williams"}}

	assert.Equal(t, "Daft Punk, Pharrell Williams", item.ContributorNames())
	assert.Equal(t, "Daft Punk", item.PrimaryContributor())
	assert.Empty(t, RawItem{}.PrimaryContributor())
}

func TestRawItem_Validate(t *testing.T) {
	assert.NoError(t, RawItem{ID: "1", Title: "Song"}.Validate())
	assert.ErrorIs(t, RawItem{ID: "1"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, RawItem{Title: "Song"}.Validate(), ErrInvalidInput)
}

func TestEnrichedItem_String(t *testing.T) {
	text := testItem().String()

	assert.Contains(t, text, "ID: 7\n")
	assert.Contains(t, text, "Title: The Sound of Silence\n")
	assert.Contains(t, text, "Contributors: Simon & Garfunkel\n")
	assert.Contains(t, text, "Collection: Sounds of Silence\n")
	assert.Contains(t, text, "Link: https://open.spotify.com/track/7\n")
	assert.Contains(t, text, "Metadata:\nFolk rock, 1964.\n")
	assert.Contains(t, text, "Lyrics:\nHello darkness, my old friend\n")
	assert.NotContains(t, text, "0.1")
}

func TestEnrichedItem_Clone(t *testing.T) {
	original := testItem()
	clone := original.Clone()

	clone.Contributors[0] = "changed"
	clone.Embedding[0] = 9

	assert.Equal(t, "Simon & Garfunkel", original.Contributors[0])
	assert.InDelta(t, 0.1, original.Embedding[0], 1e-6)
	assert.True(t, original.HasEmbedding())
}

func TestItemIDs(t *testing.T) {
	items := []EnrichedItem{{RawItem: RawItem{ID: "a"}}, {RawItem: RawItem{ID: "b"}}}
	assert.Equal(t, []string{"a", "b"}, ItemIDs(items))
}

func TestItemRecord_RoundTrip(t *testing.T) {
	item := testItem()
	item.Contributors = []string{"Daft Punk", "Pharrell Williams"}
	item.Reasoning = "query specific"

	record := NewItemRecord(item)
	require.Equal(t, "Daft Punk,Pharrell Williams", record.Contributors)
	assert.False(t, record.UpdatedAt.IsZero())
	assert.True(t, record.IsEnriched())

	restored := record.Item()
	assert.Equal(t, item.RawItem, restored.RawItem)
	assert.Equal(t, item.DescriptiveText, restored.DescriptiveText)
	assert.Equal(t, item.Metadata, restored.Metadata)
	assert.Equal(t, item.Embedding, restored.Embedding)
	assert.Empty(t, restored.Reasoning)
}

func TestSplitContributors(t *testing.T) {
	tests := []struct {
		name     string
		joined   string
		expected []string
	}{
		{"empty", "", nil},
		{"whitespace", "  ", nil},
		{"single", "Adele", []string{"Adele"}},
		{"trims", "Adele , Sam Smith", []string{"Adele", "Sam Smith"}},
		{"drops blanks", "Adele,,", []string{"Adele"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitContributors(tt.joined))
		})
	}
}

func TestItemRecord_IsEnriched(t *testing.T) {
	assert.False(t, ItemRecord{ID: "1"}.IsEnriched())
	assert.True(t, ItemRecord{ID: "1", Embedding: []float32{1}}.IsEnriched())
}

func TestItemRecord_SameContent(t *testing.T) {
	base := ItemRecord{ID: "1", Title: "Hurt", Contributors: "Johnny Cash", Embedding: []float32{1, 0}}

	tests := []struct {
		name  string
		other func(r ItemRecord) ItemRecord
		want  bool
	}{
		{"identical", func(r ItemRecord) ItemRecord { return r }, true},
		{"timestamp ignored", func(r ItemRecord) ItemRecord { r.UpdatedAt = time.Now(); return r }, true},
		{"title differs", func(r ItemRecord) ItemRecord { r.Title = "Jolene"; return r }, false},
		{"embedding differs", func(r ItemRecord) ItemRecord { r.Embedding = []float32{0, 1}; return r }, false},
		{"embedding dropped", func(r ItemRecord) ItemRecord { r.Embedding = nil; return r }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.SameContent(tt.other(base)))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "hi", TruncateRunes("hi", 4))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}
