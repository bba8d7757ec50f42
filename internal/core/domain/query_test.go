package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuery_Defaults(t *testing.T) {
	q := NewQuery("hello darkness")

	assert.Equal(t, "hello darkness", q.Text)
	assert.Equal(t, DefaultSearchOptions(), q.Options)
	assert.NoError(t, q.Validate())
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Query)
		wantErr bool
	}{
		{"valid", func(_ *Query) {}, false},
		{"empty text", func(q *Query) { q.Text = "   " }, true},
		{"zero result count", func(q *Query) { q.Options.ResultCount = 0 }, true},
		{"zero chunk size", func(q *Query) { q.Options.ChunkSize = 0 }, true},
		{"negative threshold", func(q *Query) { q.Options.SimilarityThreshold = -0.1 }, true},
		{"threshold above one", func(q *Query) { q.Options.SimilarityThreshold = 1.5 }, true},
		{"threshold at bounds", func(q *Query) { q.Options.SimilarityThreshold = 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery("upbeat summer song")
			tt.mutate(&q)

			err := q.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
