package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, driven.ItemStore) {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store, store.ItemStore()
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "library.db"), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.ItemStore().Upsert(context.Background(), []domain.ItemRecord{{ID: "1", Title: "Hurt"}}))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var versions int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)

	count, err := second.ItemStore().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestItemStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)

	records := []domain.ItemRecord{
		{
			ID:              "1",
			Title:           "Hurt",
			Contributors:    "Johnny Cash",
			Collection:      "American IV",
			ExternalLink:    "https://open.spotify.com/track/1",
			DescriptiveText: "I hurt myself today",
			Metadata:        "A Nine Inch Nails cover.",
			Embedding:       []float32{0.25, -0.5, 1},
			UpdatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		{ID: "2", Title: "Jolene", Contributors: "Dolly Parton"},
	}
	require.NoError(t, items.Upsert(ctx, records))

	got, err := items.GetByIDs(ctx, []string{"2", "missing", "1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2", got[0].ID)
	assert.False(t, got[0].IsEnriched())
	assert.False(t, got[0].UpdatedAt.IsZero())

	hurt := got[1]
	assert.Equal(t, "Hurt", hurt.Title)
	assert.Equal(t, "Johnny Cash", hurt.Contributors)
	assert.Equal(t, "American IV", hurt.Collection)
	assert.Equal(t, "https://open.spotify.com/track/1", hurt.ExternalLink)
	assert.Equal(t, "I hurt myself today", hurt.DescriptiveText)
	assert.Equal(t, "A Nine Inch Nails cover.", hurt.Metadata)
	assert.Equal(t, []float32{0.25, -0.5, 1}, hurt.Embedding)
	assert.True(t, hurt.UpdatedAt.Equal(records[0].UpdatedAt))
}

func TestItemStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)

	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{{ID: "1", Title: "Old", Embedding: []float32{1}}}))
	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{{ID: "1", Title: "New"}}))

	count, err := items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := items.GetByIDs(ctx, []string{"1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].Title)
	assert.Empty(t, got[0].Embedding)
}

func TestItemStore_UpsertKeepsTimestampForSameContent(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	record := domain.ItemRecord{ID: "1", Title: "Hurt", Contributors: "Johnny Cash", Embedding: []float32{1, 0}}

	record.UpdatedAt = first
	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{record}))
	record.UpdatedAt = later
	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{record}))

	got, err := items.GetByIDs(ctx, []string{"1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].UpdatedAt.Equal(first))

	record.Metadata = "A Nine Inch Nails cover."
	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{record}))

	got, err = items.GetByIDs(ctx, []string{"1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].UpdatedAt.Equal(later))
}

func TestItemStore_NearestNeighborsSkipsOtherDimensions(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)
	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{
		{ID: "old", Title: "Old", Embedding: []float32{1, 0, 0}},
		{ID: "new", Title: "New", Embedding: []float32{0, 1}},
	}))

	got, err := items.NearestNeighbors(ctx, domain.NeighborQuery{Vector: []float32{1, 0}, Threshold: 0, Count: 10})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Record.ID)
}

func TestItemStore_UpsertRejectsEmptyID(t *testing.T) {
	_, items := setupTestStore(t)

	err := items.Upsert(context.Background(), []domain.ItemRecord{{ID: "ok", Title: "a"}, {Title: "no id"}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// The whole batch is rolled back
	count, err := items.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestItemStore_GetByIDs_LargeBatch(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)

	records := make([]domain.ItemRecord, 1200)
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = fmt.Sprintf("track-%04d", i)
		records[i] = domain.ItemRecord{ID: ids[i], Title: "Song"}
	}
	require.NoError(t, items.Upsert(ctx, records))

	got, err := items.GetByIDs(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	assert.Equal(t, ids[lookupBatch], got[lookupBatch].ID)
}

func TestItemStore_NearestNeighbors(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)

	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{
		{ID: "a", Title: "A", Embedding: []float32{1, 0}},
		{ID: "b", Title: "B", Embedding: []float32{0.8, 0.6}},
		{ID: "c", Title: "C", Embedding: []float32{0, 1}},
		{ID: "d", Title: "D"},
		{ID: "e", Title: "E", Embedding: []float32{1, 0}},
	}))

	tests := []struct {
		name  string
		query domain.NeighborQuery
		want  []string
	}{
		{
			name:  "ranked by similarity then id",
			query: domain.NeighborQuery{Vector: []float32{1, 0}, Threshold: 0.5, Count: 10},
			want:  []string{"a", "e", "b"},
		},
		{
			name:  "count caps results",
			query: domain.NeighborQuery{Vector: []float32{1, 0}, Threshold: 0, Count: 2},
			want:  []string{"a", "e"},
		},
		{
			name:  "scope restricts candidates",
			query: domain.NeighborQuery{Vector: []float32{1, 0}, Count: 10, Scope: []string{"c", "b", "d"}},
			want:  []string{"b", "c"},
		},
		{
			name:  "threshold excludes everything",
			query: domain.NeighborQuery{Vector: []float32{-1, 0}, Threshold: 0.1, Count: 10},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := items.NearestNeighbors(ctx, tt.query)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.Record.ID)
				assert.GreaterOrEqual(t, s.Similarity, tt.query.Threshold)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestItemStore_List(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)

	empty, err := items.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, items.Upsert(ctx, []domain.ItemRecord{{ID: "b", Title: "B"}, {ID: "a", Title: "A"}}))

	all, err := items.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestItemStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	_, items := setupTestStore(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("item-%02d", i)
			assert.NoError(t, items.Upsert(ctx, []domain.ItemRecord{{ID: id, Title: id, Embedding: []float32{1}}}))
		}(i)
	}
	wg.Wait()

	count, err := items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestFloat32Encoding(t *testing.T) {
	tests := []struct {
		name   string
		floats []float32
	}{
		{name: "nil", floats: nil},
		{name: "values", floats: []float32{0, 1.5, -2.25, 3.4e38}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := float32SliceToBytes(tt.floats)
			assert.Len(t, encoded, len(tt.floats)*4)
			assert.Equal(t, tt.floats, bytesToFloat32Slice(encoded))
		})
	}

	assert.Nil(t, bytesToFloat32Slice([]byte{1, 2, 3}))
}
