package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// lookupBatch bounds the number of ids bound into one IN clause.
const lookupBatch = 500

const itemColumns = `id, title, contributors, collection, external_link,
	descriptive_text, metadata, embedding, updated_at`

// itemStore implements driven.ItemStore.
type itemStore struct {
	db *sql.DB
}

var _ driven.ItemStore = (*itemStore)(nil)

// GetByIDs returns the stored records for ids, in the order requested.
func (s *itemStore) GetByIDs(ctx context.Context, ids []string) ([]domain.ItemRecord, error) {
	byID := make(map[string]domain.ItemRecord, len(ids))
	for start := 0; start < len(ids); start += lookupBatch {
		end := min(start+lookupBatch, len(ids))
		batch := ids[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		//nolint:gosec // placeholders are generated, values are bound
		query := "SELECT " + itemColumns + " FROM items WHERE id IN (" + placeholders + ")"
		found, err := s.query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			byID[r.ID] = r
		}
	}

	records := make([]domain.ItemRecord, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			records = append(records, r)
			delete(byID, id)
		}
	}
	return records, nil
}

// Upsert writes records in one transaction, overwriting existing ids.
func (s *itemStore) Upsert(ctx context.Context, records []domain.ItemRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			contributors = excluded.contributors,
			collection = excluded.collection,
			external_link = excluded.external_link,
			descriptive_text = excluded.descriptive_text,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = CASE
				WHEN title IS excluded.title
					AND contributors IS excluded.contributors
					AND collection IS excluded.collection
					AND external_link IS excluded.external_link
					AND descriptive_text IS excluded.descriptive_text
					AND metadata IS excluded.metadata
					AND embedding IS excluded.embedding
				THEN updated_at
				ELSE excluded.updated_at
			END
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("saving item: %w", domain.ErrInvalidInput)
		}
		updatedAt := r.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Title, r.Contributors, r.Collection, r.ExternalLink,
			r.DescriptiveText, r.Metadata, float32SliceToBytes(r.Embedding), updatedAt.UTC()); err != nil {
			return fmt.Errorf("saving item %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// NearestNeighbors ranks embedded records by cosine similarity to the query vector.
func (s *itemStore) NearestNeighbors(
	ctx context.Context, query domain.NeighborQuery,
) ([]domain.ScoredRecord, error) {
	var (
		records []domain.ItemRecord
		err     error
	)
	if len(query.Scope) > 0 {
		records, err = s.GetByIDs(ctx, query.Scope)
	} else {
		records, err = s.query(ctx, "SELECT "+itemColumns+" FROM items WHERE embedding IS NOT NULL")
	}
	if err != nil {
		return nil, err
	}
	return domain.RankNeighbors(records, query), nil
}

// List returns every stored record in id order.
func (s *itemStore) List(ctx context.Context) ([]domain.ItemRecord, error) {
	return s.query(ctx, "SELECT "+itemColumns+" FROM items ORDER BY id")
}

// Count returns the number of stored records.
func (s *itemStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

func (s *itemStore) query(ctx context.Context, query string, args ...any) ([]domain.ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var records []domain.ItemRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return records, nil
}

// scanItem reads one row selected with itemColumns.
func scanItem(rows *sql.Rows) (domain.ItemRecord, error) {
	var (
		r         domain.ItemRecord
		embedding []byte
	)
	if err := rows.Scan(&r.ID, &r.Title, &r.Contributors, &r.Collection, &r.ExternalLink,
		&r.DescriptiveText, &r.Metadata, &embedding, &r.UpdatedAt); err != nil {
		return domain.ItemRecord{}, fmt.Errorf("scanning item: %w", err)
	}
	r.Embedding = bytesToFloat32Slice(embedding)
	return r, nil
}
