package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
)

// historyRetention is the number of sync runs kept; older ones are pruned on record.
const historyRetention = 100

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	db *sql.DB
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

// Record persists a run and prunes history beyond the retention limit.
func (s *syncRunStore) Record(ctx context.Context, run domain.SyncRun) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (id, source, started_at, finished_at, total, cached, enriched,
			persist_failures, input_tokens, output_tokens, request_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			total = excluded.total,
			cached = excluded.cached,
			enriched = excluded.enriched,
			persist_failures = excluded.persist_failures,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			request_count = excluded.request_count,
			error = excluded.error
	`, run.ID, run.Source, formatTime(run.StartedAt), formatNullableTime(run.FinishedAt),
		run.Total, run.Cached, run.Enriched, run.PersistFailures,
		run.Usage.InputTokens, run.Usage.OutputTokens, run.Usage.RequestCount,
		nullString(run.Error))
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM sync_runs
		WHERE id NOT IN (
			SELECT id FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?
		)
	`, historyRetention)
	if err != nil {
		return fmt.Errorf("pruning sync history: %w", err)
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first. A limit below 1 returns all.
func (s *syncRunStore) Recent(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, total, cached, enriched,
			persist_failures, input_tokens, output_tokens, request_count, error
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return runs, nil
}

func scanSyncRun(rows *sql.Rows) (domain.SyncRun, error) {
	var run domain.SyncRun
	var startedAt string
	var finishedAt, runErr sql.NullString

	if err := rows.Scan(&run.ID, &run.Source, &startedAt, &finishedAt,
		&run.Total, &run.Cached, &run.Enriched, &run.PersistFailures,
		&run.Usage.InputTokens, &run.Usage.OutputTokens, &run.Usage.RequestCount,
		&runErr); err != nil {
		return run, fmt.Errorf("scanning sync run: %w", err)
	}

	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	run.Error = runErr.String
	return run, nil
}

// Times are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
