package driven

import (
	"context"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

// SyncRunStore keeps the history of library syncs.
type SyncRunStore interface {
	// Record stores a finished run. Recording an existing id replaces it.
	Record(ctx context.Context, run domain.SyncRun) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
