package domain

import "time"

// DefaultHistoryLimit is the number of sync runs listed when no limit is given.
const DefaultHistoryLimit = 10

// SyncRun records the outcome of one library sync.
type SyncRun struct {
	// ID is the run id reported in logs.
	ID string

	// Source names the catalog the items came from.
	Source string

	StartedAt  time.Time
	FinishedAt time.Time

	// Total is the number of distinct valid catalog items.
	Total int

	Cached          int
	Enriched        int
	PersistFailures int

	// Usage sums the tokens spent enriching.
	Usage TokenUsage

	// Error is set when the run stopped early.
	Error string
}

// Duration returns how long the run took.
func (r SyncRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run finished and stored every item.
func (r SyncRun) Succeeded() bool {
	return r.Error == "" && r.PersistFailures == 0
}
