package aggregator

import (
	"context"
	"time"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/storage"
)

// SyncSummary aggregates the recent run history into one status view.
type SyncSummary struct {
	TotalRuns      int             `json:"total_runs"`
	TotalProcessed int             `json:"total_processed"`
	TotalSucceeded int             `json:"total_succeeded"`
	SuccessRate    float64         `json:"success_rate"`
	LastRun        *domain.SyncRun `json:"last_run,omitempty"`
}

// Aggregator computes summaries from the run-history storage
type Aggregator interface {
	Summarize(ctx context.Context, window int) (*SyncSummary, error)
}

// aggregator implements Aggregator
type aggregator struct {
	storage storage.Storage
}

// NewAggregator creates a new aggregator
func NewAggregator(store storage.Storage) Aggregator {
	return &aggregator{storage: store}
}

// Summarize aggregates the most recent `window` runs (newest first). With no
// recorded runs it returns an empty summary, not an error.
func (a *aggregator) Summarize(ctx context.Context, window int) (*SyncSummary, error) {
	if window <= 0 {
		window = 20
	}

	runs, err := a.storage.GetRecentRuns(ctx, window)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{TotalRuns: len(runs)}
	var newest time.Time
	for _, run := range runs {
		summary.TotalProcessed += run.Processed
		summary.TotalSucceeded += run.Succeeded
		if run.StartedAt.After(newest) {
			newest = run.StartedAt
			summary.LastRun = run
		}
	}
	if summary.TotalProcessed > 0 {
		summary.SuccessRate = float64(summary.TotalSucceeded) / float64(summary.TotalProcessed)
	}

	return summary, nil
}
