package storage

import (
	"context"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
)

// Storage is the abstract interface for the run-history persistence layer
type Storage interface {
	// Run operations
	SaveRun(ctx context.Context, run *domain.SyncRun) error
	GetRun(ctx context.Context, id string) (*domain.SyncRun, error)
	GetRecentRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)

	// Per-repository outcome operations
	SaveRepoOutcomes(ctx context.Context, outcomes []*domain.RepoOutcome) error
	GetRepoOutcomes(ctx context.Context, runID string) ([]*domain.RepoOutcome, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
