package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		processed INTEGER NOT NULL,
		succeeded INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);

	CREATE TABLE IF NOT EXISTS repo_outcomes (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		repo TEXT NOT NULL,
		mirrored INTEGER NOT NULL,
		backed_up INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_repo_outcomes_run_id ON repo_outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_repo_outcomes_repo ON repo_outcomes(repo);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun persists one run history record
func (s *sqliteStorage) SaveRun(ctx context.Context, run *domain.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_runs (id, mode, started_at, finished_at, processed, succeeded)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Mode), run.StartedAt, run.FinishedAt, run.Processed, run.Succeeded)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by id
func (s *sqliteStorage) GetRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, started_at, finished_at, processed, succeeded
		FROM sync_runs WHERE id = ?
	`, id)

	run := &domain.SyncRun{}
	var mode string
	if err := row.Scan(&run.ID, &mode, &run.StartedAt, &run.FinishedAt, &run.Processed, &run.Succeeded); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Mode = domain.SyncMode(mode)
	return run, nil
}

// GetRecentRuns retrieves the most recent runs, newest first
func (s *sqliteStorage) GetRecentRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, processed, succeeded
		FROM sync_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.SyncRun
	for rows.Next() {
		run := &domain.SyncRun{}
		var mode string
		if err := rows.Scan(&run.ID, &mode, &run.StartedAt, &run.FinishedAt, &run.Processed, &run.Succeeded); err != nil {
			return nil, err
		}
		run.Mode = domain.SyncMode(mode)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveRepoOutcomes persists the per-repository outcomes of one run
func (s *sqliteStorage) SaveRepoOutcomes(ctx context.Context, outcomes []*domain.RepoOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO repo_outcomes (id, run_id, repo, mirrored, backed_up, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, o.ID, o.RunID, o.Repo, o.Mirrored, o.BackedUp, string(o.Status), o.Error, o.CreatedAt); err != nil {
			return fmt.Errorf("failed to save outcome for %s: %w", o.Repo, err)
		}
	}

	return tx.Commit()
}

// GetRepoOutcomes retrieves all outcomes recorded for a run
func (s *sqliteStorage) GetRepoOutcomes(ctx context.Context, runID string) ([]*domain.RepoOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, repo, mirrored, backed_up, status, error, created_at
		FROM repo_outcomes WHERE run_id = ? ORDER BY repo
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.RepoOutcome
	for rows.Next() {
		o := &domain.RepoOutcome{}
		var status string
		if err := rows.Scan(&o.ID, &o.RunID, &o.Repo, &o.Mirrored, &o.BackedUp, &status, &o.Error, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.OutcomeStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
