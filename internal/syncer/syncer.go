// Package syncer drives one sync run: discovery of the full repository set,
// dispatch of each non-empty repository to the mirror and/or backup engines,
// aggregation of counts, and the state-store update automatic triggers
// depend on.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadavilrahul/github-repo-sync/internal/discovery"
	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/storage"
)

// RefProber detects empty repositories by listing remote refs.
type RefProber interface {
	RemoteRefCount(ctx context.Context, cloneURL string) (int, error)
}

// MirrorEngine replicates one repository to the secondary host through a
// scratch directory owned by the calling worker.
type MirrorEngine interface {
	Mirror(ctx context.Context, repo *domain.Repository, scratch string) error
}

// BackupEngine replaces the local backup of one repository.
type BackupEngine interface {
	Backup(ctx context.Context, repo *domain.Repository) error
}

// StateStore persists the last successful sync timestamp.
type StateStore interface {
	Save(t time.Time) error
}

// ProgressFunc receives one callback per finished repository.
type ProgressFunc func(repo string, status domain.OutcomeStatus, done, total int)

// Options tunes one syncer instance.
type Options struct {
	// Parallel is the worker count. 1 (the default) preserves the strictly
	// sequential behavior: each repository finishes before the next starts.
	Parallel int
	// ScratchDir is the root under which each worker gets its own scratch
	// subdirectory for mirror staging.
	ScratchDir string
	// LogPath, when set, receives append-only run markers and per-repository
	// outcome lines.
	LogPath string
	// OnProgress, when set, is called after each repository completes.
	OnProgress ProgressFunc
}

// Syncer orchestrates sync runs. All collaborators are injected; the syncer
// holds no process-global state.
type Syncer struct {
	discoverer discovery.Discoverer
	prober     RefProber
	mirror     MirrorEngine
	backup     BackupEngine
	state      StateStore
	store      storage.Storage
	opts       Options
	logger     *slog.Logger
}

// New creates a syncer. store may be nil when run history is not wanted;
// everything else is required.
func New(disc discovery.Discoverer, prober RefProber, mirror MirrorEngine, backup BackupEngine, state StateStore, store storage.Storage, opts Options, logger *slog.Logger) *Syncer {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		discoverer: disc,
		prober:     prober,
		mirror:     mirror,
		backup:     backup,
		state:      state,
		store:      store,
		opts:       opts,
		logger:     logger,
	}
}

// Run performs one sync run in the given mode. Discovery failures are fatal
// and return an error; per-repository failures are absorbed into the result
// counts. The state store is updated only when at least one repository
// succeeded, so a fully failed run leaves the trigger gate untouched.
func (s *Syncer) Run(ctx context.Context, mode domain.SyncMode) (*domain.RunResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown sync mode %q", mode)
	}

	runID := uuid.New().String()
	startedAt := time.Now()

	rlog := openRunLog(s.opts.LogPath, s.logger)
	defer rlog.Close()
	rlog.printf("sync run %s started mode=%s", runID, mode)

	s.logger.Info("starting sync run",
		slog.String("run_id", runID),
		slog.String("mode", string(mode)),
		slog.Int("parallel", s.opts.Parallel),
	)

	repos, err := s.discoverer.Discover(ctx)
	if err != nil {
		rlog.printf("sync run %s aborted: discovery failed: %v", runID, err)
		return nil, err
	}
	s.logger.Info("discovered repositories", slog.Int("count", len(repos)))

	outcomes := s.processAll(ctx, runID, mode, repos, rlog)

	result := &domain.RunResult{}
	for _, o := range outcomes {
		switch o.Status {
		case domain.OutcomeSuccess:
			result.Processed++
			result.Succeeded++
		case domain.OutcomeFailed:
			result.Processed++
		}
	}

	finishedAt := time.Now()
	if result.Succeeded > 0 {
		if err := s.state.Save(finishedAt); err != nil {
			s.logger.Warn("failed to persist sync state", slog.String("error", err.Error()))
		}
	}

	s.saveHistory(ctx, &domain.SyncRun{
		ID:         runID,
		Mode:       mode,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Processed:  result.Processed,
		Succeeded:  result.Succeeded,
	}, outcomes)

	rlog.printf("sync run %s finished processed=%d succeeded=%d", runID, result.Processed, result.Succeeded)
	s.logger.Info("sync run finished",
		slog.String("run_id", runID),
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
	)

	return result, nil
}

// processAll fans the repository set out to a bounded worker pool. Every
// worker owns its own scratch subdirectory, so no scratch state is ever
// shared between concurrent mirrors.
func (s *Syncer) processAll(ctx context.Context, runID string, mode domain.SyncMode, repos []*domain.Repository, rlog *runLog) []*domain.RepoOutcome {
	total := len(repos)
	jobs := make(chan *domain.Repository, total)

	var (
		mu       sync.Mutex
		outcomes = make([]*domain.RepoOutcome, 0, total)
		done     int
		wg       sync.WaitGroup
	)

	for i := 0; i < s.opts.Parallel; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			scratch := filepath.Join(s.opts.ScratchDir, fmt.Sprintf("worker-%d", workerID))
			for repo := range jobs {
				outcome := s.processRepo(ctx, runID, mode, repo, scratch)
				rlog.printf("repo %s: %s%s", repo.Name, outcome.Status, formatOutcomeError(outcome))

				mu.Lock()
				outcomes = append(outcomes, outcome)
				done++
				n := done
				mu.Unlock()

				if s.opts.OnProgress != nil {
					s.opts.OnProgress(repo.Name, outcome.Status, n, total)
				}
			}
		}(i)
	}

	for _, repo := range repos {
		jobs <- repo
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// processRepo handles one repository: lazy emptiness probe, then the engines
// the mode selects. The success criterion is explicit and mode-independent:
// a repository succeeds only when every selected engine succeeded. Mirror
// and backup are independent; a mirror failure never suppresses the backup
// attempt.
func (s *Syncer) processRepo(ctx context.Context, runID string, mode domain.SyncMode, repo *domain.Repository, scratch string) *domain.RepoOutcome {
	outcome := &domain.RepoOutcome{
		ID:        uuid.New().String(),
		RunID:     runID,
		Repo:      repo.Name,
		CreatedAt: time.Now(),
	}

	refs, err := s.prober.RemoteRefCount(ctx, repo.CloneURL)
	if err != nil {
		s.logger.Warn("ref listing failed",
			slog.String("repo", repo.Name),
			slog.String("error", err.Error()),
		)
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}
	if refs == 0 {
		repo.Empty = true
		s.logger.Info("skipping empty repository", slog.String("repo", repo.Name))
		outcome.Status = domain.OutcomeSkipped
		return outcome
	}

	var firstErr error

	if mode.IncludesMirror() {
		if err := s.mirror.Mirror(ctx, repo, scratch); err != nil {
			s.logger.Warn("mirror failed",
				slog.String("repo", repo.Name),
				slog.String("error", err.Error()),
			)
			firstErr = err
		} else {
			outcome.Mirrored = true
		}
	}

	if mode.IncludesBackup() {
		if err := s.backup.Backup(ctx, repo); err != nil {
			s.logger.Warn("backup failed",
				slog.String("repo", repo.Name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			outcome.BackedUp = true
		}
	}

	if firstErr != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = firstErr.Error()
	} else {
		outcome.Status = domain.OutcomeSuccess
	}
	return outcome
}

// saveHistory persists the run record and per-repository outcomes. History
// is informational; failures are logged, never fatal.
func (s *Syncer) saveHistory(ctx context.Context, run *domain.SyncRun, outcomes []*domain.RepoOutcome) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.Warn("failed to save run history", slog.String("error", err.Error()))
		return
	}
	if err := s.store.SaveRepoOutcomes(ctx, outcomes); err != nil {
		s.logger.Warn("failed to save repo outcomes", slog.String("error", err.Error()))
	}
}

func formatOutcomeError(o *domain.RepoOutcome) string {
	if o.Error == "" {
		return ""
	}
	return " - " + o.Error
}
