// Package backup produces fresh local clones of source repositories under a
// backup root. Backups are replace-in-place: whatever sits at the target
// path, including local commits a user made by hand, is discarded.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
)

// Engine clones repositories into the backup root.
type Engine struct {
	root   string
	auth   transport.AuthMethod
	logger *slog.Logger
}

// New creates a backup engine rooted at root. auth may be nil for anonymous
// or local access.
func New(root string, auth transport.AuthMethod, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{root: root, auth: auth, logger: logger}
}

// Backup replaces backup_root/<name> with a full working clone of the source
// repository. Failure is scoped to this repository.
func (e *Engine) Backup(ctx context.Context, repo *domain.Repository) error {
	if err := os.MkdirAll(e.root, 0o755); err != nil {
		return apperrors.NewBackupError("create backup root", err)
	}

	dest := filepath.Join(e.root, repo.Name)
	if err := os.RemoveAll(dest); err != nil {
		return apperrors.NewBackupError(fmt.Sprintf("remove stale backup of %s", repo.Name), err)
	}

	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:  repo.CloneURL,
		Auth: e.auth,
	})
	if err != nil {
		// A half-written clone is worse than no backup at all.
		_ = os.RemoveAll(dest)
		return apperrors.NewBackupError(fmt.Sprintf("clone %s", repo.Name), err)
	}

	e.logger.Info("backed up repository",
		slog.String("repo", repo.Name),
		slog.String("path", dest),
	)
	return nil
}
