// Package mirror replicates source repositories to the secondary host:
// an idempotent create-or-reuse of the target project followed by a full
// mirror transfer that makes the target's ref set exactly match the source.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
	"github.com/kadavilrahul/github-repo-sync/internal/gitlab"
)

// mirrorRemoteName is the name registered for the secondary host inside the
// scratch clone. The scratch directory is discarded between repositories so
// the name never leaks anywhere.
const mirrorRemoteName = "mirror"

// mirrorRefSpec pushes every ref force-updated; combined with prune this
// makes the push a replace, not a merge: branch deletions and tag changes on
// the source propagate to the target.
const mirrorRefSpec = "+refs/*:refs/*"

// Provisioner ensures the target project exists on the secondary host and
// yields its clone URL.
type Provisioner interface {
	EnsureProject(ctx context.Context, name string) (gitlab.ProvisionResult, error)
	RemoteURL(name string) string
}

// Engine mirrors repositories to the secondary host.
type Engine struct {
	provisioner Provisioner
	sourceAuth  transport.AuthMethod
	targetAuth  transport.AuthMethod
	logger      *slog.Logger
}

// New creates a mirror engine. sourceAuth authenticates clones from the
// source host, targetAuth authenticates pushes to the secondary host; either
// may be nil for anonymous or local access.
func New(provisioner Provisioner, sourceAuth, targetAuth transport.AuthMethod, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provisioner: provisioner,
		sourceAuth:  sourceAuth,
		targetAuth:  targetAuth,
		logger:      logger,
	}
}

// Mirror provisions the target project and pushes a full mirror of the
// source repository through the scratch directory. Any failure is scoped to
// this repository; the caller continues with the next one. A failed mirror
// never suppresses the local backup of the same repository.
func (e *Engine) Mirror(ctx context.Context, repo *domain.Repository, scratch string) error {
	result, err := e.provisioner.EnsureProject(ctx, repo.Name)
	if err != nil {
		return err
	}
	e.logger.Debug("target project ready",
		slog.String("repo", repo.Name),
		slog.String("provision", string(result)),
	)

	// Stale remote configuration or partial clone state from a previous
	// repository corrupts the next push; the scratch path is always rebuilt
	// from nothing.
	if err := os.RemoveAll(scratch); err != nil {
		return apperrors.NewCloneError(fmt.Sprintf("clear scratch dir for %s", repo.Name), err)
	}

	local, err := git.PlainCloneContext(ctx, scratch, true, &git.CloneOptions{
		URL:    repo.CloneURL,
		Auth:   e.sourceAuth,
		Mirror: true,
	})
	if err != nil {
		return apperrors.NewCloneError(fmt.Sprintf("mirror clone %s", repo.Name), err)
	}

	remote, err := local.CreateRemote(&gitconfig.RemoteConfig{
		Name: mirrorRemoteName,
		URLs: []string{e.provisioner.RemoteURL(repo.Name)},
	})
	if err != nil {
		return apperrors.NewPushError(fmt.Sprintf("register mirror remote for %s", repo.Name), err)
	}

	err = remote.PushContext(ctx, &git.PushOptions{
		RemoteName: mirrorRemoteName,
		RefSpecs:   []gitconfig.RefSpec{mirrorRefSpec},
		Auth:       e.targetAuth,
		Prune:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return apperrors.NewPushError(fmt.Sprintf("mirror push %s", repo.Name), err)
	}

	e.logger.Info("mirrored repository",
		slog.String("repo", repo.Name),
		slog.String("provision", string(result)),
	)
	return nil
}
