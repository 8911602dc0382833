package backup

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
)

func requireGitBinaries(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not in PATH")
	}
}

func initSource(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestBackupCreatesWorkingClone(t *testing.T) {
	requireGitBinaries(t)

	src := initSource(t, map[string]string{"README.md": "hello\n"})
	root := filepath.Join(t.TempDir(), "backups")
	engine := New(root, nil, nil)

	repo := &domain.Repository{Name: "demo", CloneURL: src}
	require.NoError(t, engine.Backup(context.Background(), repo))

	// A working clone, not a bare one: the checked-out file must be there.
	content, err := os.ReadFile(filepath.Join(root, "demo", "README.md"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))
}

func TestBackupReplacesExistingClone(t *testing.T) {
	requireGitBinaries(t)

	src := initSource(t, map[string]string{"README.md": "hello\n"})
	root := filepath.Join(t.TempDir(), "backups")
	engine := New(root, nil, nil)
	repo := &domain.Repository{Name: "demo", CloneURL: src}

	require.NoError(t, engine.Backup(context.Background(), repo))

	// Local edits inside the backup are discarded by the next run.
	scribble := filepath.Join(root, "demo", "local-notes.txt")
	require.NoError(t, os.WriteFile(scribble, []byte("do not lose me"), 0o644))

	require.NoError(t, engine.Backup(context.Background(), repo))
	_, err := os.Stat(scribble)
	require.True(t, os.IsNotExist(err), "backup must replace, not merge")
}

func TestBackupCloneFailureLeavesNoPartialClone(t *testing.T) {
	requireGitBinaries(t)

	root := filepath.Join(t.TempDir(), "backups")
	engine := New(root, nil, nil)
	repo := &domain.Repository{Name: "ghost", CloneURL: filepath.Join(t.TempDir(), "missing")}

	err := engine.Backup(context.Background(), repo)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeBackup, apperrors.Code(err))

	_, statErr := os.Stat(filepath.Join(root, "ghost"))
	require.True(t, os.IsNotExist(statErr))
}

func TestBackupFailureDoesNotTouchSiblings(t *testing.T) {
	requireGitBinaries(t)

	src := initSource(t, map[string]string{"a.txt": "a\n"})
	root := filepath.Join(t.TempDir(), "backups")
	engine := New(root, nil, nil)

	require.NoError(t, engine.Backup(context.Background(), &domain.Repository{Name: "keeper", CloneURL: src}))
	require.Error(t, engine.Backup(context.Background(), &domain.Repository{
		Name:     "ghost",
		CloneURL: filepath.Join(t.TempDir(), "missing"),
	}))

	_, err := os.Stat(filepath.Join(root, "keeper", "a.txt"))
	require.NoError(t, err, "an unrelated failure must not disturb existing backups")
}
