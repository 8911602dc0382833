package mirror

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
	"github.com/kadavilrahul/github-repo-sync/internal/gitlab"
)

// The file transport shells out to the git pack programs.
func requireGitBinaries(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"git-upload-pack", "git-receive-pack"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not in PATH", bin)
		}
	}
}

// localProvisioner plays the secondary host with a bare repository on disk.
type localProvisioner struct {
	target  string
	calls   int
	failure error
}

func (p *localProvisioner) EnsureProject(ctx context.Context, name string) (gitlab.ProvisionResult, error) {
	p.calls++
	if p.failure != nil {
		return "", p.failure
	}
	return gitlab.ProvisionCreated, nil
}

func (p *localProvisioner) RemoteURL(name string) string {
	return p.target
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func initSource(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "README.md", "hello\n")
	return repo, dir
}

func initBareTarget(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return dir
}

func refNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	repo, err := git.PlainOpen(path)
	require.NoError(t, err)
	iter, err := repo.References()
	require.NoError(t, err)
	names := make(map[string]bool)
	require.NoError(t, iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference {
			names[ref.Name().String()] = true
		}
		return nil
	}))
	return names
}

func TestMirrorReplicatesAllRefs(t *testing.T) {
	requireGitBinaries(t)

	src, srcDir := initSource(t)
	head, err := src.Head()
	require.NoError(t, err)
	require.NoError(t, src.Storer.SetReference(plumbing.NewHashReference("refs/heads/feature", head.Hash())))
	_, err = src.CreateTag("v1.0.0", head.Hash(), nil)
	require.NoError(t, err)

	prov := &localProvisioner{target: initBareTarget(t)}
	engine := New(prov, nil, nil, nil)

	repo := &domain.Repository{Name: "demo", CloneURL: srcDir}
	require.NoError(t, engine.Mirror(context.Background(), repo, filepath.Join(t.TempDir(), "scratch")))
	require.Equal(t, 1, prov.calls)

	refs := refNames(t, prov.target)
	require.True(t, refs["refs/heads/master"], "default branch missing on target: %v", refs)
	require.True(t, refs["refs/heads/feature"])
	require.True(t, refs["refs/tags/v1.0.0"])
}

func TestMirrorPrunesDeletedBranch(t *testing.T) {
	requireGitBinaries(t)

	src, srcDir := initSource(t)
	head, err := src.Head()
	require.NoError(t, err)
	require.NoError(t, src.Storer.SetReference(plumbing.NewHashReference("refs/heads/doomed", head.Hash())))

	prov := &localProvisioner{target: initBareTarget(t)}
	engine := New(prov, nil, nil, nil)
	repo := &domain.Repository{Name: "demo", CloneURL: srcDir}
	scratch := filepath.Join(t.TempDir(), "scratch")

	require.NoError(t, engine.Mirror(context.Background(), repo, scratch))
	require.True(t, refNames(t, prov.target)["refs/heads/doomed"])

	// Delete the branch on the source; the next mirror must propagate the
	// deletion, not merge the two ref sets.
	require.NoError(t, src.Storer.RemoveReference(plumbing.ReferenceName("refs/heads/doomed")))
	require.NoError(t, engine.Mirror(context.Background(), repo, scratch))

	refs := refNames(t, prov.target)
	require.False(t, refs["refs/heads/doomed"], "pruned branch survived on target: %v", refs)
	require.True(t, refs["refs/heads/master"])
}

func TestMirrorIdempotentWhenUpToDate(t *testing.T) {
	requireGitBinaries(t)

	_, srcDir := initSource(t)
	prov := &localProvisioner{target: initBareTarget(t)}
	engine := New(prov, nil, nil, nil)
	repo := &domain.Repository{Name: "demo", CloneURL: srcDir}
	scratch := filepath.Join(t.TempDir(), "scratch")

	require.NoError(t, engine.Mirror(context.Background(), repo, scratch))
	require.NoError(t, engine.Mirror(context.Background(), repo, scratch), "no-change push must not be an error")
}

func TestMirrorRebuildsScratch(t *testing.T) {
	requireGitBinaries(t)

	_, srcDir := initSource(t)
	prov := &localProvisioner{target: initBareTarget(t)}
	engine := New(prov, nil, nil, nil)

	scratch := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.MkdirAll(scratch, 0o755))
	leftover := filepath.Join(scratch, "stale-file")
	require.NoError(t, os.WriteFile(leftover, []byte("junk"), 0o644))

	repo := &domain.Repository{Name: "demo", CloneURL: srcDir}
	require.NoError(t, engine.Mirror(context.Background(), repo, scratch))

	_, err := os.Stat(leftover)
	require.True(t, os.IsNotExist(err), "scratch must be rebuilt from nothing")
}

func TestMirrorProvisionFailureStopsBeforeClone(t *testing.T) {
	_, srcDir := initSource(t)
	prov := &localProvisioner{failure: apperrors.NewProvisionError("target host said no", errors.New("503"))}
	engine := New(prov, nil, nil, nil)

	scratch := filepath.Join(t.TempDir(), "scratch")
	err := engine.Mirror(context.Background(), &domain.Repository{Name: "demo", CloneURL: srcDir}, scratch)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeProvision, apperrors.Code(err))

	_, statErr := os.Stat(scratch)
	require.True(t, os.IsNotExist(statErr), "no clone may happen when provisioning failed")
}

func TestMirrorCloneFailure(t *testing.T) {
	requireGitBinaries(t)

	prov := &localProvisioner{target: initBareTarget(t)}
	engine := New(prov, nil, nil, nil)

	err := engine.Mirror(context.Background(), &domain.Repository{
		Name:     "ghost",
		CloneURL: filepath.Join(t.TempDir(), "does-not-exist"),
	}, filepath.Join(t.TempDir(), "scratch"))
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeClone, apperrors.Code(err))
}

func TestProberCountsRefs(t *testing.T) {
	requireGitBinaries(t)

	src, srcDir := initSource(t)
	head, err := src.Head()
	require.NoError(t, err)
	require.NoError(t, src.Storer.SetReference(plumbing.NewHashReference("refs/heads/extra", head.Hash())))

	count, err := NewProber(nil).RemoteRefCount(context.Background(), srcDir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 2)
}

func TestProberEmptyRepository(t *testing.T) {
	requireGitBinaries(t)

	dir := t.TempDir()
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)

	count, err := NewProber(nil).RemoteRefCount(context.Background(), dir)
	require.NoError(t, err, "an empty remote is a skip, not an error")
	require.Zero(t, count)
}

func TestProberUnreachableRemote(t *testing.T) {
	requireGitBinaries(t)

	_, err := NewProber(nil).RemoteRefCount(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
