package mirror

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Prober lists the advertised refs of a remote repository without cloning
// it. The orchestrator uses it to detect empty repositories lazily, at the
// point each repository is processed.
type Prober struct {
	auth transport.AuthMethod
}

// NewProber creates a ref prober authenticating with the given method.
// auth may be nil for anonymous or local access.
func NewProber(auth transport.AuthMethod) *Prober {
	return &Prober{auth: auth}
}

// RemoteRefCount returns the number of refs advertised by the remote at
// cloneURL. Zero means the repository has no branches or tags and both
// engines must skip it.
func (p *Prober) RemoteRefCount(ctx context.Context, cloneURL string) (int, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{cloneURL},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: p.auth})
	if err != nil {
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return 0, nil
		}
		return 0, err
	}

	return len(refs), nil
}
