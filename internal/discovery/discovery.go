package discovery

import (
	"context"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
)

// Discoverer lists every repository owned by or accessible to the configured
// user on the source host. The returned set is complete for the run: a
// discovery failure discards everything and no partial sync happens.
type Discoverer interface {
	Discover(ctx context.Context) ([]*domain.Repository, error)
}
