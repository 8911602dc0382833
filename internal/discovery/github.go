package discovery

import (
	"context"
	"net/http"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
)

// pageSize is the listing page size requested from the GitHub API.
const pageSize = 100

// githubDiscoverer implements Discoverer using the GitHub API
type githubDiscoverer struct {
	client      *github.Client
	rateLimiter RateLimiter
}

// NewGitHubDiscoverer creates a discoverer for the authenticated user
func NewGitHubDiscoverer(token string) Discoverer {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	return newGitHubDiscoverer(client)
}

func newGitHubDiscoverer(client *github.Client) *githubDiscoverer {
	return &githubDiscoverer{
		client:      client,
		rateLimiter: NewRateLimiter(),
	}
}

// Discover retrieves all repositories owned by the authenticated user.
// Pages of size 100 are accumulated until the API reports no next page.
// Any listing error is fatal for the whole run; pages already collected
// are discarded, never partially synced.
func (d *githubDiscoverer) Discover(ctx context.Context) ([]*domain.Repository, error) {
	if err := d.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var all []*domain.Repository
	opts := &github.RepositoryListOptions{
		Affiliation: "owner",
		Visibility:  "all",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}

	for {
		repos, resp, err := d.client.Repositories.List(ctx, "", opts)
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return nil, apperrors.NewAuthError("source host rejected credentials", err)
			}
			return nil, apperrors.NewDiscoveryError("failed to list repositories", err)
		}

		d.updateRateLimitFromResponse(resp)

		for _, repo := range repos {
			cloneURL := repo.GetCloneURL()
			all = append(all, &domain.Repository{
				Name:     domain.NameFromCloneURL(cloneURL),
				CloneURL: cloneURL,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := d.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (d *githubDiscoverer) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Remaining >= 0 {
		d.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}
