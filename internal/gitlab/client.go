package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
)

// ProvisionResult tells whether the target project was created fresh or
// already existed on the secondary host.
type ProvisionResult string

const (
	ProvisionCreated ProvisionResult = "created"
	ProvisionReused  ProvisionResult = "reused"
)

// Client is a minimal GitLab API client covering project provisioning.
type Client struct {
	baseURL    string
	username   string
	token      string
	httpClient *http.Client
}

// NewClient creates a new GitLab client. baseURL is the host root, e.g.
// "https://gitlab.com"; username is the namespace projects live under.
func NewClient(baseURL, username, token string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// createProjectRequest is the POST /projects payload
type createProjectRequest struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

// EnsureProject idempotently provisions a private project with the given
// name. A 2xx response counts as created; a client error reporting the name
// as already taken counts as reuse. Anything else fails provisioning and the
// repository's mirror step is skipped.
func (c *Client) EnsureProject(ctx context.Context, name string) (ProvisionResult, error) {
	payload, err := json.Marshal(createProjectRequest{Name: name, Visibility: "private"})
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode project payload", err)
	}

	url := c.baseURL + "/api/v4/projects"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewProvisionError("failed to build create request", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewProvisionError(fmt.Sprintf("create project %s", name), err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ProvisionCreated, nil
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusConflict:
		// "has already been taken" and friends: create-or-reuse
		return ProvisionReused, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", apperrors.NewAuthError("secondary host rejected credentials", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	default:
		return "", apperrors.NewProvisionError(fmt.Sprintf("create project %s", name), fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
}

// RemoteURL returns the HTTPS clone URL of a project in the configured
// namespace. Authentication is supplied separately at transport level,
// never embedded in the URL.
func (c *Client) RemoteURL(name string) string {
	return fmt.Sprintf("%s/%s/%s.git", c.baseURL, c.username, name)
}
