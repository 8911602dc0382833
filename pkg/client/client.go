package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
)

// Client is the API client for the repo-sync status API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetState retrieves the persisted sync state and derived trigger gate
func (c *Client) GetState() (*domain.SyncStatus, error) {
	var response struct {
		Data *domain.SyncStatus `json:"data"`
	}
	if err := c.get("/api/v1/state", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRecentRuns retrieves the most recent runs, newest first
func (c *Client) GetRecentRuns(limit int) ([]*domain.SyncRun, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Data []*domain.SyncRun `json:"data"`
	}
	if err := c.get("/api/v1/runs", params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRunOutcomes retrieves one run and its per-repository outcomes
func (c *Client) GetRunOutcomes(runID string) (*domain.SyncRun, []*domain.RepoOutcome, error) {
	path := fmt.Sprintf("/api/v1/runs/%s/repos", runID)

	var response struct {
		Data struct {
			Run   *domain.SyncRun       `json:"run"`
			Repos []*domain.RepoOutcome `json:"repos"`
		} `json:"data"`
	}
	if err := c.get(path, nil, &response); err != nil {
		return nil, nil, err
	}
	return response.Data.Run, response.Data.Repos, nil
}

// get performs a GET request and decodes the JSON response
func (c *Client) get(path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
