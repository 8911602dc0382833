package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/state"
)

type stubStore struct {
	runs     map[string]*domain.SyncRun
	recent   []*domain.SyncRun
	outcomes map[string][]*domain.RepoOutcome
}

func (s *stubStore) SaveRun(ctx context.Context, run *domain.SyncRun) error { return nil }
func (s *stubStore) GetRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	return s.runs[id], nil
}
func (s *stubStore) GetRecentRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}
func (s *stubStore) SaveRepoOutcomes(ctx context.Context, outcomes []*domain.RepoOutcome) error {
	return nil
}
func (s *stubStore) GetRepoOutcomes(ctx context.Context, runID string) ([]*domain.RepoOutcome, error) {
	return s.outcomes[runID], nil
}
func (s *stubStore) Migrate(ctx context.Context) error { return nil }
func (s *stubStore) Close() error                      { return nil }

func newTestRouter(t *testing.T, st *state.Store, store *stubStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if st == nil {
		st = state.NewStore(filepath.Join(t.TempDir(), "state"))
	}
	if store == nil {
		store = &stubStore{}
	}
	return SetupRoutes(NewHandler(st, store))
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := doGet(newTestRouter(t, nil, nil), "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetStateNoHistory(t *testing.T) {
	w := doGet(newTestRouter(t, nil, nil), "/api/v1/state")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.SyncStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Data.GateOpen, "no prior sync means the gate is open")
	require.Nil(t, resp.Data.LastSyncAt)
	require.Nil(t, resp.Data.NextEligibleAt)
}

func TestGetStateRecentSyncClosesGate(t *testing.T) {
	st := state.NewStore(filepath.Join(t.TempDir(), "state"))
	last := time.Now().Add(-time.Hour)
	require.NoError(t, st.Save(last))

	w := doGet(newTestRouter(t, st, nil), "/api/v1/state")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.SyncStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Data.GateOpen)
	require.NotNil(t, resp.Data.LastSyncAt)
	require.NotNil(t, resp.Data.NextEligibleAt)
	require.WithinDuration(t, last.Add(state.GateInterval), *resp.Data.NextEligibleAt, time.Second)
}

func TestGetRuns(t *testing.T) {
	store := &stubStore{recent: []*domain.SyncRun{
		{ID: "r2", Mode: domain.ModeBoth, Processed: 3, Succeeded: 3},
		{ID: "r1", Mode: domain.ModeMirror, Processed: 2, Succeeded: 1},
	}}

	w := doGet(newTestRouter(t, nil, store), "/api/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []*domain.SyncRun `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "r2", resp.Data[0].ID)
}

func TestGetRunOutcomes(t *testing.T) {
	store := &stubStore{
		runs: map[string]*domain.SyncRun{"r1": {ID: "r1", Mode: domain.ModeBoth}},
		outcomes: map[string][]*domain.RepoOutcome{"r1": {
			{ID: "o1", RunID: "r1", Repo: "demo", Status: domain.OutcomeSuccess, Mirrored: true, BackedUp: true},
		}},
	}

	w := doGet(newTestRouter(t, nil, store), "/api/v1/runs/r1/repos")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Run   *domain.SyncRun       `json:"run"`
			Repos []*domain.RepoOutcome `json:"repos"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "r1", resp.Data.Run.ID)
	require.Len(t, resp.Data.Repos, 1)
	require.Equal(t, "demo", resp.Data.Repos[0].Repo)
}

func TestGetRunOutcomesNotFound(t *testing.T) {
	w := doGet(newTestRouter(t, nil, &stubStore{}), "/api/v1/runs/ghost/repos")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSummary(t *testing.T) {
	store := &stubStore{recent: []*domain.SyncRun{
		{ID: "r1", StartedAt: time.Now(), Processed: 4, Succeeded: 2},
	}}

	w := doGet(newTestRouter(t, nil, store), "/api/v1/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			TotalRuns   int     `json:"total_runs"`
			SuccessRate float64 `json:"success_rate"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Data.TotalRuns)
	require.InDelta(t, 0.5, resp.Data.SuccessRate, 1e-9)
}
