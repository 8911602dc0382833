package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kadavilrahul/github-repo-sync/internal/aggregator"
	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/state"
	"github.com/kadavilrahul/github-repo-sync/internal/storage"
)

// Handler handles API requests
type Handler struct {
	state      *state.Store
	storage    storage.Storage
	aggregator aggregator.Aggregator
}

// NewHandler creates a new API handler
func NewHandler(st *state.Store, store storage.Storage) *Handler {
	return &Handler{
		state:      st,
		storage:    store,
		aggregator: aggregator.NewAggregator(store),
	}
}

// HealthCheck reports service liveness
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetState returns the persisted sync state and derived trigger gate
// GET /api/v1/state
func (h *Handler) GetState(c *gin.Context) {
	last, ok, err := h.state.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := &domain.SyncStatus{GateOpen: true}
	if ok {
		status.LastSyncAt = &last
		next := last.Add(state.GateInterval)
		status.NextEligibleAt = &next
		status.GateOpen = time.Since(last) >= state.GateInterval
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

// GetRuns returns the most recent runs, newest first
// GET /api/v1/runs?limit=N
func (h *Handler) GetRuns(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.storage.GetRecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

// GetRunOutcomes returns the per-repository outcomes of one run
// GET /api/v1/runs/:id/repos
func (h *Handler) GetRunOutcomes(c *gin.Context) {
	id := c.Param("id")

	run, err := h.storage.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	outcomes, err := h.storage.GetRepoOutcomes(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"run": run, "repos": outcomes}})
}

// GetSummary returns an aggregate view over the recent run history
// GET /api/v1/summary?window=N
func (h *Handler) GetSummary(c *gin.Context) {
	window := 20
	if raw := c.Query("window"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			window = n
		}
	}

	summary, err := h.aggregator.Summarize(c.Request.Context(), window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
