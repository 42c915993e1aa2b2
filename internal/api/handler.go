package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"glsearch/internal/aggregator"
	apperrors "glsearch/internal/errors"
	"glsearch/internal/storage"
)

// Handler handles API requests
type Handler struct {
	aggregator aggregator.Aggregator
	storage    storage.Storage
}

// NewHandler creates a new API handler
func NewHandler(agg aggregator.Aggregator, store storage.Storage) *Handler {
	return &Handler{
		aggregator: agg,
		storage:    store,
	}
}

// HealthCheck returns the service health
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetRuns returns summaries of the most recent search runs
// GET /api/v1/runs
func (h *Handler) GetRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	summaries, err := h.aggregator.ListRunSummaries(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summaries,
	})
}

// GetRun returns one run's summary
// GET /api/v1/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("id")

	summary, err := h.aggregator.SummarizeRun(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetRunResults returns one run's per-project results in batch order
// GET /api/v1/runs/:id/results
func (h *Handler) GetRunResults(c *gin.Context) {
	runID := c.Param("id")

	// Resolve the run first so a missing ID is a 404, not an empty list
	if _, err := h.storage.GetRun(c.Request.Context(), runID); err != nil {
		respondError(c, err)
		return
	}

	results, err := h.storage.GetResults(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": results,
	})
}

// respondError maps application errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsUnauthorized(err):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}
