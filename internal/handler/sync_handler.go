package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecttracker/internal/service"
)

type SyncHandler struct {
	orchestrator *service.SyncOrchestrator
	progress     *service.ProgressService
	logger       *zap.Logger
}

func NewSyncHandler(orchestrator *service.SyncOrchestrator, progress *service.ProgressService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		progress:     progress,
		logger:       logger,
	}
}

// Run triggers the full daily sync synchronously and reports the tally.
func (h *SyncHandler) Run(c *gin.Context) {
	report, err := h.orchestrator.SyncDueToday(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error running task sync", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Enqueue pushes today's sync work onto the queue for the worker binary.
func (h *SyncHandler) Enqueue(c *gin.Context) {
	enqueued, err := h.orchestrator.EnqueueDueToday(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error enqueueing sync jobs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enqueued": enqueued})
}

// RecomputeMetrics runs the aggregator pass for rows due today, without a
// preceding sync.
func (h *SyncHandler) RecomputeMetrics(c *gin.Context) {
	updated, err := h.progress.RecomputeDueToday(c.Request.Context(), h.orchestrator.Today())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error recomputing progress metrics", err)
		return
	}
	if updated == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Nothing to update", "rows_updated": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows_updated": updated})
}

// SyncProject re-syncs one project and streams completed/total counters as
// server-sent events while tasks finish.
func (h *SyncHandler) SyncProject(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	progressCh := make(chan service.SyncProgress, 16)
	done := make(chan service.SyncReport, 1)
	go func() {
		report, err := h.orchestrator.SyncProject(c.Request.Context(), projectID, progressCh)
		if err != nil {
			h.logger.Error("Manual project sync failed",
				zap.Int("project_id", projectID),
				zap.Error(err),
			)
		}
		done <- report
	}()

	c.Stream(func(w io.Writer) bool {
		update, open := <-progressCh
		if !open {
			report := <-done
			c.SSEvent("done", report)
			return false
		}
		c.SSEvent("progress", update)
		return true
	})
}
