package handlers

import (
	"net/http"
	"strconv"

	"agrotrace/internal/repository"

	"github.com/gin-gonic/gin"
)

const defaultSyncLimit = 100

// @Summary      Ledger sync queue summary
// @Tags         sync
// @Produce      json
// @Success      200  {object}  models.SyncStatus
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sync/status [get]
// @Security     BearerAuth
func (h *Handler) getSyncStatus(c *gin.Context) {
	st, err := h.services.LedgerSync.Status(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("sync_status_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync status"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      List ledger sync jobs
// @Tags         sync
// @Produce      json
// @Param        status       query  string  false  "Filter by status"  Enums(pending,processing,confirmed,failed)
// @Param        entity_type  query  string  false  "Filter by entity type"
// @Param        limit        query  int     false  "Max rows (default 100)"
// @Success      200  {object}  map[string]interface{}  "count, jobs"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sync/jobs [get]
// @Security     BearerAuth
func (h *Handler) getSyncJobs(c *gin.Context) {
	f := repository.SyncFilter{
		Status:     c.Query("status"),
		EntityType: c.Query("entity_type"),
		Limit:      defaultSyncLimit,
	}
	if qs := c.Query("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			f.Limit = v
		}
	}

	jobs, err := h.services.LedgerSync.Jobs(c.Request.Context(), f)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("sync_jobs_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// @Summary      Requeue a failed sync job
// @Description  Puts the job back on the queue regardless of how many attempts it has burned.
// @Tags         sync
// @Produce      json
// @Param        id  path  int  true  "Job id"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/sync/jobs/{id}/retry [post]
// @Security     BearerAuth
func (h *Handler) retrySyncJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	if err := h.services.LedgerSync.Retry(c.Request.Context(), id); err != nil {
		if h.log != nil {
			h.log.Infow("sync_retry_failed", "id", id, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}
