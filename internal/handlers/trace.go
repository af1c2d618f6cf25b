package handlers

import (
	"net/http"
	"strconv"
	"time"

	"agrotrace/internal/models"

	"github.com/gin-gonic/gin"
)

// Request DTO for recording a supply-chain event.
type traceEventRequest struct {
	EntityType string     `json:"entity_type" binding:"required"`
	LotID      int64      `json:"lot_id" binding:"required"`
	Actor      string     `json:"actor" binding:"required"`
	Details    any        `json:"details,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// @Summary      Record a supply-chain event
// @Description  Appends the event to the trace and enqueues its ledger sync job in the same transaction.
// @Tags         trace
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]int64  "event_id, sync_job_id"
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/trace/events [post]
// @Security     BearerAuth
func (h *Handler) postTraceEvent(c *gin.Context) {
	var input traceEventRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	ev := models.TraceEvent{
		EntityType: input.EntityType,
		LotID:      input.LotID,
		Actor:      input.Actor,
		Details:    input.Details,
	}
	if input.OccurredAt != nil {
		ev.OccurredAt = *input.OccurredAt
	}

	eventID, jobID, err := h.services.Tracer.Record(c.Request.Context(), ev)
	if err != nil {
		if h.log != nil {
			h.log.Infow("trace_record_failed", "lot", input.LotID, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"event_id":    eventID,
		"sync_job_id": jobID,
	})
}

// @Summary      Trace history for a lot
// @Tags         trace
// @Produce      json
// @Param        id  path  int  true  "Lot id"
// @Success      200  {object}  map[string]interface{}  "count, events"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/trace/lots/{id}/history [get]
// @Security     BearerAuth
func (h *Handler) getLotHistory(c *gin.Context) {
	lotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || lotID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot id"})
		return
	}

	events, err := h.services.Tracer.History(c.Request.Context(), lotID)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("trace_history_failed", "lot", lotID, "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}
