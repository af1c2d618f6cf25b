package handlers

import (
	"net/http"
	"strconv"

	"agrotrace/internal/repository"

	"github.com/gin-gonic/gin"
)

const defaultAlertLimit = 100

// @Summary      List alerts
// @Tags         alerts
// @Produce      json
// @Param        sensor_id  query  int     false  "Filter by sensor"
// @Param        status     query  string  false  "Filter by status"  Enums(pending,in_progress,resolved,ignored)
// @Param        limit      query  int     false  "Max rows (default 100)"
// @Success      200  {object}  map[string]interface{}  "count, alerts"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/alerts [get]
// @Security     BearerAuth
func (h *Handler) getAlerts(c *gin.Context) {
	f := repository.AlertFilter{
		Status: c.Query("status"),
		Limit:  defaultAlertLimit,
	}
	if qs := c.Query("sensor_id"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			f.SensorID = v
		}
	}
	if qs := c.Query("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			f.Limit = v
		}
	}

	alerts, err := h.services.AlertLog.List(c.Request.Context(), f)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("alerts_list_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// Request DTO for resolving an alert.
type resolveRequest struct {
	Resolution string `json:"resolution" binding:"required"` // resolved | ignored
}

// @Summary      Resolve an alert
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "Alert id"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/alerts/{id}/resolve [post]
// @Security     BearerAuth
func (h *Handler) resolveAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	var input resolveRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	if err := h.services.AlertLog.Resolve(c.Request.Context(), id, input.Resolution); err != nil {
		if h.log != nil {
			h.log.Infow("alert_resolve_failed", "id", id, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
