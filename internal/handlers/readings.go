package handlers

import (
	"errors"
	"net/http"
	"time"

	"agrotrace/internal/models"
	"agrotrace/internal/service"

	"github.com/gin-gonic/gin"
)

// Request DTO for the HTTP telemetry producer.
type readingRequest struct {
	DeviceID     string             `json:"device_id" binding:"required"`
	Measurements map[string]float64 `json:"measurements" binding:"required"`
	Timestamp    *time.Time         `json:"timestamp,omitempty"`
}

// @Summary      Ingest a telemetry payload
// @Description  Accepts one reading from a sensor; out-of-range measurements are dropped individually.
// @Tags         readings
// @Accept       json
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/readings [post]
// @Security     BearerAuth
func (h *Handler) postReading(c *gin.Context) {
	var input readingRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	raw := models.RawReading{
		DeviceID:     input.DeviceID,
		Measurements: input.Measurements,
	}
	if input.Timestamp != nil {
		raw.Timestamp = *input.Timestamp
	}

	if err := h.services.Ingest(c.Request.Context(), raw); err != nil {
		if errors.Is(err, service.ErrUnknownSensor) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if h.log != nil {
			h.log.Errorw("reading_ingest_failed", "device", input.DeviceID, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
