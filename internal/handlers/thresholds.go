package handlers

import (
	"net/http"

	"agrotrace/internal/models"

	"github.com/gin-gonic/gin"
)

// Request DTO for creating or replacing a threshold config.
type thresholdRequest struct {
	SensorID  int      `json:"sensor_id" binding:"required"`
	Parameter string   `json:"parameter" binding:"required"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Active    *bool    `json:"active"`
	Critical  bool     `json:"critical"`
}

// @Summary      Create or replace a threshold config
// @Tags         thresholds
// @Accept       json
// @Produce      json
// @Param        input  body  thresholdRequest  true  "Threshold config"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/thresholds [put]
// @Security     BearerAuth
func (h *Handler) putThreshold(c *gin.Context) {
	var input thresholdRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	cfg := models.ThresholdConfig{
		SensorID:  input.SensorID,
		Parameter: input.Parameter,
		Min:       input.Min,
		Max:       input.Max,
		Active:    true,
		Critical:  input.Critical,
	}
	if input.Active != nil {
		cfg.Active = *input.Active
	}

	if err := h.services.Evaluator.SetThreshold(c.Request.Context(), cfg); err != nil {
		if h.log != nil {
			h.log.Infow("threshold_set_failed", "sensor", cfg.SensorID, "parameter", cfg.Parameter, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
