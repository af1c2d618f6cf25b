package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"agrotrace/internal/hub"
	"agrotrace/internal/logger"
	"agrotrace/internal/metrics"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

// DefaultDedupWindow suppresses repeat alerts for a tuple that already has
// an unresolved alert younger than this.
const DefaultDedupWindow = 2 * time.Hour

// Severity tier cut-offs on the normalized overshoot ratio.
const (
	tierMediumRatio   = 0.10
	tierHighRatio     = 0.25
	tierCriticalRatio = 0.50
)

// EvaluatorService checks readings against the active threshold configuration
// and raises alerts. One alert at most per (sensor, parameter) per evaluation;
// the cooldown window keeps an oscillating sensor from storming.
type EvaluatorService struct {
	thresholds  repository.ThresholdRepo
	alerts      repository.AlertRepo
	hub         *hub.Hub
	dedupWindow time.Duration
	log         *logger.Logger
}

func NewEvaluatorService(
	thresholds repository.ThresholdRepo,
	alerts repository.AlertRepo,
	h *hub.Hub,
	dedupWindow time.Duration,
	log *logger.Logger,
) *EvaluatorService {
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	return &EvaluatorService{
		thresholds:  thresholds,
		alerts:      alerts,
		hub:         h,
		dedupWindow: dedupWindow,
		log:         log,
	}
}

// Evaluate runs one reading through the sensor's active thresholds, persists
// any new alerts and publishes them to the hub. Per-parameter errors are
// logged and never abort the sibling parameters.
func (s *EvaluatorService) Evaluate(ctx context.Context, sensor models.Sensor, reading models.Reading) ([]models.Alert, error) {
	configs, err := s.thresholds.ListActive(ctx, sensor.ID)
	if err != nil {
		return nil, fmt.Errorf("load thresholds for sensor %d: %w", sensor.ID, err)
	}

	var created []models.Alert
	for _, cfg := range configs {
		value, present := reading.Measurements[cfg.Parameter]
		if !present {
			continue
		}
		bound, violated := violatedBound(value, cfg)
		if !violated {
			continue
		}

		alert := models.Alert{
			SensorID:       sensor.ID,
			Parameter:      cfg.Parameter,
			Severity:       severityFor(value, bound, cfg),
			Message:        violationMessage(sensor.Name, cfg.Parameter, value, bound),
			ObservedValue:  value,
			ThresholdValue: bound,
			Status:         models.AlertPending,
			CreatedAt:      reading.Timestamp,
		}

		stored, err := s.alerts.CreateIfNoRecent(ctx, alert, s.dedupWindow)
		if err != nil {
			if s.log != nil {
				s.log.Errorw("alert_create_failed", "sensor", sensor.ID, "parameter", cfg.Parameter, "err", err)
			}
			continue
		}
		if stored == nil {
			metrics.AlertsSuppressed.Inc()
			continue
		}

		metrics.AlertsGenerated.WithLabelValues(stored.Severity).Inc()
		created = append(created, *stored)
		s.hub.Publish(models.Event{
			Type:      models.EventAlertCreated,
			DeviceID:  sensor.DeviceID,
			SensorID:  sensor.ID,
			CompanyID: sensor.CompanyID,
			Data:      *stored,
		})
	}
	return created, nil
}

// RaiseOffline records a silence alert for a sensor that missed its expected
// reporting interval. It rides the same dedup discipline as threshold alerts.
func (s *EvaluatorService) RaiseOffline(ctx context.Context, sensor models.Sensor, silentFor time.Duration) (*models.Alert, error) {
	alert := models.Alert{
		SensorID:       sensor.ID,
		Parameter:      models.KindOffline,
		Severity:       models.SeverityHigh,
		Message:        fmt.Sprintf("%s has sent no data for %s", sensor.Name, silentFor.Round(time.Minute)),
		ObservedValue:  silentFor.Seconds(),
		ThresholdValue: float64(sensor.ReportIntervalS),
		Status:         models.AlertPending,
	}

	stored, err := s.alerts.CreateIfNoRecent(ctx, alert, s.dedupWindow)
	if err != nil {
		return nil, fmt.Errorf("create offline alert for sensor %d: %w", sensor.ID, err)
	}
	if stored == nil {
		metrics.AlertsSuppressed.Inc()
		return nil, nil
	}

	metrics.AlertsGenerated.WithLabelValues(stored.Severity).Inc()
	s.hub.Publish(models.Event{
		Type:      models.EventAlertCreated,
		DeviceID:  sensor.DeviceID,
		SensorID:  sensor.ID,
		CompanyID: sensor.CompanyID,
		Data:      *stored,
	})
	return stored, nil
}

// SetThreshold creates or replaces the threshold config for the sensor and
// parameter. At least one bound is required, and min must stay below max.
func (s *EvaluatorService) SetThreshold(ctx context.Context, cfg models.ThresholdConfig) error {
	if cfg.SensorID == 0 || cfg.Parameter == "" {
		return errInvalidThreshold
	}
	if cfg.Min == nil && cfg.Max == nil {
		return errInvalidThreshold
	}
	if cfg.Min != nil && cfg.Max != nil && *cfg.Min >= *cfg.Max {
		return errInvalidThreshold
	}
	return s.thresholds.Upsert(ctx, cfg)
}

// violatedBound returns the crossed bound, if any. A nil min or max means
// unbounded on that side.
func violatedBound(value float64, cfg models.ThresholdConfig) (float64, bool) {
	if cfg.Min != nil && value < *cfg.Min {
		return *cfg.Min, true
	}
	if cfg.Max != nil && value > *cfg.Max {
		return *cfg.Max, true
	}
	return 0, false
}

// severityFor maps normalized overshoot to a tier. The ratio divides the
// distance past the bound by the config's span (or the bound's own magnitude
// when only one bound exists), so severity is deterministic and never
// decreases as the overshoot grows. A critical-flagged parameter escalates
// any violation straight to critical.
func severityFor(value, bound float64, cfg models.ThresholdConfig) string {
	if cfg.Critical {
		return models.SeverityCritical
	}

	span := 0.0
	if cfg.Min != nil && cfg.Max != nil && *cfg.Max > *cfg.Min {
		span = *cfg.Max - *cfg.Min
	} else {
		span = math.Abs(bound)
	}
	if span == 0 {
		span = 1
	}

	ratio := math.Abs(value-bound) / span
	switch {
	case ratio < tierMediumRatio:
		return models.SeverityLow
	case ratio < tierHighRatio:
		return models.SeverityMedium
	case ratio < tierCriticalRatio:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

func violationMessage(sensorName, parameter string, value, bound float64) string {
	if value < bound {
		return fmt.Sprintf("%s on %s is %.2f, below the minimum of %.2f", parameter, sensorName, value, bound)
	}
	return fmt.Sprintf("%s on %s is %.2f, above the maximum of %.2f", parameter, sensorName, value, bound)
}
