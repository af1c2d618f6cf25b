package service

import (
	"context"
	"fmt"
	"time"

	"agrotrace/internal/hub"
	"agrotrace/internal/logger"
	"agrotrace/internal/metrics"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

const (
	defaultPersistAttempts = 3
	defaultPersistDelay    = 200 * time.Millisecond
)

// IngestConfig tunes the listener's bounded persistence retry.
type IngestConfig struct {
	PersistAttempts int
	PersistDelay    time.Duration
}

// IngestService is the single entry point for telemetry, whichever producer
// delivers it. Producers assume at-least-once delivery: a duplicate payload
// lands as a duplicate history row, and the evaluator's cooldown keeps the
// duplicate from raising a second alert.
type IngestService struct {
	validator *Validator
	readings  repository.ReadingRepo
	sensors   repository.SensorRepo
	evaluator Evaluator
	hub       *hub.Hub
	cfg       IngestConfig
	log       *logger.Logger
}

func NewIngestService(
	validator *Validator,
	readings repository.ReadingRepo,
	sensors repository.SensorRepo,
	evaluator Evaluator,
	h *hub.Hub,
	cfg IngestConfig,
	log *logger.Logger,
) *IngestService {
	if cfg.PersistAttempts <= 0 {
		cfg.PersistAttempts = defaultPersistAttempts
	}
	if cfg.PersistDelay <= 0 {
		cfg.PersistDelay = defaultPersistDelay
	}
	return &IngestService{
		validator: validator,
		readings:  readings,
		sensors:   sensors,
		evaluator: evaluator,
		hub:       h,
		cfg:       cfg,
		log:       log,
	}
}

// Ingest routes one payload through validation, persistence, evaluation and
// broadcast. Dropped measurements are logged per-parameter and never abort
// their siblings; persistence is retried a bounded number of times and then
// the message is dropped with a surfaced error so one bad payload cannot
// stall the sensors behind it.
func (s *IngestService) Ingest(ctx context.Context, raw models.RawReading) error {
	start := time.Now()
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	sensor, reading, dropped, err := s.validator.Validate(ctx, raw)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues("rejected").Inc()
		return err
	}
	for _, dropErr := range dropped {
		metrics.MeasurementsDropped.Inc()
		if s.log != nil {
			s.log.Warnw("measurement_dropped", "device", raw.DeviceID, "reason", dropErr)
		}
	}
	if len(reading.Measurements) == 0 {
		metrics.ReadingsIngested.WithLabelValues("rejected").Inc()
		return fmt.Errorf("device %q: no valid measurements in payload", raw.DeviceID)
	}

	id, err := s.persistWithRetry(ctx, reading)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: store reading for device %q: %v", ErrPersistenceFailure, raw.DeviceID, err)
	}
	reading.ID = id
	metrics.ReadingsIngested.WithLabelValues("stored").Inc()

	if err := s.sensors.TouchLastSeen(ctx, sensor.ID, reading.Timestamp); err != nil && s.log != nil {
		s.log.Warnw("touch_last_seen_failed", "sensor", sensor.ID, "err", err)
	}

	if _, err := s.evaluator.Evaluate(ctx, *sensor, reading); err != nil && s.log != nil {
		s.log.Errorw("evaluate_failed", "sensor", sensor.ID, "err", err)
	}

	s.hub.Publish(models.Event{
		Type:      models.EventSensorUpdate,
		DeviceID:  sensor.DeviceID,
		SensorID:  sensor.ID,
		CompanyID: sensor.CompanyID,
		Data: map[string]any{
			"measurements": reading.Measurements,
			"timestamp":    reading.Timestamp,
		},
	})
	return nil
}

// persistWithRetry attempts the append a bounded number of times, waiting
// cfg.PersistDelay between attempts, and respects context cancellation so a
// stuck store cannot block the listener indefinitely.
func (s *IngestService) persistWithRetry(ctx context.Context, reading models.Reading) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.PersistAttempts; attempt++ {
		id, err := s.readings.Append(ctx, reading)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if s.log != nil {
			s.log.Warnw("reading_persist_retry", "sensor", reading.SensorID, "attempt", attempt, "err", err)
		}
		if attempt == s.cfg.PersistAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.cfg.PersistDelay):
		}
	}
	return 0, lastErr
}
