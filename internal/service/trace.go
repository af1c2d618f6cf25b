package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agrotrace/internal/logger"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

var errInvalidEntityType = errors.New("invalid entity type")

var validEntityTypes = map[string]bool{
	models.EntityLot:        true,
	models.EntityHarvest:    true,
	models.EntityProcessing: true,
	models.EntityTransfer:   true,
}

// TraceService records supply-chain events. Recording commits the event and
// its ledger sync job together; the ledger catches up asynchronously.
type TraceService struct {
	trace repository.TraceRepo
	log   *logger.Logger
}

func NewTraceService(trace repository.TraceRepo, log *logger.Logger) *TraceService {
	return &TraceService{trace: trace, log: log}
}

// Record validates and persists one domain event, returning the event id and
// the id of the sync job created alongside it.
func (s *TraceService) Record(ctx context.Context, ev models.TraceEvent) (int64, int64, error) {
	if !validEntityTypes[ev.EntityType] {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidEntityType, ev.EntityType)
	}
	if ev.LotID <= 0 {
		return 0, 0, errors.New("lot id is required")
	}
	if ev.Actor == "" {
		return 0, 0, errors.New("actor is required")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, fmt.Errorf("marshal trace event payload: %w", err)
	}

	eventID, jobID, err := s.trace.RecordEvent(ctx, ev, string(payload))
	if err != nil {
		return 0, 0, err
	}
	if s.log != nil {
		s.log.Infow("trace_event_recorded", "type", ev.EntityType, "lot", ev.LotID, "event", eventID, "job", jobID)
	}
	return eventID, jobID, nil
}

// History returns a lot's recorded events in occurrence order.
func (s *TraceService) History(ctx context.Context, lotID int64) ([]models.TraceEvent, error) {
	if lotID <= 0 {
		return nil, errors.New("lot id is required")
	}
	return s.trace.ListByLot(ctx, lotID)
}
