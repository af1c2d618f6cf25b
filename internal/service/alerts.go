package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

var errInvalidResolution = errors.New("resolution must be resolved or ignored")

// AlertLogService is the read/resolve surface over persisted alerts.
// Creation belongs to the evaluator; this service only closes them out.
type AlertLogService struct {
	alerts repository.AlertRepo
}

func NewAlertLogService(alerts repository.AlertRepo) *AlertLogService {
	return &AlertLogService{alerts: alerts}
}

// List returns alerts, newest first.
func (s *AlertLogService) List(ctx context.Context, f repository.AlertFilter) ([]models.Alert, error) {
	return s.alerts.List(ctx, f)
}

// Resolve closes an alert as resolved or ignored, stamping resolved_at.
func (s *AlertLogService) Resolve(ctx context.Context, id int64, resolution string) error {
	if resolution != models.AlertResolved && resolution != models.AlertIgnored {
		return fmt.Errorf("%w: got %q", errInvalidResolution, resolution)
	}
	return s.alerts.Resolve(ctx, id, resolution, time.Now().UTC())
}
