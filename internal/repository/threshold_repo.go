package repository

import (
	"context"
	"database/sql"
	"fmt"

	"agrotrace/internal/models"
)

type ThresholdSQLite struct {
	db *sql.DB
}

func NewThresholdSQLite(db *sql.DB) *ThresholdSQLite { return &ThresholdSQLite{db: db} }

var _ ThresholdRepo = (*ThresholdSQLite)(nil)

const (
	selectActiveThresholdsSQL = `
		SELECT id, sensor_id, parameter, min, max, active, critical
		FROM threshold_configs
		WHERE sensor_id = ? AND active = 1
		ORDER BY parameter ASC
	`
	upsertThresholdSQL = `
		INSERT INTO threshold_configs (sensor_id, parameter, min, max, active, critical)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id, parameter) DO UPDATE SET
			min=excluded.min,
			max=excluded.max,
			active=excluded.active,
			critical=excluded.critical
	`
)

// ListActive returns the active threshold configs for a sensor, ordered by
// parameter name. Evaluators read a snapshot per evaluation; no locking.
func (r *ThresholdSQLite) ListActive(ctx context.Context, sensorID int) ([]models.ThresholdConfig, error) {
	rows, err := r.db.QueryContext(ctx, selectActiveThresholdsSQL, sensorID)
	if err != nil {
		return nil, fmt.Errorf("select thresholds for sensor %d: %w", sensorID, err)
	}
	defer rows.Close()

	out := make([]models.ThresholdConfig, 0, 8)
	for rows.Next() {
		var c models.ThresholdConfig
		var min, max sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.SensorID, &c.Parameter, &min, &max, &c.Active, &c.Critical); err != nil {
			return nil, err
		}
		if min.Valid {
			v := min.Float64
			c.Min = &v
		}
		if max.Valid {
			v := max.Float64
			c.Max = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert creates or replaces the config for (sensor, parameter).
func (r *ThresholdSQLite) Upsert(ctx context.Context, cfg models.ThresholdConfig) error {
	var min, max any
	if cfg.Min != nil {
		min = *cfg.Min
	}
	if cfg.Max != nil {
		max = *cfg.Max
	}
	_, err := r.db.ExecContext(ctx, upsertThresholdSQL,
		cfg.SensorID, cfg.Parameter, min, max, cfg.Active, cfg.Critical,
	)
	if err != nil {
		return fmt.Errorf("upsert threshold (%d, %s): %w", cfg.SensorID, cfg.Parameter, err)
	}
	return nil
}
