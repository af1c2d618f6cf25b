package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agrotrace/internal/models"
)

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite { return &SensorSQLite{db: db} }

var _ SensorRepo = (*SensorSQLite)(nil)

const (
	selectSensorByDeviceSQL = `
		SELECT id, device_id, company_id, name, active, report_interval_s, last_seen
		FROM sensors WHERE device_id = ?
	`
	selectActiveSensorsSQL = `
		SELECT id, device_id, company_id, name, active, report_interval_s, last_seen
		FROM sensors WHERE active = 1 ORDER BY id ASC
	`
	updateSensorLastSeenSQL = `UPDATE sensors SET last_seen = ? WHERE id = ?`
)

// GetByDeviceID fetches a sensor by device id. Returns (nil, nil) if not found.
func (r *SensorSQLite) GetByDeviceID(ctx context.Context, deviceID string) (*models.Sensor, error) {
	row := r.db.QueryRowContext(ctx, selectSensorByDeviceSQL, deviceID)
	s, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select sensor %q: %w", deviceID, err)
	}
	return s, nil
}

// ListActive returns all active sensors, ordered by id.
func (r *SensorSQLite) ListActive(ctx context.Context) ([]models.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, selectActiveSensorsSQL)
	if err != nil {
		return nil, fmt.Errorf("select active sensors: %w", err)
	}
	defer rows.Close()

	out := make([]models.Sensor, 0, 16)
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// TouchLastSeen bumps the sensor's last_seen timestamp.
func (r *SensorSQLite) TouchLastSeen(ctx context.Context, sensorID int, t time.Time) error {
	_, err := r.db.ExecContext(ctx, updateSensorLastSeenSQL, t.UTC(), sensorID)
	if err != nil {
		return fmt.Errorf("touch last_seen for sensor %d: %w", sensorID, err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row rowScanner) (*models.Sensor, error) {
	var s models.Sensor
	var lastSeen sql.NullTime
	if err := row.Scan(
		&s.ID, &s.DeviceID, &s.CompanyID, &s.Name, &s.Active, &s.ReportIntervalS, &lastSeen,
	); err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		s.LastSeen = &t
	}
	return &s, nil
}
