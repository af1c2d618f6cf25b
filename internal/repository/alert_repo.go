package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"agrotrace/internal/models"
)

type AlertSQLite struct {
	db *sql.DB
}

func NewAlertSQLite(db *sql.DB) *AlertSQLite { return &AlertSQLite{db: db} }

var _ AlertRepo = (*AlertSQLite)(nil)

const (
	selectRecentUnresolvedSQL = `
		SELECT COUNT(1) FROM alerts
		WHERE sensor_id = ? AND parameter = ?
		  AND status IN ('pending', 'in_progress')
		  AND created_at >= ?
	`
	insertAlertSQL = `
		INSERT INTO alerts (sensor_id, parameter, severity, message, observed_value, threshold_value, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	resolveAlertSQL = `
		UPDATE alerts SET status = ?, resolved_at = ?
		WHERE id = ? AND status IN ('pending', 'in_progress')
	`
)

// CreateIfNoRecent inserts the alert unless an unresolved alert for the same
// (sensor, parameter) tuple exists inside the dedup window. Check and insert
// run in one transaction so two concurrent evaluations of the same tuple
// cannot both create an alert. Returns (nil, nil) when suppressed.
func (r *AlertSQLite) CreateIfNoRecent(ctx context.Context, a models.Alert, window time.Duration) (*models.Alert, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	} else {
		a.CreatedAt = a.CreatedAt.UTC()
	}
	if a.Status == "" {
		a.Status = models.AlertPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin alert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := a.CreatedAt.Add(-window)
	var recent int
	if err := tx.QueryRowContext(ctx, selectRecentUnresolvedSQL,
		a.SensorID, a.Parameter, cutoff,
	).Scan(&recent); err != nil {
		return nil, fmt.Errorf("check recent alerts (%d, %s): %w", a.SensorID, a.Parameter, err)
	}
	if recent > 0 {
		return nil, nil // suppressed by cooldown
	}

	res, err := tx.ExecContext(ctx, insertAlertSQL,
		a.SensorID, a.Parameter, a.Severity, a.Message,
		a.ObservedValue, a.ThresholdValue, a.Status, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert (%d, %s): %w", a.SensorID, a.Parameter, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("alert last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit alert tx: %w", err)
	}

	a.ID = id
	return &a, nil
}

// List returns alerts newest first, optionally filtered by sensor and status.
func (r *AlertSQLite) List(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	var (
		conds []string
		args  []any
	)
	if f.SensorID > 0 {
		conds = append(conds, "sensor_id = ?")
		args = append(args, f.SensorID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}

	q := `SELECT id, sensor_id, parameter, severity, message, observed_value, threshold_value, status, created_at, resolved_at FROM alerts`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.Alert, 0, 32)
	for rows.Next() {
		var a models.Alert
		var resolvedAt sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.SensorID, &a.Parameter, &a.Severity, &a.Message,
			&a.ObservedValue, &a.ThresholdValue, &a.Status, &a.CreatedAt, &resolvedAt,
		); err != nil {
			return nil, err
		}
		a.CreatedAt = a.CreatedAt.UTC()
		if resolvedAt.Valid {
			t := resolvedAt.Time.UTC()
			a.ResolvedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Resolve transitions an unresolved alert to resolved or ignored, stamping
// resolved_at. Resolving an already-terminal alert is a no-op error.
func (r *AlertSQLite) Resolve(ctx context.Context, id int64, status string, at time.Time) error {
	if status != models.AlertResolved && status != models.AlertIgnored {
		return fmt.Errorf("invalid terminal alert status %q", status)
	}
	res, err := r.db.ExecContext(ctx, resolveAlertSQL, status, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve alert %d rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("alert %d not found or already resolved", id)
	}
	return nil
}
