package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"agrotrace/internal/models"
)

type TraceSQLite struct {
	db *sql.DB
}

func NewTraceSQLite(db *sql.DB) *TraceSQLite { return &TraceSQLite{db: db} }

var _ TraceRepo = (*TraceSQLite)(nil)

const (
	insertTraceEventSQL = `
		INSERT INTO trace_events (entity_type, lot_id, actor, details, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	insertSyncJobSQL = `
		INSERT INTO ledger_sync_jobs (entity_type, entity_id, payload, status, attempts, created_at)
		VALUES (?, ?, ?, 'pending', 0, ?)
	`
	selectTraceByLotSQL = `
		SELECT id, entity_type, lot_id, actor, details, occurred_at, created_at
		FROM trace_events WHERE lot_id = ? ORDER BY occurred_at ASC
	`
)

// RecordEvent persists the domain event and its ledger sync job in one
// transaction. The event commits before any ledger traffic happens, so
// ledger availability never gates the primary write.
func (r *TraceSQLite) RecordEvent(ctx context.Context, ev models.TraceEvent, payload string) (int64, int64, error) {
	now := time.Now().UTC()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}
	ev.CreatedAt = now

	var detailsPtr *string
	if ev.Details != nil {
		if b, err := json.Marshal(ev.Details); err == nil {
			s := string(b)
			detailsPtr = &s
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin trace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertTraceEventSQL,
		ev.EntityType, ev.LotID, ev.Actor, detailsPtr,
		ev.OccurredAt.UTC(), ev.CreatedAt,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("insert trace event (%s, lot %d): %w", ev.EntityType, ev.LotID, err)
	}
	eventID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("trace event last insert id: %w", err)
	}

	res, err = tx.ExecContext(ctx, insertSyncJobSQL,
		ev.EntityType, eventID, payload, now,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("insert sync job for trace event %d: %w", eventID, err)
	}
	jobID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("sync job last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit trace tx: %w", err)
	}
	return eventID, jobID, nil
}

// ListByLot returns a lot's events in occurrence order.
func (r *TraceSQLite) ListByLot(ctx context.Context, lotID int64) ([]models.TraceEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectTraceByLotSQL, lotID)
	if err != nil {
		return nil, fmt.Errorf("select trace events for lot %d: %w", lotID, err)
	}
	defer rows.Close()

	out := make([]models.TraceEvent, 0, 16)
	for rows.Next() {
		var ev models.TraceEvent
		var details sql.NullString
		if err := rows.Scan(&ev.ID, &ev.EntityType, &ev.LotID, &ev.Actor, &details, &ev.OccurredAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.CreatedAt = ev.CreatedAt.UTC()
		if details.Valid && details.String != "" {
			var v any
			if err := json.Unmarshal([]byte(details.String), &v); err == nil {
				ev.Details = v
			} else {
				ev.Details = details.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
