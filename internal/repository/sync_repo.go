package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agrotrace/internal/models"
)

type SyncSQLite struct {
	db *sql.DB
}

func NewSyncSQLite(db *sql.DB) *SyncSQLite { return &SyncSQLite{db: db} }

var _ SyncRepo = (*SyncSQLite)(nil)

const syncJobColumns = `id, entity_type, entity_id, payload, tx_hash, block_number, status, attempts, last_attempt_at, error_message, created_at, synced_at`

const (
	selectSyncJobSQL = `SELECT ` + syncJobColumns + ` FROM ledger_sync_jobs WHERE id = ?`

	selectRetryableSQL = `
		SELECT ` + syncJobColumns + ` FROM ledger_sync_jobs
		WHERE status = 'pending' OR (status = 'failed' AND attempts < ?)
		ORDER BY created_at ASC
		LIMIT ?
	`

	selectAwaitingConfirmationSQL = `
		SELECT ` + syncJobColumns + ` FROM ledger_sync_jobs
		WHERE status = 'processing' AND tx_hash IS NOT NULL
		ORDER BY last_attempt_at ASC
		LIMIT ?
	`

	claimSyncJobSQL = `
		UPDATE ledger_sync_jobs
		SET status = 'processing', attempts = attempts + 1, last_attempt_at = ?
		WHERE id = ? AND status IN ('pending', 'failed')
	`

	markSubmittedSQL = `
		UPDATE ledger_sync_jobs SET tx_hash = ?
		WHERE id = ? AND status = 'processing'
	`

	markConfirmedSQL = `
		UPDATE ledger_sync_jobs
		SET status = 'confirmed', block_number = ?, synced_at = ?, error_message = NULL
		WHERE id = ?
	`

	markFailedSQL = `
		UPDATE ledger_sync_jobs SET status = 'failed', error_message = ?
		WHERE id = ?
	`

	requeueSyncJobSQL = `
		UPDATE ledger_sync_jobs SET status = 'pending', error_message = NULL
		WHERE id = ? AND status = 'failed'
	`
)

// Get fetches one job. Returns (nil, nil) if not found.
func (r *SyncSQLite) Get(ctx context.Context, id int64) (*models.SyncJob, error) {
	row := r.db.QueryRowContext(ctx, selectSyncJobSQL, id)
	j, err := scanSyncJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select sync job %d: %w", id, err)
	}
	return j, nil
}

// List returns jobs newest first, optionally filtered by status/entity type.
func (r *SyncSQLite) List(ctx context.Context, f SyncFilter) ([]models.SyncJob, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.EntityType != "" {
		conds = append(conds, "entity_type = ?")
		args = append(args, f.EntityType)
	}

	q := `SELECT ` + syncJobColumns + ` FROM ledger_sync_jobs`
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
		return nil, fmt.Errorf("select sync jobs: %w", err)
	}
	defer rows.Close()
	return collectSyncJobs(rows)
}

// ListRetryable returns pending and retry-eligible failed jobs, oldest first.
// Backoff eligibility (last attempt + computed delay) is decided by the
// dispatcher; the repo only filters out failed jobs past the attempt cap.
// Pending jobs are always included so a manual requeue runs regardless of
// how many attempts the job burned before the operator stepped in.
func (r *SyncSQLite) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]models.SyncJob, error) {
	rows, err := r.db.QueryContext(ctx, selectRetryableSQL, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("select retryable sync jobs: %w", err)
	}
	defer rows.Close()
	return collectSyncJobs(rows)
}

// ListAwaitingConfirmation returns processing jobs that already hold a
// transaction hash and are waiting on ledger inclusion.
func (r *SyncSQLite) ListAwaitingConfirmation(ctx context.Context, limit int) ([]models.SyncJob, error) {
	rows, err := r.db.QueryContext(ctx, selectAwaitingConfirmationSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("select jobs awaiting confirmation: %w", err)
	}
	defer rows.Close()
	return collectSyncJobs(rows)
}

// Claim takes exclusive ownership of a job: status → processing, attempts += 1,
// last_attempt_at = now, guarded by the status precondition so only one worker
// wins. Returns (nil, nil) when the job was not claimable.
func (r *SyncSQLite) Claim(ctx context.Context, id int64, now time.Time) (*models.SyncJob, error) {
	res, err := r.db.ExecContext(ctx, claimSyncJobSQL, now.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("claim sync job %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim sync job %d rows affected: %w", id, err)
	}
	if n == 0 {
		return nil, nil // already claimed or terminal
	}
	return r.Get(ctx, id)
}

// MarkSubmitted records the transaction handle returned by the ledger while
// keeping the job in processing until a confirmation check reports inclusion.
func (r *SyncSQLite) MarkSubmitted(ctx context.Context, id int64, txHash string) error {
	if _, err := r.db.ExecContext(ctx, markSubmittedSQL, txHash, id); err != nil {
		return fmt.Errorf("mark sync job %d submitted: %w", id, err)
	}
	return nil
}

// MarkConfirmed finalizes a job: terminal success, error cleared.
func (r *SyncSQLite) MarkConfirmed(ctx context.Context, id int64, blockNumber int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, markConfirmedSQL, blockNumber, at.UTC(), id); err != nil {
		return fmt.Errorf("mark sync job %d confirmed: %w", id, err)
	}
	return nil
}

// MarkFailed records the failure; the job stays eligible for backoff retry
// until the attempt cap, after which it stands as failed for operators.
func (r *SyncSQLite) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	if _, err := r.db.ExecContext(ctx, markFailedSQL, errMsg, id); err != nil {
		return fmt.Errorf("mark sync job %d failed: %w", id, err)
	}
	return nil
}

// Requeue puts a failed job back to pending for a manual retry.
func (r *SyncSQLite) Requeue(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, requeueSyncJobSQL, id)
	if err != nil {
		return fmt.Errorf("requeue sync job %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("requeue sync job %d rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("sync job %d not found or not failed", id)
	}
	return nil
}

// Status summarizes the queue for the operator surface.
func (r *SyncSQLite) Status(ctx context.Context) (models.SyncStatus, error) {
	const q = `
		SELECT
			COUNT(1),
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			MAX(synced_at)
		FROM ledger_sync_jobs
	`
	var st models.SyncStatus
	var pending, processing, confirmed, failed sql.NullInt64
	var lastSync sql.NullTime
	if err := r.db.QueryRowContext(ctx, q).Scan(
		&st.Total, &pending, &processing, &confirmed, &failed, &lastSync,
	); err != nil {
		return models.SyncStatus{}, fmt.Errorf("sync status: %w", err)
	}
	st.Pending = int(pending.Int64)
	st.Processing = int(processing.Int64)
	st.Confirmed = int(confirmed.Int64)
	st.Failed = int(failed.Int64)
	if lastSync.Valid {
		t := lastSync.Time.UTC()
		st.LastSync = &t
	}
	st.Health = "healthy"
	if st.Failed > 0 {
		st.Health = "degraded"
	}
	return st, nil
}

func scanSyncJob(row rowScanner) (*models.SyncJob, error) {
	var j models.SyncJob
	var txHash, errMsg sql.NullString
	var blockNumber sql.NullInt64
	var lastAttempt, syncedAt sql.NullTime
	if err := row.Scan(
		&j.ID, &j.EntityType, &j.EntityID, &j.Payload,
		&txHash, &blockNumber, &j.Status, &j.Attempts,
		&lastAttempt, &errMsg, &j.CreatedAt, &syncedAt,
	); err != nil {
		return nil, err
	}
	if txHash.Valid {
		j.TransactionHash = &txHash.String
	}
	if blockNumber.Valid {
		j.BlockNumber = &blockNumber.Int64
	}
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	if lastAttempt.Valid {
		t := lastAttempt.Time.UTC()
		j.LastAttemptAt = &t
	}
	if syncedAt.Valid {
		t := syncedAt.Time.UTC()
		j.SyncedAt = &t
	}
	j.CreatedAt = j.CreatedAt.UTC()
	return &j, nil
}

func collectSyncJobs(rows *sql.Rows) ([]models.SyncJob, error) {
	out := make([]models.SyncJob, 0, 16)
	for rows.Next() {
		j, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}
