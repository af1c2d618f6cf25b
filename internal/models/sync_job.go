package models

import "time"

// Entity types a SyncJob can propagate to the ledger.
const (
	EntityLot        = "lot"
	EntityHarvest    = "harvest"
	EntityProcessing = "processing"
	EntityTransfer   = "transfer"
)

// SyncJob states.
const (
	SyncPending    = "pending"
	SyncProcessing = "processing"
	SyncConfirmed  = "confirmed"
	SyncFailed     = "failed"
)

// SyncJob is one unit of ledger propagation work. Exactly one job exists per
// domain event; jobs are never deleted so the audit trail survives failures.
type SyncJob struct {
	ID              int64      `json:"id"`
	EntityType      string     `json:"entity_type"`
	EntityID        int64      `json:"entity_id"`
	Payload         string     `json:"payload"`
	TransactionHash *string    `json:"transaction_hash,omitempty"`
	BlockNumber     *int64     `json:"block_number,omitempty"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	SyncedAt        *time.Time `json:"synced_at,omitempty"`
}

// SyncStatus is the operator-facing queue summary.
type SyncStatus struct {
	Total     int        `json:"total"`
	Pending   int        `json:"pending"`
	Processing int       `json:"processing"`
	Confirmed int        `json:"confirmed"`
	Failed    int        `json:"failed"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	Health    string     `json:"health"` // healthy | degraded
}
