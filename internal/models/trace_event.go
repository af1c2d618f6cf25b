package models

import "time"

// TraceEvent is one recorded supply-chain event (lot creation, harvest,
// processing or transfer). Append-only; the ledger sync job for it is created
// in the same transaction that records the event.
type TraceEvent struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"` // lot | harvest | processing | transfer
	LotID      int64     `json:"lot_id"`
	Actor      string    `json:"actor"`
	Details    any       `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
