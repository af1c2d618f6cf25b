package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"agrotrace/internal/models"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

const insertReadingSQL = `
	INSERT INTO readings (sensor_id, ts, measurements)
	VALUES (?, ?, ?)
`

// Append inserts a reading. Readings are history rows; duplicates from
// at-least-once producers are acceptable and stored as-is.
func (r *ReadingSQLite) Append(ctx context.Context, rd models.Reading) (int64, error) {
	if rd.Timestamp.IsZero() {
		rd.Timestamp = time.Now().UTC()
	}

	b, err := json.Marshal(rd.Measurements)
	if err != nil {
		return 0, fmt.Errorf("marshal measurements: %w", err)
	}

	res, err := r.db.ExecContext(ctx, insertReadingSQL,
		rd.SensorID,
		rd.Timestamp.UTC(),
		string(b),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reading for sensor %d: %w", rd.SensorID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading last insert id: %w", err)
	}
	return id, nil
}
