package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// MetricsSnapshot is one persisted, compressed metrics payload.
type MetricsSnapshot struct {
	ID      int64
	TakenAt time.Time
	Codec   string
	Payload []byte
}

// SaveMetricsSnapshot persists a compressed snapshot payload.
func (db *DB) SaveMetricsSnapshot(takenAt time.Time, codec string, payload []byte) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO metrics_snapshots (taken_at, codec, payload)
		VALUES (?, ?, ?)
	`, takenAt.Format(time.RFC3339), codec, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to save metrics snapshot: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// LatestMetricsSnapshot returns the most recent snapshot, or nil when none
// exist.
func (db *DB) LatestMetricsSnapshot() (*MetricsSnapshot, error) {
	var s MetricsSnapshot
	var takenAt string
	err := db.QueryRow(`
		SELECT id, taken_at, codec, payload
		FROM metrics_snapshots
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&s.ID, &takenAt, &s.Codec, &s.Payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics snapshot: %w", err)
	}
	s.TakenAt, err = time.Parse(time.RFC3339, takenAt)
	if err != nil {
		return nil, fmt.Errorf("invalid taken_at format: %w", err)
	}
	return &s, nil
}

// PruneMetricsSnapshots keeps the newest keep snapshots and deletes the
// rest, returning the number removed.
func (db *DB) PruneMetricsSnapshots(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.Exec(`
		DELETE FROM metrics_snapshots
		WHERE id NOT IN (
			SELECT id FROM metrics_snapshots ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune metrics snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
