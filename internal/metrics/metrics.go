// Package metrics accumulates update-engine counters and persists them as
// compressed snapshots.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"codegraph/internal/incremental"
	"codegraph/internal/logging"
	"codegraph/internal/storage"
)

// snapshotCodec names the compression applied to persisted payloads.
const snapshotCodec = "zstd"

// keepSnapshots bounds the history retained in the database.
const keepSnapshots = 50

// Snapshot is a point-in-time view of the accumulated counters.
type Snapshot struct {
	TakenAt            time.Time     `json:"takenAt"`
	UpdatesTotal       int           `json:"updatesTotal"`
	IncrementalUpdates int           `json:"incrementalUpdates"`
	FullRebuilds       int           `json:"fullRebuilds"`
	FilesProcessed     int           `json:"filesProcessed"`
	FilesFailed        int           `json:"filesFailed"`
	NodesAdded         int           `json:"nodesAdded"`
	NodesRemoved       int           `json:"nodesRemoved"`
	EdgesAdded         int           `json:"edgesAdded"`
	EdgesRemoved       int           `json:"edgesRemoved"`
	CacheInvalidations int           `json:"cacheInvalidations"`
	TotalUpdateTime    time.Duration `json:"totalUpdateTime"`
	LastUpdate         time.Time     `json:"lastUpdate,omitempty"`
	LastRebuildReason  string        `json:"lastRebuildReason,omitempty"`
}

// Recorder accumulates counters from update passes. Safe for concurrent
// use. The db may be nil, in which case Save is a no-op.
type Recorder struct {
	mu   sync.Mutex
	snap Snapshot

	db     *storage.DB
	logger *logging.Logger
}

// NewRecorder creates a recorder persisting into db.
func NewRecorder(db *storage.DB, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{db: db, logger: logger}
}

// RecordUpdate folds one completed update pass into the counters.
func (r *Recorder) RecordUpdate(res *incremental.UpdateResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.UpdatesTotal++
	if res.FullRebuild {
		r.snap.FullRebuilds++
		r.snap.LastRebuildReason = res.RebuildReason
	} else {
		r.snap.IncrementalUpdates++
	}
	r.snap.FilesProcessed += res.FilesProcessed
	r.snap.FilesFailed += res.FilesFailed
	r.snap.NodesAdded += res.NodesAdded
	r.snap.NodesRemoved += res.NodesRemoved
	r.snap.EdgesAdded += res.EdgesAdded
	r.snap.EdgesRemoved += res.EdgesRemoved
	if len(res.CachesCleared) > 0 {
		r.snap.CacheInvalidations++
	}
	r.snap.TotalUpdateTime += res.Duration
	r.snap.LastUpdate = time.Now()
}

// Snapshot returns a copy of the current counters.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snap
	snap.TakenAt = time.Now()
	return snap
}

// Save persists a compressed snapshot and prunes old history.
func (r *Recorder) Save() error {
	if r.db == nil {
		return nil
	}

	snap := r.Snapshot()
	payload, err := encodeSnapshot(&snap)
	if err != nil {
		return err
	}

	if _, err := r.db.SaveMetricsSnapshot(snap.TakenAt, snapshotCodec, payload); err != nil {
		return err
	}
	if _, err := r.db.PruneMetricsSnapshots(keepSnapshots); err != nil {
		r.logger.Warn("failed to prune metrics snapshots", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

// Run saves snapshots on a fixed interval until ctx is cancelled, with a
// final save on the way out.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.Save(); err != nil {
				r.logger.Warn("final metrics save failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		case <-ticker.C:
			if err := r.Save(); err != nil {
				r.logger.Warn("metrics save failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// LoadLatest returns the most recently persisted snapshot, or nil when
// none exists.
func LoadLatest(db *storage.DB) (*Snapshot, error) {
	stored, err := db.LatestMetricsSnapshot()
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	if stored.Codec != snapshotCodec {
		return nil, fmt.Errorf("unsupported snapshot codec: %s", stored.Codec)
	}
	return decodeSnapshot(stored.Payload)
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close() //nolint:errcheck // Best effort cleanup

	return enc.EncodeAll(raw, nil), nil
}

func decodeSnapshot(payload []byte) (*Snapshot, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
