package incremental

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codegraph/internal/graph"
	"codegraph/internal/logging"
)

// CacheInvalidator clears derived result caches after the graph changes.
// Implementations never fail; a cache that cannot be cleared reports
// nothing and stays subject to its TTL.
type CacheInvalidator interface {
	// InvalidateAll clears every cache tier and returns the names of the
	// tiers that were cleared.
	InvalidateAll(reason string) []string
}

// MetricsRecorder observes completed update passes.
type MetricsRecorder interface {
	RecordUpdate(result *UpdateResult)
}

// Engine coordinates change detection, delta indexing, the fallback
// policy, and cache invalidation over one repository. A mutex serializes
// update passes: incremental updates and full rebuilds never run
// concurrently, and a second caller blocks until the first pass finishes.
type Engine struct {
	repoRoot string
	config   *Config
	logger   *logging.Logger

	graph       *graph.Graph
	tracker     *ChangeTracker
	detector    *ChangeDetector
	indexer     *DeltaIndexer
	policy      *FallbackPolicy
	queue       *UpdateQueue
	invalidator CacheInvalidator
	metrics     MetricsRecorder

	// updateMu makes update passes mutually exclusive.
	updateMu sync.Mutex

	mu         sync.Mutex
	lastCommit string
	closed     bool
}

// NewEngine wires an engine over repoRoot writing into g. invalidator and
// metrics may be nil.
func NewEngine(repoRoot string, config *Config, g *graph.Graph, extractor Extractor, invalidator CacheInvalidator, metrics MetricsRecorder, logger *logging.Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	tracker := NewChangeTracker()
	e := &Engine{
		repoRoot:    repoRoot,
		config:      config,
		logger:      logger,
		graph:       g,
		tracker:     tracker,
		detector:    NewChangeDetector(repoRoot, tracker, config, logger),
		indexer:     NewDeltaIndexer(repoRoot, g, tracker, extractor, logger),
		invalidator: invalidator,
		metrics:     metrics,
	}
	e.policy = NewFallbackPolicy(config, tracker)
	e.queue = NewUpdateQueue(time.Duration(config.DebounceMs)*time.Millisecond, config.UpdateBatchSize, e.processBatch)
	return e
}

// Tracker exposes the engine's change tracker to collaborators such as
// the status command.
func (e *Engine) Tracker() *ChangeTracker {
	return e.tracker
}

// Initialize builds the baseline index if none exists. With a baseline
// already in place it is a no-op returning an empty result.
func (e *Engine) Initialize(ctx context.Context) (*UpdateResult, error) {
	if e.tracker.HasBaseline() {
		return &UpdateResult{}, nil
	}
	return e.FullRebuild(ctx, "no baseline index")
}

// FullRebuild discards the whole graph and tracker state, reindexes every
// relevant file, and clears all caches. It takes the same update lock as
// incremental passes.
func (e *Engine) FullRebuild(ctx context.Context, reason string) (*UpdateResult, error) {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()
	return e.fullRebuildLocked(ctx, reason)
}

func (e *Engine) fullRebuildLocked(ctx context.Context, reason string) (*UpdateResult, error) {
	start := time.Now()
	e.logger.Info("starting full rebuild", map[string]interface{}{
		"reason": reason,
	})

	e.graph.Clear()
	e.tracker.Reset()

	res, err := e.buildBaseline(ctx)
	if err != nil {
		return nil, err
	}
	res.FullRebuild = true
	res.RebuildReason = reason
	res.Duration = time.Since(start)

	e.tracker.MarkFullIndex()
	e.mu.Lock()
	e.lastCommit = e.detector.GetCurrentCommit()
	e.mu.Unlock()

	e.invalidate(res, "full rebuild")
	e.record(res)

	e.logger.Info("full rebuild complete", map[string]interface{}{
		"files":    res.FilesProcessed,
		"nodes":    res.NodesAdded,
		"edges":    res.EdgesAdded,
		"failed":   res.FilesFailed,
		"duration": res.Duration.String(),
	})
	return res, nil
}

// buildBaseline extracts every relevant file concurrently, then applies
// the results serially in two passes: nodes first, then import edges, so
// edges can bind to file nodes regardless of walk order.
func (e *Engine) buildBaseline(ctx context.Context) (*UpdateResult, error) {
	paths, err := e.collectPaths()
	if err != nil {
		return nil, err
	}

	extracted := make([]*extractedFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ef, err := e.indexer.extractFile(path)
			if err != nil {
				// Captured in the serial pass as a failed file.
				return nil
			}
			extracted[i] = ef
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("baseline extraction aborted: %w", err)
	}

	res := &UpdateResult{}
	for _, ef := range extracted {
		if ef == nil {
			res.FilesFailed++
			continue
		}
		e.indexer.applyExtracted(ef, res)
		res.FilesProcessed++
	}
	for _, ef := range extracted {
		if ef == nil || ef.info == nil {
			continue
		}
		e.indexer.linkImports(ef.path, res)
	}
	return res, nil
}

// collectPaths walks the repo root gathering every file that participates
// in indexing, as repo-relative forward-slash paths.
func (e *Engine) collectPaths() ([]string, error) {
	var paths []string
	err := filepath.Walk(e.repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Skip inaccessible entries, continue walking
		}
		if info.IsDir() {
			if skipDirs[filepath.Base(path)] || e.detector.isExcluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(e.repoRoot, path)
		if relErr != nil {
			return nil //nolint:nilerr // Outside the root, skip
		}
		rel = filepath.ToSlash(rel)
		if !e.detector.relevantPath(rel) || e.detector.isExcluded(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}
	return paths, nil
}

// PerformIncrementalUpdate runs one complete detect-decide-apply pass.
// When the fallback policy demands it, the pass becomes a full rebuild
// instead; the two are never combined.
func (e *Engine) PerformIncrementalUpdate(ctx context.Context) (*UpdateResult, error) {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()

	start := time.Now()

	e.mu.Lock()
	since := e.lastCommit
	e.mu.Unlock()

	changes, err := e.detector.DetectChanges(since)
	if err != nil {
		return nil, fmt.Errorf("change detection failed: %w", err)
	}
	if len(changes) == 0 {
		return &UpdateResult{Duration: time.Since(start)}, nil
	}

	if rebuild, reason := e.policy.Decide(changes); rebuild {
		return e.fullRebuildLocked(ctx, reason)
	}

	res := e.indexer.ApplyBatch(changes)
	res.Duration = time.Since(start)

	e.mu.Lock()
	e.lastCommit = e.detector.GetCurrentCommit()
	e.mu.Unlock()

	e.invalidate(res, "incremental update")
	e.record(res)

	e.logger.Info("incremental update complete", map[string]interface{}{
		"changes":  len(changes),
		"files":    res.FilesProcessed,
		"failed":   res.FilesFailed,
		"duration": res.Duration.String(),
	})
	return res, nil
}

// NotifyChange feeds a single path, typically from a watcher event, into
// the debounced queue. Irrelevant paths and content-identical touches are
// dropped here, before they can schedule work.
func (e *Engine) NotifyChange(relPath string) {
	change, err := e.detector.DetectPath(relPath)
	if err != nil || change == nil {
		return
	}
	e.queue.Enqueue(*change)
}

// FlushPending processes all queued changes immediately.
func (e *Engine) FlushPending() {
	e.queue.Flush()
}

// processBatch is the queue callback. The batch still goes through the
// fallback policy: a queued structural-file change converts the batch
// into a full rebuild.
func (e *Engine) processBatch(changes []Change) {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}

	start := time.Now()

	if rebuild, reason := e.policy.Decide(changes); rebuild {
		if _, err := e.fullRebuildLocked(context.Background(), reason); err != nil {
			e.logger.Error("full rebuild failed", map[string]interface{}{
				"reason": reason,
				"error":  err.Error(),
			})
		}
		return
	}

	res := e.indexer.ApplyBatch(changes)
	res.Duration = time.Since(start)

	e.invalidate(res, "queued batch")
	e.record(res)

	e.logger.Debug("queued batch applied", map[string]interface{}{
		"changes":  len(changes),
		"failed":   res.FilesFailed,
		"duration": res.Duration.String(),
	})
}

// Close drains nothing: queued changes are dropped, matching the
// semantics of a process shutdown. The next start re-detects them.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.queue.Close()
}

// invalidate clears the result caches when a pass touched the graph.
func (e *Engine) invalidate(res *UpdateResult, reason string) {
	if e.invalidator == nil {
		return
	}
	if !res.FullRebuild && len(res.TouchedPaths) == 0 {
		return
	}
	res.CachesCleared = e.invalidator.InvalidateAll(reason)
}

func (e *Engine) record(res *UpdateResult) {
	if e.metrics != nil {
		e.metrics.RecordUpdate(res)
	}
}

// Status describes the engine's current state.
type Status struct {
	TrackedFiles  int       `json:"trackedFiles"`
	Nodes         int       `json:"nodes"`
	Edges         int       `json:"edges"`
	HasBaseline   bool      `json:"hasBaseline"`
	LastFullIndex time.Time `json:"lastFullIndex,omitempty"`
	QueueDepth    int       `json:"queueDepth"`
	LastCommit    string    `json:"lastCommit,omitempty"`
}

// Status returns a point-in-time snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	commit := e.lastCommit
	e.mu.Unlock()
	return Status{
		TrackedFiles:  e.tracker.Len(),
		Nodes:         e.graph.NodeCount(),
		Edges:         e.graph.EdgeCount(),
		HasBaseline:   e.tracker.HasBaseline(),
		LastFullIndex: e.tracker.LastFullIndex(),
		QueueDepth:    e.queue.Len(),
		LastCommit:    commit,
	}
}
