// Package incremental implements the incremental knowledge-graph update
// engine: content-hash change detection, file-scoped delta indexing,
// dependency-based invalidation, and a fallback-to-full-rebuild policy.
//
// Contract: a file's tracked hash always reflects the last content that was
// successfully indexed. Failures to read or hash leave stale entries behind;
// detection is idempotent and re-runnable, so a subsequent pass repairs them.
package incremental

import (
	"time"
)

// ChangeType represents how a file changed
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// Change describes a single detected file delta. Changes are ephemeral:
// created by the detector, consumed once by the delta indexer, then dropped.
type Change struct {
	Path         string     // repo-relative, forward slashes
	Type         ChangeType // added, modified, deleted
	ContentHash  string     // new content hash (empty for deleted)
	LastModified time.Time
	Size         int64
}

// UpdateResult aggregates the counters for one update pass.
type UpdateResult struct {
	FilesProcessed int           `json:"filesProcessed"`
	NodesAdded     int           `json:"nodesAdded"`
	NodesRemoved   int           `json:"nodesRemoved"`
	EdgesAdded     int           `json:"edgesAdded"`
	EdgesRemoved   int           `json:"edgesRemoved"`
	FilesFailed    int           `json:"filesFailed"`
	CachesCleared  []string      `json:"cachesCleared,omitempty"`
	FullRebuild    bool          `json:"fullRebuild"`
	RebuildReason  string        `json:"rebuildReason,omitempty"`
	Duration       time.Duration `json:"duration"`

	// TouchedPaths is the union of paths this pass mutated, used for cache
	// invalidation after the batch.
	TouchedPaths []string `json:"-"`
}

// add folds another result into this one.
func (r *UpdateResult) add(other *UpdateResult) {
	r.FilesProcessed += other.FilesProcessed
	r.NodesAdded += other.NodesAdded
	r.NodesRemoved += other.NodesRemoved
	r.EdgesAdded += other.EdgesAdded
	r.EdgesRemoved += other.EdgesRemoved
	r.FilesFailed += other.FilesFailed
	r.TouchedPaths = append(r.TouchedPaths, other.TouchedPaths...)
}

// Config configures the incremental engine.
type Config struct {
	// EnableFileWatching turns the file-system watcher on.
	EnableFileWatching bool `json:"enableFileWatching" mapstructure:"enableFileWatching"`

	// EnableGitIntegration prefers git-based change detection over the
	// hash scan when the repo root is a git repository.
	EnableGitIntegration bool `json:"enableGitIntegration" mapstructure:"enableGitIntegration"`

	// EnableBackgroundUpdates enables periodic metric snapshots and cache
	// cleanup timers.
	EnableBackgroundUpdates bool `json:"enableBackgroundUpdates" mapstructure:"enableBackgroundUpdates"`

	// MaxChangesBeforeFullRebuild is the batch-size threshold above which
	// the engine falls back to a full rebuild.
	MaxChangesBeforeFullRebuild int `json:"maxChangesBeforeFullRebuild" mapstructure:"maxChangesBeforeFullRebuild"`

	// UpdateBatchSize caps how many queued changes one pass applies.
	UpdateBatchSize int `json:"updateBatchSize" mapstructure:"updateBatchSize"`

	// DebounceMs delays batch processing to coalesce event bursts.
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`

	// ConflictResolutionStrategy selects the winner when duplicate events
	// for one path are queued. Only "use_newer" is implemented: the later
	// event replaces the earlier one.
	ConflictResolutionStrategy string `json:"conflictResolutionStrategy" mapstructure:"conflictResolutionStrategy"`

	// Excludes are glob patterns or directory prefixes to skip.
	Excludes []string `json:"excludes" mapstructure:"excludes"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		EnableFileWatching:          true,
		EnableGitIntegration:        true,
		EnableBackgroundUpdates:     true,
		MaxChangesBeforeFullRebuild: 100,
		UpdateBatchSize:             10,
		DebounceMs:                  500,
		ConflictResolutionStrategy:  "use_newer",
	}
}

// Directories never scanned or watched.
var skipDirs = map[string]bool{
	".git":         true,
	".codegraph":   true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"bin":          true,
	"__pycache__":  true,
	".cache":       true,
}

// Structural filenames change how the whole project is interpreted; any
// touch triggers a full rebuild.
var structuralFilenames = map[string]bool{
	"go.mod":            true,
	"go.sum":            true,
	"package.json":      true,
	"package-lock.json": true,
	"Cargo.toml":        true,
	"pyproject.toml":    true,
	"requirements.txt":  true,
	"Makefile":          true,
	"CMakeLists.txt":    true,
	"build.gradle":      true,
	"pom.xml":           true,
}

// Configuration filenames are treated conservatively: a change forces a
// re-baseline because they can alter which files are even considered.
var configFilenames = map[string]bool{
	".env":              true,
	".gitignore":        true,
	"README.md":         true,
	"tsconfig.json":     true,
	".babelrc":          true,
	"webpack.config.js": true,
	".eslintrc":         true,
}
