package incremental

import (
	"sync"
	"time"
)

// FileRecord is the tracked state for a single file.
type FileRecord struct {
	Hash         string    `json:"hash"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
	LastIndexed  time.Time `json:"lastIndexed"`
}

// ChangeTracker remembers the last indexed state of every file plus the
// import relationships between files. All methods are safe for
// concurrent use.
type ChangeTracker struct {
	mu sync.RWMutex

	files map[string]FileRecord
	// deps maps a file to the files it imports. Replaced wholesale on
	// every reindex of the file.
	deps map[string][]string

	baseline      bool
	lastFullIndex time.Time
}

// NewChangeTracker creates an empty tracker with no baseline.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		files: make(map[string]FileRecord),
		deps:  make(map[string][]string),
	}
}

// Record stores the indexed state for path.
func (t *ChangeTracker) Record(path, hash string, modified time.Time, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[path] = FileRecord{
		Hash:         hash,
		LastModified: modified,
		Size:         size,
		LastIndexed:  time.Now(),
	}
}

// Lookup returns the tracked record for path.
func (t *ChangeTracker) Lookup(path string) (FileRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.files[path]
	return rec, ok
}

// Hash returns the last indexed hash for path, if tracked.
func (t *ChangeTracker) Hash(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.files[path]
	if !ok {
		return "", false
	}
	return rec.Hash, true
}

// Forget drops all tracked state for path, including its dependency list.
// Reverse dependencies (other files importing path) are left alone; they
// still import it even if it no longer exists.
func (t *ChangeTracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, path)
	delete(t.deps, path)
}

// TrackedPaths returns a snapshot of every tracked path.
func (t *ChangeTracker) TrackedPaths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	return paths
}

// Len returns the number of tracked files.
func (t *ChangeTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}

// SetDependencies replaces the dependency list for path.
func (t *ChangeTracker) SetDependencies(path string, deps []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(deps) == 0 {
		delete(t.deps, path)
		return
	}
	cp := make([]string, len(deps))
	copy(cp, deps)
	t.deps[path] = cp
}

// Dependencies returns the files path imports.
func (t *ChangeTracker) Dependencies(path string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	deps := t.deps[path]
	if len(deps) == 0 {
		return nil
	}
	cp := make([]string, len(deps))
	copy(cp, deps)
	return cp
}

// Dependents returns the files that import path, found by scanning the
// forward map. The map stays small enough in practice that a reverse
// index is not worth maintaining.
func (t *ChangeTracker) Dependents(path string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for from, deps := range t.deps {
		for _, d := range deps {
			if d == path {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// MarkFullIndex records that a complete baseline index finished now.
func (t *ChangeTracker) MarkFullIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = true
	t.lastFullIndex = time.Now()
}

// HasBaseline reports whether a full index has ever completed.
func (t *ChangeTracker) HasBaseline() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baseline
}

// LastFullIndex returns the completion time of the most recent full index.
func (t *ChangeTracker) LastFullIndex() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastFullIndex
}

// Reset clears every record and the baseline marker.
func (t *ChangeTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]FileRecord)
	t.deps = make(map[string][]string)
	t.baseline = false
	t.lastFullIndex = time.Time{}
}
