// Package watcher provides file system watching for the update engine.
// Events are forwarded raw; classification and debouncing happen in the
// engine, which already coalesces bursts per path.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"codegraph/internal/logging"
)

// Handler receives one repo-relative path per file system event.
type Handler func(relPath string)

// Config contains watcher configuration.
type Config struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		IgnorePatterns: []string{
			".git",
			".codegraph",
			"node_modules",
			"vendor",
			"dist",
			"build",
			"__pycache__",
			"*.swp",
			"*.tmp",
			"*.log",
		},
	}
}

// Watcher watches a repository root recursively and forwards events.
type Watcher struct {
	root    string
	config  Config
	logger  *logging.Logger
	handler Handler

	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher rooted at root. Call Start to begin watching.
func New(root string, config Config, logger *logging.Logger, handler Handler) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:    root,
		config:  config,
		logger:  logger,
		handler: handler,
		fsw:     fsw,
		done:    make(chan struct{}),
	}, nil
}

// Start registers the root tree and begins forwarding events.
func (w *Watcher) Start() error {
	if !w.config.Enabled {
		w.logger.Info("File watcher is disabled", nil)
		return nil
	}

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop()

	w.logger.Info("Watching repository", map[string]interface{}{
		"path": w.root,
	})
	return nil
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close() //nolint:errcheck // Best effort cleanup
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	// A newly created directory must itself be watched; fsnotify does not
	// recurse on its own.
	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", map[string]interface{}{
					"path":  event.Name,
					"error": err.Error(),
				})
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	w.logger.Debug("file event", map[string]interface{}{
		"path": rel,
		"op":   event.Op.String(),
	})
	if w.handler != nil {
		w.handler(filepath.ToSlash(rel))
	}
}

// addRecursive adds dir and every subdirectory to the watch list.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Skip inaccessible entries, continue walking
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// shouldIgnore checks a path's segments against the ignore patterns.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}

	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.config.IgnorePatterns {
			if segment == pattern {
				return true
			}
			if matched, _ := filepath.Match(pattern, segment); matched {
				return true
			}
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
