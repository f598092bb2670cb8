package incremental

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestDetector(t *testing.T, root string, cfg *Config) (*ChangeDetector, *ChangeTracker) {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.EnableGitIntegration = false
	tr := NewChangeTracker()
	return NewChangeDetector(root, tr, cfg, nil), tr
}

func changesByPath(changes []Change) map[string]Change {
	m := make(map[string]Change, len(changes))
	for _, c := range changes {
		m[c.Path] = c
	}
	return m
}

func TestDetectAddedModifiedDeleted(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n")
	writeRepoFile(t, root, "lib/util.go", "package lib\n")
	writeRepoFile(t, root, "lib/old.go", "package lib\n")

	d, tr := newTestDetector(t, root, nil)

	// Seed the tracker as if a previous index saw these files.
	seed := func(rel string) {
		hash, mtime, size, err := d.hasher.HashFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatal(err)
		}
		tr.Record(rel, hash, mtime, size)
	}
	seed("lib/util.go")
	seed("lib/old.go")

	// Modify one, delete one, main.go stays untracked (added).
	writeRepoFile(t, root, "lib/util.go", "package lib\n\nfunc Helper() {}\n")
	if err := os.Remove(filepath.Join(root, "lib", "old.go")); err != nil {
		t.Fatal(err)
	}

	changes, err := d.DetectChanges("")
	if err != nil {
		t.Fatal(err)
	}
	byPath := changesByPath(changes)
	if len(byPath) != 3 {
		t.Fatalf("expected 3 changes, got %v", changes)
	}

	if c := byPath["main.go"]; c.Type != ChangeAdded || c.ContentHash == "" {
		t.Errorf("main.go: %+v", c)
	}
	if c := byPath["lib/util.go"]; c.Type != ChangeModified || c.ContentHash == "" {
		t.Errorf("lib/util.go: %+v", c)
	}
	if c := byPath["lib/old.go"]; c.Type != ChangeDeleted || c.ContentHash != "" {
		t.Errorf("lib/old.go: %+v", c)
	}
}

func TestDetectIgnoresTimestampOnlyTouch(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n")

	d, tr := newTestDetector(t, root, nil)
	hash, mtime, size, err := d.hasher.HashFile(filepath.Join(root, "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	tr.Record("main.go", hash, mtime, size)

	// Same bytes, fresh mtime.
	writeRepoFile(t, root, "main.go", "package main\n")
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(filepath.Join(root, "main.go"), future, future); err != nil {
		t.Fatal(err)
	}

	changes, err := d.DetectChanges("")
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("timestamp-only touch produced changes: %v", changes)
	}
}

func TestDetectSkipsDirsAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n")
	writeRepoFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeRepoFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeRepoFile(t, root, "gen/out.go", "package gen\n")
	writeRepoFile(t, root, "notes.txt", "not source\n")

	cfg := DefaultConfig()
	cfg.Excludes = []string{"gen"}
	d, _ := newTestDetector(t, root, cfg)

	changes, err := d.DetectChanges("")
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].Path != "main.go" {
		t.Errorf("expected only main.go, got %v", changes)
	}
}

func TestDetectStructuralFilesAreRelevant(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "go.mod", "module example\n\ngo 1.24\n")
	writeRepoFile(t, root, ".gitignore", "bin/\n")

	d, _ := newTestDetector(t, root, nil)
	changes, err := d.DetectChanges("")
	if err != nil {
		t.Fatal(err)
	}
	byPath := changesByPath(changes)
	if _, ok := byPath["go.mod"]; !ok {
		t.Error("go.mod not detected")
	}
	if _, ok := byPath[".gitignore"]; !ok {
		t.Error(".gitignore not detected")
	}
}

func TestDetectPath(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")
	d, tr := newTestDetector(t, root, nil)

	// Untracked existing file is an addition.
	c, err := d.DetectPath("a.go")
	if err != nil || c == nil || c.Type != ChangeAdded {
		t.Fatalf("DetectPath(a.go) = %+v, %v", c, err)
	}
	tr.Record("a.go", c.ContentHash, c.LastModified, c.Size)

	// Unchanged content yields nothing.
	c, err = d.DetectPath("a.go")
	if err != nil || c != nil {
		t.Errorf("unchanged file: %+v, %v", c, err)
	}

	// Changed content is a modification.
	writeRepoFile(t, root, "a.go", "package a\n\nfunc A() {}\n")
	c, err = d.DetectPath("a.go")
	if err != nil || c == nil || c.Type != ChangeModified {
		t.Errorf("modified file: %+v, %v", c, err)
	}

	// Tracked but unreadable is a deletion.
	if err := os.Remove(filepath.Join(root, "a.go")); err != nil {
		t.Fatal(err)
	}
	c, err = d.DetectPath("a.go")
	if err != nil || c == nil || c.Type != ChangeDeleted {
		t.Errorf("deleted file: %+v, %v", c, err)
	}

	// Missing untracked file is nothing.
	c, err = d.DetectPath("ghost.go")
	if err != nil || c != nil {
		t.Errorf("missing untracked file: %+v, %v", c, err)
	}

	// Irrelevant extension is nothing, even if the file exists.
	writeRepoFile(t, root, "image.png", "\x89PNG")
	c, err = d.DetectPath("image.png")
	if err != nil || c != nil {
		t.Errorf("irrelevant file: %+v, %v", c, err)
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Excludes = []string{"gen", "*.pb.go", "third_party/"}
	d, _ := newTestDetector(t, t.TempDir(), cfg)

	tests := []struct {
		path string
		want bool
	}{
		{"gen", true},
		{"gen/out.go", true},
		{"api.pb.go", true},
		{"third_party/lib/lib.go", true},
		{"generate.go", false},
		{"internal/gen.go", false},
	}
	for _, tt := range tests {
		if got := d.isExcluded(tt.path); got != tt.want {
			t.Errorf("isExcluded(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
