package incremental

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHashContentDeterministic(t *testing.T) {
	h := NewContentHasher()

	a := h.HashContent([]byte("package main"))
	b := h.HashContent([]byte("package main"))
	if a != b {
		t.Errorf("same content produced different hashes: %s vs %s", a, b)
	}

	c := h.HashContent([]byte("package main\n"))
	if a == c {
		t.Error("different content produced the same hash")
	}

	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashFileIgnoresTimestamps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewContentHasher()
	first, _, _, err := h.HashFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite identical content with a different mtime.
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	second, mtime, size, err := h.HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("hash changed despite identical content")
	}
	if size != int64(len("package main\n")) {
		t.Errorf("unexpected size %d", size)
	}
	if mtime.After(time.Now()) {
		t.Error("bogus mtime")
	}
}

func TestHashFileMissing(t *testing.T) {
	h := NewContentHasher()
	if _, _, _, err := h.HashFile(filepath.Join(t.TempDir(), "nope.go")); err == nil {
		t.Error("expected error for missing file")
	}
}
