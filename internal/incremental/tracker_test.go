package incremental

import (
	"sort"
	"testing"
	"time"
)

func TestTrackerRecordAndLookup(t *testing.T) {
	tr := NewChangeTracker()

	if _, ok := tr.Hash("a.go"); ok {
		t.Error("empty tracker should not know a.go")
	}

	mod := time.Now().Add(-time.Minute)
	tr.Record("a.go", "hash1", mod, 42)

	hash, ok := tr.Hash("a.go")
	if !ok || hash != "hash1" {
		t.Errorf("got %q, %v", hash, ok)
	}

	rec, ok := tr.Lookup("a.go")
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Size != 42 || !rec.LastModified.Equal(mod) {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.LastIndexed.IsZero() {
		t.Error("LastIndexed not set")
	}

	// Re-recording replaces.
	tr.Record("a.go", "hash2", mod, 43)
	hash, _ = tr.Hash("a.go")
	if hash != "hash2" {
		t.Errorf("expected hash2, got %q", hash)
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 tracked file, got %d", tr.Len())
	}
}

func TestTrackerForget(t *testing.T) {
	tr := NewChangeTracker()
	tr.Record("a.go", "h", time.Now(), 1)
	tr.SetDependencies("a.go", []string{"b.go"})

	tr.Forget("a.go")

	if _, ok := tr.Hash("a.go"); ok {
		t.Error("forgotten file still tracked")
	}
	if deps := tr.Dependencies("a.go"); deps != nil {
		t.Errorf("forgotten file still has deps %v", deps)
	}
}

func TestTrackerDependents(t *testing.T) {
	tr := NewChangeTracker()
	tr.SetDependencies("a.go", []string{"c.go"})
	tr.SetDependencies("b.go", []string{"c.go", "d.go"})
	tr.SetDependencies("e.go", []string{"a.go"})

	got := tr.Dependents("c.go")
	sort.Strings(got)
	want := []string{"a.go", "b.go"}
	if len(got) != len(want) {
		t.Fatalf("dependents of c.go: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dependents of c.go: got %v, want %v", got, want)
		}
	}

	if deps := tr.Dependents("missing.go"); deps != nil {
		t.Errorf("expected no dependents, got %v", deps)
	}

	// Replacing deps wholesale drops stale reverse entries.
	tr.SetDependencies("b.go", []string{"d.go"})
	if got := tr.Dependents("c.go"); len(got) != 1 || got[0] != "a.go" {
		t.Errorf("after replace, dependents of c.go: %v", got)
	}

	// Empty replacement removes the entry entirely.
	tr.SetDependencies("a.go", nil)
	if got := tr.Dependents("c.go"); got != nil {
		t.Errorf("after clearing a.go deps, dependents of c.go: %v", got)
	}
}

func TestTrackerBaseline(t *testing.T) {
	tr := NewChangeTracker()
	if tr.HasBaseline() {
		t.Error("new tracker should have no baseline")
	}

	tr.MarkFullIndex()
	if !tr.HasBaseline() {
		t.Error("baseline not recorded")
	}
	if tr.LastFullIndex().IsZero() {
		t.Error("LastFullIndex not set")
	}

	tr.Record("a.go", "h", time.Now(), 1)
	tr.Reset()
	if tr.HasBaseline() || tr.Len() != 0 {
		t.Error("Reset did not clear state")
	}
}

func TestTrackerDependenciesAreCopied(t *testing.T) {
	tr := NewChangeTracker()
	in := []string{"b.go"}
	tr.SetDependencies("a.go", in)
	in[0] = "mutated.go"

	if deps := tr.Dependencies("a.go"); deps[0] != "b.go" {
		t.Errorf("tracker aliased caller slice: %v", deps)
	}

	out := tr.Dependencies("a.go")
	out[0] = "mutated.go"
	if deps := tr.Dependencies("a.go"); deps[0] != "b.go" {
		t.Errorf("caller mutation leaked into tracker: %v", deps)
	}
}
