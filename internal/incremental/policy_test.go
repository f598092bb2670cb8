package incremental

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestPolicyNoBaseline(t *testing.T) {
	tr := NewChangeTracker()
	p := NewFallbackPolicy(DefaultConfig(), tr)

	rebuild, reason := p.Decide([]Change{{Path: "a.go", Type: ChangeModified}})
	if !rebuild {
		t.Fatal("expected full rebuild without baseline")
	}
	if reason != "no baseline index" {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestPolicyChangeThreshold(t *testing.T) {
	tr := NewChangeTracker()
	tr.MarkFullIndex()

	cfg := DefaultConfig()
	cfg.MaxChangesBeforeFullRebuild = 3
	p := NewFallbackPolicy(cfg, tr)

	small := make([]Change, 3)
	for i := range small {
		small[i] = Change{Path: fmt.Sprintf("f%d.go", i), Type: ChangeModified}
	}
	if rebuild, _ := p.Decide(small); rebuild {
		t.Error("batch at threshold should stay incremental")
	}

	large := append(small, Change{Path: "f3.go", Type: ChangeAdded})
	rebuild, reason := p.Decide(large)
	if !rebuild {
		t.Fatal("batch above threshold should trigger rebuild")
	}
	if !strings.Contains(reason, "threshold") {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestPolicyStructuralAndConfigFiles(t *testing.T) {
	tr := NewChangeTracker()
	tr.MarkFullIndex()
	p := NewFallbackPolicy(DefaultConfig(), tr)

	tests := []struct {
		name    string
		path    string
		rebuild bool
	}{
		{"plain source", "internal/server/server.go", false},
		{"go.mod at root", "go.mod", true},
		{"nested package.json", "web/package.json", true},
		{"lockfile", "package-lock.json", true},
		{"tsconfig", "tsconfig.json", true},
		{"gitignore", ".gitignore", true},
		{"makefile", "Makefile", true},
		{"named like source", "internal/gomod/parse.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := []Change{{Path: tt.path, Type: ChangeModified, LastModified: time.Now()}}
			rebuild, reason := p.Decide(changes)
			if rebuild != tt.rebuild {
				t.Errorf("Decide(%s): rebuild=%v reason=%q, want rebuild=%v", tt.path, rebuild, reason, tt.rebuild)
			}
			if rebuild && !strings.Contains(reason, tt.path) {
				t.Errorf("reason %q does not name the file", reason)
			}
		})
	}
}

func TestPolicyThresholdDisabled(t *testing.T) {
	tr := NewChangeTracker()
	tr.MarkFullIndex()

	cfg := DefaultConfig()
	cfg.MaxChangesBeforeFullRebuild = 0
	p := NewFallbackPolicy(cfg, tr)

	big := make([]Change, 500)
	for i := range big {
		big[i] = Change{Path: fmt.Sprintf("f%d.go", i), Type: ChangeModified}
	}
	if rebuild, _ := p.Decide(big); rebuild {
		t.Error("threshold 0 should disable the size check")
	}
}
