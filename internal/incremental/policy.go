package incremental

import (
	"fmt"
	"path/filepath"
)

// FallbackPolicy decides whether a batch of changes can be applied
// incrementally or requires a full rebuild. Incremental application
// and full rebuilds are mutually exclusive; the engine runs exactly one
// per batch.
type FallbackPolicy struct {
	config  *Config
	tracker *ChangeTracker
}

// NewFallbackPolicy creates a policy over the given tracker.
func NewFallbackPolicy(config *Config, tracker *ChangeTracker) *FallbackPolicy {
	if config == nil {
		config = DefaultConfig()
	}
	return &FallbackPolicy{config: config, tracker: tracker}
}

// Decide returns true with a reason when the batch must be handled by a
// full rebuild. The checks, in order: no baseline exists yet, the batch
// exceeds the configured change threshold, or a structural or
// configuration file was touched.
func (p *FallbackPolicy) Decide(changes []Change) (bool, string) {
	if !p.tracker.HasBaseline() {
		return true, "no baseline index"
	}

	if max := p.config.MaxChangesBeforeFullRebuild; max > 0 && len(changes) > max {
		return true, fmt.Sprintf("%d changes exceed threshold %d", len(changes), max)
	}

	for _, c := range changes {
		base := filepath.Base(c.Path)
		if structuralFilenames[base] {
			return true, fmt.Sprintf("structural file changed: %s", c.Path)
		}
		if configFilenames[base] {
			return true, fmt.Sprintf("configuration file changed: %s", c.Path)
		}
	}

	return false, ""
}
