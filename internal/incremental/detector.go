package incremental

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"codegraph/internal/extract"
	"codegraph/internal/logging"
)

// ChangeDetector compares the working tree against the tracker's last
// indexed state and produces the delta as added/modified/deleted changes.
type ChangeDetector struct {
	repoRoot string
	tracker  *ChangeTracker
	hasher   *ContentHasher
	config   *Config
	logger   *logging.Logger
}

// NewChangeDetector creates a detector rooted at repoRoot.
func NewChangeDetector(repoRoot string, tracker *ChangeTracker, config *Config, logger *logging.Logger) *ChangeDetector {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChangeDetector{
		repoRoot: repoRoot,
		tracker:  tracker,
		hasher:   NewContentHasher(),
		config:   config,
		logger:   logger,
	}
}

// DetectChanges finds files that need reindexing. When git integration is
// enabled and the root is a git repository, git narrows the candidate set;
// every candidate is still hash-verified against the tracker, so files git
// reports but whose content is unchanged produce no change. since may be a
// commit to diff from; empty means uncommitted changes only.
func (d *ChangeDetector) DetectChanges(since string) ([]Change, error) {
	if d.config.EnableGitIntegration && d.isGitRepo() {
		changes, err := d.detectGitChanges(since)
		if err == nil {
			return changes, nil
		}
		d.logger.Debug("git detection failed, falling back to hash scan", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return d.detectHashChanges()
}

// DetectPath classifies a single path, typically from a watcher event.
// Returns nil when the path is irrelevant or its content is unchanged.
func (d *ChangeDetector) DetectPath(relPath string) (*Change, error) {
	relPath = filepath.ToSlash(relPath)
	if !d.relevantPath(relPath) || d.isExcluded(relPath) {
		return nil, nil
	}

	abs := filepath.Join(d.repoRoot, filepath.FromSlash(relPath))
	hash, mtime, size, err := d.hasher.HashFile(abs)
	if err != nil {
		// Unreadable or gone. Tracked files become deletions; untracked
		// ones were never in the graph, so there is nothing to do.
		if _, tracked := d.tracker.Hash(relPath); tracked {
			return &Change{Path: relPath, Type: ChangeDeleted}, nil
		}
		return nil, nil
	}

	prev, tracked := d.tracker.Hash(relPath)
	switch {
	case !tracked:
		return &Change{Path: relPath, Type: ChangeAdded, ContentHash: hash, LastModified: mtime, Size: size}, nil
	case prev != hash:
		return &Change{Path: relPath, Type: ChangeModified, ContentHash: hash, LastModified: mtime, Size: size}, nil
	default:
		// Touched but content-identical, e.g. a save without edits.
		return nil, nil
	}
}

// GetCurrentCommit returns the current HEAD commit, or "" outside git.
func (d *ChangeDetector) GetCurrentCommit() string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = d.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (d *ChangeDetector) isGitRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = d.repoRoot
	return cmd.Run() == nil
}

// detectGitChanges uses git name-status output to find candidates, then
// hash-verifies each one.
func (d *ChangeDetector) detectGitChanges(since string) ([]Change, error) {
	var candidates []gitCandidate

	if since != "" {
		head := d.GetCurrentCommit()
		if head == "" {
			return nil, fmt.Errorf("failed to resolve HEAD")
		}
		if head != since {
			cmd := exec.Command("git", "diff", "--name-status", "-z", since, head) // #nosec G204 //nolint:gosec // git command with commit hashes
			cmd.Dir = d.repoRoot
			out, err := cmd.Output()
			if err != nil {
				return nil, fmt.Errorf("git diff failed: %w", err)
			}
			candidates = append(candidates, d.parseGitDiffNUL(out)...)
		}
	}

	uncommitted, err := d.uncommittedCandidates()
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, uncommitted...)

	return d.verifyCandidates(candidates), nil
}

// gitCandidate is a raw path git flagged, before hash verification.
type gitCandidate struct {
	path    string
	deleted bool
}

// uncommittedCandidates gathers staged, unstaged and untracked paths.
// NUL-separated output handles paths containing spaces.
func (d *ChangeDetector) uncommittedCandidates() ([]gitCandidate, error) {
	var candidates []gitCandidate

	stagedCmd := exec.Command("git", "diff", "--name-status", "-z", "--cached")
	stagedCmd.Dir = d.repoRoot
	stagedOut, _ := stagedCmd.Output()
	candidates = append(candidates, d.parseGitDiffNUL(stagedOut)...)

	unstagedCmd := exec.Command("git", "diff", "--name-status", "-z")
	unstagedCmd.Dir = d.repoRoot
	unstagedOut, _ := unstagedCmd.Output()
	candidates = append(candidates, d.parseGitDiffNUL(unstagedOut)...)

	untrackedCmd := exec.Command("git", "ls-files", "-z", "--others", "--exclude-standard")
	untrackedCmd.Dir = d.repoRoot
	untrackedOut, _ := untrackedCmd.Output()
	for _, raw := range bytes.Split(untrackedOut, []byte{0}) {
		path := filepath.ToSlash(string(raw))
		if path != "" {
			candidates = append(candidates, gitCandidate{path: path})
		}
	}

	return candidates, nil
}

// parseGitDiffNUL parses git diff --name-status -z output.
// Format: STATUS\0PATH\0, or STATUS\0OLDPATH\0NEWPATH\0 for renames and
// copies. A rename is both a deletion of the old path and an addition of
// the new one.
func (d *ChangeDetector) parseGitDiffNUL(output []byte) []gitCandidate {
	var candidates []gitCandidate

	parts := bytes.Split(output, []byte{0})
	for i := 0; i < len(parts); {
		if len(parts[i]) == 0 {
			i++
			continue
		}
		status := string(parts[i])
		if i+1 >= len(parts) {
			break
		}

		isRenameOrCopy := strings.HasPrefix(status, "R") || strings.HasPrefix(status, "C")

		var oldPath, newPath string
		if isRenameOrCopy {
			oldPath = filepath.ToSlash(string(parts[i+1]))
			i += 2
			if i >= len(parts) {
				break
			}
			newPath = filepath.ToSlash(string(parts[i]))
			i++
		} else {
			newPath = filepath.ToSlash(string(parts[i+1]))
			oldPath = newPath
			i += 2
		}

		switch {
		case status == "D":
			candidates = append(candidates, gitCandidate{path: oldPath, deleted: true})
		case strings.HasPrefix(status, "R"):
			candidates = append(candidates,
				gitCandidate{path: oldPath, deleted: true},
				gitCandidate{path: newPath})
		default:
			candidates = append(candidates, gitCandidate{path: newPath})
		}
	}

	return candidates
}

// verifyCandidates hashes every surviving candidate and classifies it
// against the tracker, dropping irrelevant paths, unchanged content, and
// duplicates. Later candidates for a path win.
func (d *ChangeDetector) verifyCandidates(candidates []gitCandidate) []Change {
	index := make(map[string]int)
	var changes []Change

	record := func(c Change) {
		if idx, ok := index[c.Path]; ok {
			changes[idx] = c
			return
		}
		index[c.Path] = len(changes)
		changes = append(changes, c)
	}

	for _, cand := range candidates {
		if !d.relevantPath(cand.path) || d.isExcluded(cand.path) {
			continue
		}

		if cand.deleted {
			if _, tracked := d.tracker.Hash(cand.path); tracked {
				record(Change{Path: cand.path, Type: ChangeDeleted})
			}
			continue
		}

		change, err := d.DetectPath(cand.path)
		if err != nil || change == nil {
			continue
		}
		record(*change)
	}

	return changes
}

// detectHashChanges walks the whole tree comparing content hashes against
// the tracker. Used when git is unavailable, and as the fallback when git
// detection errors.
func (d *ChangeDetector) detectHashChanges() ([]Change, error) {
	var changes []Change

	seen := make(map[string]bool)
	err := filepath.Walk(d.repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Skip inaccessible entries, continue walking
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if skipDirs[base] || d.isExcluded(path) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(d.repoRoot, path)
		if relErr != nil {
			return nil //nolint:nilerr // Outside the root, skip
		}
		rel = filepath.ToSlash(rel)

		if !d.relevantPath(rel) || d.isExcluded(rel) {
			return nil
		}

		hash, mtime, size, hashErr := d.hasher.HashFile(path)
		if hashErr != nil {
			// Unreadable now. Leave tracked state alone; the deletion
			// sweep below only fires for files that vanished entirely.
			return nil
		}

		seen[rel] = true

		prev, tracked := d.tracker.Hash(rel)
		switch {
		case !tracked:
			changes = append(changes, Change{Path: rel, Type: ChangeAdded, ContentHash: hash, LastModified: mtime, Size: size})
		case prev != hash:
			changes = append(changes, Change{Path: rel, Type: ChangeModified, ContentHash: hash, LastModified: mtime, Size: size})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	// Tracked files no longer present on disk are deletions.
	for _, path := range d.tracker.TrackedPaths() {
		if !seen[path] {
			changes = append(changes, Change{Path: path, Type: ChangeDeleted})
		}
	}

	return changes, nil
}

// relevantPath reports whether a file participates in change detection:
// source files the extractor understands, plus structural and
// configuration files that influence the whole index.
func (d *ChangeDetector) relevantPath(path string) bool {
	base := filepath.Base(path)
	if structuralFilenames[base] || configFilenames[base] {
		return true
	}
	return extract.LanguageForPath(path) != ""
}

// isExcluded checks a path against configured exclude patterns. Paths are
// normalized to forward slashes so patterns match across OS.
func (d *ChangeDetector) isExcluded(path string) bool {
	normalized := filepath.ToSlash(path)

	for _, pattern := range d.config.Excludes {
		p := filepath.ToSlash(pattern)

		if matched, _ := filepath.Match(p, normalized); matched {
			return true
		}

		// Directory exclude: "vendor" matches "vendor/foo/bar.go".
		dirPrefix := strings.TrimSuffix(p, "/") + "/"
		if strings.HasPrefix(normalized, dirPrefix) {
			return true
		}
		if normalized == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}
