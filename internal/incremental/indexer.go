package incremental

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codegraph/internal/extract"
	"codegraph/internal/graph"
	"codegraph/internal/logging"
)

// Extractor yields the declarations and imports of one source file.
// Satisfied by extract.Extractor.
type Extractor interface {
	Extract(path string, content []byte) (*extract.FileInfo, error)
}

// DeltaIndexer applies per-file changes to the graph. Modifications use a
// remove-then-recreate strategy: all nodes owned by the file (and by its
// dependents) are dropped, then rebuilt from current content, so stale
// declarations can never survive an edit.
type DeltaIndexer struct {
	repoRoot  string
	graph     *graph.Graph
	tracker   *ChangeTracker
	extractor Extractor
	logger    *logging.Logger
}

// NewDeltaIndexer creates an indexer writing into g.
func NewDeltaIndexer(repoRoot string, g *graph.Graph, tracker *ChangeTracker, extractor Extractor, logger *logging.Logger) *DeltaIndexer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DeltaIndexer{
		repoRoot:  repoRoot,
		graph:     g,
		tracker:   tracker,
		extractor: extractor,
		logger:    logger,
	}
}

// ApplyBatch applies every change in order, continuing past per-file
// failures. The returned result aggregates all counters; failed files are
// counted but never abort the batch.
func (di *DeltaIndexer) ApplyBatch(changes []Change) *UpdateResult {
	total := &UpdateResult{}
	for _, c := range changes {
		res, err := di.ApplyChange(c)
		if err != nil {
			total.FilesFailed++
			di.logger.Warn("failed to apply change", map[string]interface{}{
				"path":  c.Path,
				"type":  string(c.Type),
				"error": err.Error(),
			})
			continue
		}
		total.add(res)
	}
	return total
}

// ApplyChange applies one file delta to the graph and tracker.
func (di *DeltaIndexer) ApplyChange(c Change) (*UpdateResult, error) {
	switch c.Type {
	case ChangeAdded:
		return di.indexAdded(c)
	case ChangeModified:
		return di.reindexModified(c)
	case ChangeDeleted:
		return di.removeDeleted(c)
	default:
		return nil, fmt.Errorf("unknown change type %q for %s", c.Type, c.Path)
	}
}

func (di *DeltaIndexer) indexAdded(c Change) (*UpdateResult, error) {
	res := &UpdateResult{FilesProcessed: 1, TouchedPaths: []string{c.Path}}

	if err := di.indexFile(c.Path, res); err != nil {
		return nil, err
	}
	di.linkImports(c.Path, res)

	// Files already indexed may import this one; their unresolved imports
	// can now bind, so relink them.
	for _, dep := range di.tracker.Dependents(c.Path) {
		di.linkImports(dep, res)
	}
	return res, nil
}

func (di *DeltaIndexer) reindexModified(c Change) (*UpdateResult, error) {
	res := &UpdateResult{TouchedPaths: []string{c.Path}}

	// Dependents lose their edges into this file's nodes during removal,
	// so they are rebuilt alongside it.
	affected := []string{c.Path}
	for _, dep := range di.tracker.Dependents(c.Path) {
		if dep != c.Path {
			affected = append(affected, dep)
		}
	}

	for _, path := range affected {
		nodes, edges := di.removeFileNodes(path)
		res.NodesRemoved += nodes
		res.EdgesRemoved += edges
	}

	for _, path := range affected {
		if err := di.indexFile(path, res); err != nil {
			if path == c.Path {
				return nil, err
			}
			// A dependent that fails to re-extract stays out of the graph
			// until its next change.
			res.FilesFailed++
			continue
		}
		res.FilesProcessed++
	}

	relinked := make(map[string]bool, len(affected))
	for _, path := range affected {
		di.linkImports(path, res)
		relinked[path] = true
		res.TouchedPaths = append(res.TouchedPaths, path)
	}

	// Importers of the rebuilt files lost their edges into the removed
	// nodes; relink them so those edges are recreated.
	for _, path := range affected {
		for _, dep := range di.tracker.Dependents(path) {
			if relinked[dep] {
				continue
			}
			relinked[dep] = true
			di.linkImports(dep, res)
			res.TouchedPaths = append(res.TouchedPaths, dep)
		}
	}

	return res, nil
}

func (di *DeltaIndexer) removeDeleted(c Change) (*UpdateResult, error) {
	res := &UpdateResult{FilesProcessed: 1, TouchedPaths: []string{c.Path}}

	nodes, edges := di.removeFileNodes(c.Path)
	res.NodesRemoved += nodes
	res.EdgesRemoved += edges
	di.tracker.Forget(c.Path)

	// Dependents keep their dependency entry on the vanished file; the
	// import is still in their source. Only their dangling edges went away.
	for _, dep := range di.tracker.Dependents(c.Path) {
		res.TouchedPaths = append(res.TouchedPaths, dep)
	}
	return res, nil
}

// removeFileNodes drops every node owned by path and every edge touching
// those nodes.
func (di *DeltaIndexer) removeFileNodes(path string) (nodesRemoved, edgesRemoved int) {
	for _, n := range di.graph.NodesForFile(path) {
		edgesRemoved += di.graph.RemoveEdgesTouching(n.ID)
		if di.graph.RemoveNode(n.ID) {
			nodesRemoved++
		}
	}
	return nodesRemoved, edgesRemoved
}

// extractedFile is the read-and-extract phase output for one file,
// produced without touching the graph or tracker so it can run
// concurrently.
type extractedFile struct {
	path  string
	info  *extract.FileInfo // nil for structural and configuration files
	hash  string
	mtime time.Time
	size  int64
}

// extractFile reads path from disk and extracts its declarations.
// Structural and configuration files have no extractable content; only
// their hash is captured.
func (di *DeltaIndexer) extractFile(path string) (*extractedFile, error) {
	abs := filepath.Join(di.repoRoot, filepath.FromSlash(path))

	hash, mtime, size, err := NewContentHasher().HashFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	ef := &extractedFile{path: path, hash: hash, mtime: mtime, size: size}
	if extract.LanguageForPath(path) == "" {
		return ef, nil
	}

	content, err := os.ReadFile(abs) // #nosec G304 //nolint:gosec // Repo-relative path under the indexed root
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	info, err := di.extractor.Extract(path, content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	ef.info = info
	return ef, nil
}

// indexFile runs extraction and application for one file. Import edges
// are linked separately by linkImports.
func (di *DeltaIndexer) indexFile(path string, res *UpdateResult) error {
	ef, err := di.extractFile(path)
	if err != nil {
		return err
	}
	di.applyExtracted(ef, res)
	return nil
}

// applyExtracted writes one file's extraction result into the graph and
// tracker. Not safe for concurrent use on the same result struct.
func (di *DeltaIndexer) applyExtracted(ef *extractedFile, res *UpdateResult) {
	path := ef.path

	if ef.info == nil {
		di.tracker.Record(path, ef.hash, ef.mtime, ef.size)
		return
	}

	fileNode := graph.NewNode(graph.NodeFile, filepath.Base(path), graph.NodeProperties{
		Path: path,
	}, "indexer")
	di.graph.AddNode(fileNode)
	res.NodesAdded++

	for _, el := range ef.info.Elements {
		scope := "internal"
		if el.Exported {
			scope = "exported"
		}
		node := graph.NewNode(nodeTypeForKind(el.Kind), el.Name, graph.NodeProperties{
			File:  path,
			Line:  el.Line,
			Scope: scope,
		}, "indexer")
		di.graph.AddNode(node)
		res.NodesAdded++

		di.graph.AddEdge(graph.NewEdge(graph.EdgeContains, fileNode.ID, node.ID, 1.0))
		res.EdgesAdded++
	}

	deps := extract.ResolveImports(path, ef.info, di.fileExists)
	di.tracker.SetDependencies(path, deps)
	di.tracker.Record(path, ef.hash, ef.mtime, ef.size)
}

// linkImports creates import edges from path's file node to the file nodes
// of its resolved dependencies. Dependencies whose target file is not in
// the graph yet are silently skipped; they bind when that file is indexed.
func (di *DeltaIndexer) linkImports(path string, res *UpdateResult) {
	from := di.fileNode(path)
	if from == nil {
		return
	}

	// Drop existing import edges first so relinking is idempotent.
	for _, e := range di.graph.EdgesFrom(from.ID) {
		if e.Type == graph.EdgeImports {
			if di.graph.RemoveEdge(e.ID) {
				res.EdgesRemoved++
			}
		}
	}

	for _, dep := range di.tracker.Dependencies(path) {
		target := di.fileNode(dep)
		if target == nil {
			continue
		}
		di.graph.AddEdge(graph.NewEdge(graph.EdgeImports, from.ID, target.ID, 1.0))
		res.EdgesAdded++
	}
}

// fileNode returns the file node for path, or nil.
func (di *DeltaIndexer) fileNode(path string) *graph.Node {
	for _, n := range di.graph.NodesForFile(path) {
		if n.Type == graph.NodeFile {
			return n
		}
	}
	return nil
}

func (di *DeltaIndexer) fileExists(path string) bool {
	info, err := os.Stat(filepath.Join(di.repoRoot, filepath.FromSlash(path)))
	return err == nil && !info.IsDir()
}

func nodeTypeForKind(kind extract.ElementKind) graph.NodeType {
	switch kind {
	case extract.KindFunction:
		return graph.NodeFunction
	case extract.KindClass:
		return graph.NodeClass
	case extract.KindInterface:
		return graph.NodeInterface
	default:
		return graph.NodeVariable
	}
}
