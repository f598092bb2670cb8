// Package graph implements the in-memory code knowledge graph: nodes for
// files and code elements, edges for relationships between them.
//
// All mutation goes through an explicit RWMutex. Readers that need a
// consistent snapshot across several calls must hold off while an update
// batch is in flight; single calls are always internally consistent.
package graph

import (
	"sync"
	"time"
)

// Graph is the sole owner of the node and edge indexes. The incremental
// indexer creates and removes entries but never holds separate copies.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*Node // node id -> node
	edges map[string]*Edge // edge id -> edge

	// Secondary indexes
	nodesByFile map[string]map[string]bool // owning file -> node id set
	edgesByNode map[string]map[string]bool // node id -> incident edge id set
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:       make(map[string]*Node),
		edges:       make(map[string]*Edge),
		nodesByFile: make(map[string]map[string]bool),
		edgesByNode: make(map[string]map[string]bool),
	}
}

// AddNode inserts a node. An existing node with the same id is replaced.
func (g *Graph) AddNode(n *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.nodes[n.ID]; ok {
		g.unindexFileLocked(old)
	}
	g.nodes[n.ID] = n
	g.indexFileLocked(n)
}

// GetNode returns the node with the given id, or nil.
func (g *Graph) GetNode(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// RemoveNode removes a node by id. Returns false if the node was absent.
// Incident edges are left in place; callers that need them gone use
// RemoveEdgesTouching first so they can count what was dropped.
func (g *Graph) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	g.unindexFileLocked(n)
	delete(g.nodes, id)
	return true
}

// AddEdge inserts an edge. An existing edge with the same id is replaced.
func (g *Graph) AddEdge(e *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[e.ID] = e
	g.indexEdgeLocked(e)
}

// GetEdge returns the edge with the given id, or nil.
func (g *Graph) GetEdge(id string) *Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[id]
}

// RemoveEdge removes an edge by id. Returns false if the edge was absent.
func (g *Graph) RemoveEdge(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeEdgeLocked(id)
}

func (g *Graph) removeEdgeLocked(id string) bool {
	e, ok := g.edges[id]
	if !ok {
		return false
	}
	delete(g.edges, id)
	g.unindexEdgeLocked(e)
	return true
}

// RemoveEdgesTouching removes every edge whose source or target is the given
// node id and returns how many were removed.
func (g *Graph) RemoveEdgesTouching(nodeID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := g.edgesByNode[nodeID]
	if len(ids) == 0 {
		return 0
	}

	removed := 0
	for edgeID := range ids {
		if g.removeEdgeLocked(edgeID) {
			removed++
		}
	}
	return removed
}

// NodesForFile returns the nodes whose owning file matches the given path.
func (g *Graph) NodesForFile(path string) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.nodesByFile[path]
	if len(ids) == 0 {
		return nil
	}

	nodes := make([]*Node, 0, len(ids))
	for id := range ids {
		if n, ok := g.nodes[id]; ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// EdgesFrom returns the edges whose source is the given node id.
func (g *Graph) EdgesFrom(nodeID string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []*Edge
	for edgeID := range g.edgesByNode[nodeID] {
		if e, ok := g.edges[edgeID]; ok && e.Source == nodeID {
			edges = append(edges, e)
		}
	}
	return edges
}

// Touch updates a node's Updated timestamp.
func (g *Graph) Touch(nodeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[nodeID]; ok {
		n.Metadata.Updated = time.Now()
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Clear removes all nodes and edges. Used by the full-rebuild path.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node)
	g.edges = make(map[string]*Edge)
	g.nodesByFile = make(map[string]map[string]bool)
	g.edgesByNode = make(map[string]map[string]bool)
}

// Stats summarizes graph contents for display and metrics.
type Stats struct {
	Nodes        int            `json:"nodes"`
	Edges        int            `json:"edges"`
	TrackedFiles int            `json:"trackedFiles"`
	NodesByType  map[string]int `json:"nodesByType"`
	EdgesByType  map[string]int `json:"edgesByType"`
}

// Snapshot returns current statistics.
func (g *Graph) Snapshot() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Stats{
		Nodes:        len(g.nodes),
		Edges:        len(g.edges),
		TrackedFiles: len(g.nodesByFile),
		NodesByType:  make(map[string]int),
		EdgesByType:  make(map[string]int),
	}
	for _, n := range g.nodes {
		stats.NodesByType[string(n.Type)]++
	}
	for _, e := range g.edges {
		stats.EdgesByType[string(e.Type)]++
	}
	return stats
}

// ============================================================================
// Index maintenance (callers hold g.mu)
// ============================================================================

func (g *Graph) indexFileLocked(n *Node) {
	file := n.Properties.OwningFile()
	if file == "" {
		return
	}
	set, ok := g.nodesByFile[file]
	if !ok {
		set = make(map[string]bool)
		g.nodesByFile[file] = set
	}
	set[n.ID] = true
}

func (g *Graph) unindexFileLocked(n *Node) {
	file := n.Properties.OwningFile()
	if file == "" {
		return
	}
	if set, ok := g.nodesByFile[file]; ok {
		delete(set, n.ID)
		if len(set) == 0 {
			delete(g.nodesByFile, file)
		}
	}
}

func (g *Graph) indexEdgeLocked(e *Edge) {
	for _, nodeID := range []string{e.Source, e.Target} {
		set, ok := g.edgesByNode[nodeID]
		if !ok {
			set = make(map[string]bool)
			g.edgesByNode[nodeID] = set
		}
		set[e.ID] = true
	}
}

func (g *Graph) unindexEdgeLocked(e *Edge) {
	for _, nodeID := range []string{e.Source, e.Target} {
		if set, ok := g.edgesByNode[nodeID]; ok {
			delete(set, e.ID)
			if len(set) == 0 {
				delete(g.edgesByNode, nodeID)
			}
		}
	}
}
