package graph

import (
	"time"

	"github.com/google/uuid"
)

// NodeType classifies the code entity a node represents.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeClass     NodeType = "class"
	NodeFunction  NodeType = "function"
	NodeInterface NodeType = "interface"
	NodeVariable  NodeType = "variable"
)

// EdgeType classifies the relationship an edge represents.
type EdgeType string

const (
	EdgeImports  EdgeType = "imports"
	EdgeContains EdgeType = "contains"
)

// NodeProperties holds the well-known attributes of a node.
// Extra per-source attributes go into Node.Metadata.
type NodeProperties struct {
	File  string `json:"file,omitempty"`  // repo-relative path of the owning file
	Path  string `json:"path,omitempty"`  // alias kept for file nodes
	Line  int    `json:"line,omitempty"`  // 1-indexed declaration line
	Scope string `json:"scope,omitempty"` // "exported" or "internal"
}

// OwningFile returns the path this node belongs to, preferring File over Path.
func (p NodeProperties) OwningFile() string {
	if p.File != "" {
		return p.File
	}
	return p.Path
}

// NodeMetadata holds provenance and quality information for a node.
type NodeMetadata struct {
	Created    time.Time              `json:"created"`
	Updated    time.Time              `json:"updated"`
	Confidence float64                `json:"confidence"`
	Source     string                 `json:"source,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Node represents a code entity in the knowledge graph.
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Name       string         `json:"name"`
	Properties NodeProperties `json:"properties"`
	Metadata   NodeMetadata   `json:"metadata"`
}

// EdgeMetadata holds quality information for an edge.
type EdgeMetadata struct {
	Confidence float64 `json:"confidence"`
	Strength   float64 `json:"strength"`
}

// Edge represents a directed relationship between two nodes.
type Edge struct {
	ID       string            `json:"id"`
	Type     EdgeType          `json:"type"`
	Source   string            `json:"source"` // node id
	Target   string            `json:"target"` // node id
	Props    map[string]string `json:"properties,omitempty"`
	Metadata EdgeMetadata      `json:"metadata"`
}

// NewNode creates a node with a generated id and creation timestamps.
func NewNode(nodeType NodeType, name string, props NodeProperties, source string) *Node {
	now := time.Now()
	return &Node{
		ID:         uuid.New().String(),
		Type:       nodeType,
		Name:       name,
		Properties: props,
		Metadata: NodeMetadata{
			Created:    now,
			Updated:    now,
			Confidence: 1.0,
			Source:     source,
		},
	}
}

// NewEdge creates an edge with a generated id between two node ids.
func NewEdge(edgeType EdgeType, source, target string, confidence float64) *Edge {
	return &Edge{
		ID:     uuid.New().String(),
		Type:   edgeType,
		Source: source,
		Target: target,
		Metadata: EdgeMetadata{
			Confidence: confidence,
			Strength:   confidence,
		},
	}
}
