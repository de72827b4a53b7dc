// Package graph defines the node/edge graph compared by the benchmark and its
// JSON wire format.
package graph

import (
	"math"
	"sort"
)

// BBox is an axis-aligned bounding box in image pixel coordinates.
type BBox struct {
	X, Y, W, H float64
}

// Center returns the center point of the box.
func (b BBox) Center() (x, y float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Diag returns the length of the box diagonal.
func (b BBox) Diag() float64 {
	return math.Hypot(b.W, b.H)
}

// Valid reports whether the box has a positive area.
func (b BBox) Valid() bool {
	return b.W > 0 && b.H > 0
}

// Node is a graph vertex. BBox is nil when the source document carried none.
type Node struct {
	ID   string
	BBox *BBox
}

// Edge is a directed connection between two node IDs.
type Edge struct {
	Source string
	Target string
}

// Reverse returns the edge with its endpoints swapped.
func (e Edge) Reverse() Edge {
	return Edge{Source: e.Target, Target: e.Source}
}

// Graph is the unit of comparison: nodes keyed by unique ID and a set of
// directed edges. Edges may repeat in the slice; EdgeSet collapses them.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// NodeIDs returns the node IDs in sorted order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgeSet returns the distinct edges of the graph.
func (g *Graph) EdgeSet() EdgeSet {
	s := make(EdgeSet, len(g.Edges))
	for _, e := range g.Edges {
		s.Add(e)
	}
	return s
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = Node{ID: n.ID}
		if n.BBox != nil {
			b := *n.BBox
			out.Nodes[i].BBox = &b
		}
	}
	copy(out.Edges, g.Edges)
	return out
}
