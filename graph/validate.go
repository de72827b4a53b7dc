package graph

import "fmt"

// Validate checks the structural rules Parse enforces on a graph that was
// built in code: non-empty unique node IDs, well-formed boxes and non-empty
// edge endpoints.
func (g *Graph) Validate(source string) error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return nodeError(source, i, "missing valid 'id' (non-empty string)")
		}
		if _, dup := seen[n.ID]; dup {
			return nodeError(source, i, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = struct{}{}
		if n.BBox != nil && !n.BBox.Valid() {
			return nodeError(source, i, fmt.Sprintf("invalid bbox size for node %q (w and h must be > 0)", n.ID))
		}
	}
	for i, e := range g.Edges {
		if e.Source == "" {
			return edgeError(source, i, "missing valid 'source' (or legacy 'from')")
		}
		if e.Target == "" {
			return edgeError(source, i, "missing valid 'target' (or legacy 'to')")
		}
	}
	return nil
}

// ValidateGroundTruth runs Validate and additionally requires every edge to
// connect two distinct nodes of the same graph.
func (g *Graph) ValidateGroundTruth(source string) error {
	if err := g.Validate(source); err != nil {
		return err
	}
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	for i, e := range g.Edges {
		if e.Source == e.Target {
			return edgeError(source, i, fmt.Sprintf("self-loop not allowed (%q)", e.Source))
		}
		if _, ok := ids[e.Source]; !ok {
			return edgeError(source, i, fmt.Sprintf("edge references unknown node %q", e.Source))
		}
		if _, ok := ids[e.Target]; !ok {
			return edgeError(source, i, fmt.Sprintf("edge references unknown node %q", e.Target))
		}
	}
	return nil
}
