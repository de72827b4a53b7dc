// Package match aligns predicted graph nodes to ground-truth nodes and
// projects predicted edges into ground-truth ID space.
//
// Matching is greedy by ascending center distance, not an optimal
// bipartite assignment. Benchmark numbers depend on this exact procedure,
// so it must not be replaced by an optimal solver.
package match

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jamesainslie/go-diagbench/graph"
)

var (
	// ErrInvalidAlpha is returned when the distance factor is not a positive
	// finite number.
	ErrInvalidAlpha = errors.New("match: alpha must be > 0")

	// ErrMissingBBox is returned when a node to be matched carries no box.
	ErrMissingBBox = errors.New("match: node has no bbox")
)

// Alignment maps predicted node IDs to ground-truth node IDs. It is an
// injective partial function: no two predicted IDs share a target.
type Alignment map[string]string

// Len returns the number of matched pairs.
func (a Alignment) Len() int {
	return len(a)
}

// GTIDs returns the matched ground-truth IDs in sorted order.
func (a Alignment) GTIDs() []string {
	ids := make([]string, 0, len(a))
	for _, g := range a {
		ids = append(ids, g)
	}
	sort.Strings(ids)
	return ids
}

// Inverse returns the ground-truth to predicted mapping.
func (a Alignment) Inverse() map[string]string {
	inv := make(map[string]string, len(a))
	for p, g := range a {
		inv[g] = p
	}
	return inv
}

// ValidateAlpha reports whether alpha is usable as a distance factor.
func ValidateAlpha(alpha float64) error {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return fmt.Errorf("%w (got %v)", ErrInvalidAlpha, alpha)
	}
	return nil
}

type candidate struct {
	dist float64
	pred string
	gt   string
}

// Nodes aligns pred to gt. A predicted node is a candidate for a ground-truth
// node when their centers lie within alpha times the ground-truth box
// diagonal. Candidates are consumed in (distance, pred ID, GT ID) order and
// accepted only while both sides are still free.
func Nodes(gt, pred []graph.Node, alpha float64) (Alignment, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	if err := requireBoxes(gt, "ground truth"); err != nil {
		return nil, err
	}
	if err := requireBoxes(pred, "predicted"); err != nil {
		return nil, err
	}

	var cands []candidate
	for _, g := range gt {
		gx, gy := g.BBox.Center()
		limit := alpha * g.BBox.Diag()
		for _, p := range pred {
			px, py := p.BBox.Center()
			d := math.Hypot(px-gx, py-gy)
			if d <= limit {
				cands = append(cands, candidate{dist: d, pred: p.ID, gt: g.ID})
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.pred != b.pred {
			return a.pred < b.pred
		}
		return a.gt < b.gt
	})

	out := make(Alignment)
	usedGT := make(map[string]bool)
	for _, c := range cands {
		if _, ok := out[c.pred]; ok || usedGT[c.gt] {
			continue
		}
		out[c.pred] = c.gt
		usedGT[c.gt] = true
	}
	return out, nil
}

func requireBoxes(nodes []graph.Node, side string) error {
	for _, n := range nodes {
		if n.BBox == nil {
			return fmt.Errorf("%w: %s node %q", ErrMissingBBox, side, n.ID)
		}
	}
	return nil
}

// Project rewrites predicted edges into ground-truth ID space. Edges with an
// unmatched endpoint are dropped; duplicates collapse.
func Project(edges []graph.Edge, a Alignment) graph.EdgeSet {
	out := make(graph.EdgeSet, len(edges))
	for _, e := range edges {
		src, ok := a[e.Source]
		if !ok {
			continue
		}
		dst, ok := a[e.Target]
		if !ok {
			continue
		}
		out.Add(graph.Edge{Source: src, Target: dst})
	}
	return out
}
