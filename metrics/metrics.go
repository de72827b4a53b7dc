// Package metrics scores a predicted graph against ground truth once nodes
// have been aligned and predicted edges projected into ground-truth space.
//
// Every function here is pure: results depend only on the arguments.
package metrics

import (
	"time"

	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/match"
)

// PRF1 holds precision, recall and F1.
type PRF1 struct {
	Precision float64
	Recall    float64
	F1        float64
}

// NewPRF1 computes PRF1 from a true positive count and the sizes of the
// predicted and ground-truth collections. Empty denominators yield 0.
func NewPRF1(tp, predN, gtN int) PRF1 {
	var m PRF1
	if predN > 0 {
		m.Precision = float64(tp) / float64(predN)
	}
	if gtN > 0 {
		m.Recall = float64(tp) / float64(gtN)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// Sample is the score of a single sample.
type Sample struct {
	Node              PRF1
	Edge              PRF1
	DirectionAccuracy float64
	ExactMatch        bool
	Runtime           *time.Duration // nil when the predictor was not timed
}

// Nodes scores node detection: true positives are the aligned pairs.
func Nodes(gt, pred *graph.Graph, a match.Alignment) PRF1 {
	return NewPRF1(a.Len(), len(pred.Nodes), len(gt.Nodes))
}

// Edges scores the projected edge set against the ground-truth edge set.
func Edges(gtEdges, projected graph.EdgeSet) PRF1 {
	return NewPRF1(projected.IntersectLen(gtEdges), projected.Len(), gtEdges.Len())
}

// DirectionAccuracy is the share of projected edges with the right
// direction, counted only over edges whose undirected connection exists in
// ground truth. It is 0 when no such edge exists.
func DirectionAccuracy(gtEdges, projected graph.EdgeSet) float64 {
	var denom, correct int
	for e := range projected {
		switch {
		case gtEdges.Has(e):
			denom++
			correct++
		case gtEdges.Has(e.Reverse()):
			denom++
		}
	}
	if denom == 0 {
		return 0
	}
	return float64(correct) / float64(denom)
}

// ExactMatch reports whether the prediction reproduces ground truth: equal
// node counts, every ground-truth node covered by the alignment and an
// identical projected edge set.
func ExactMatch(gt, pred *graph.Graph, a match.Alignment, projected graph.EdgeSet) bool {
	gtIDs := idSet(gt)
	if len(idSet(pred)) != len(gtIDs) {
		return false
	}
	if a.Len() != len(gtIDs) {
		return false
	}
	covered := make(map[string]struct{}, a.Len())
	for _, g := range a {
		if _, ok := gtIDs[g]; !ok {
			return false
		}
		covered[g] = struct{}{}
	}
	if len(covered) != len(gtIDs) {
		return false
	}
	return projected.Equal(gt.EdgeSet())
}

func idSet(g *graph.Graph) map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// Compute scores one sample.
func Compute(gt, pred *graph.Graph, a match.Alignment, projected graph.EdgeSet, runtime *time.Duration) Sample {
	gtEdges := gt.EdgeSet()
	return Sample{
		Node:              Nodes(gt, pred, a),
		Edge:              Edges(gtEdges, projected),
		DirectionAccuracy: DirectionAccuracy(gtEdges, projected),
		ExactMatch:        ExactMatch(gt, pred, a, projected),
		Runtime:           runtime,
	}
}
