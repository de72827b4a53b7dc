// Package predictor provides the built-in graph predictors: reference
// baselines that read the ground truth, an adapter for external programs and
// an ONNX graph-detection backend.
package predictor

import (
	"cmp"
	"context"
	"slices"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
)

// Predictor turns a sample image into a graph. It has the same method set as
// diagbench.Predictor.
type Predictor interface {
	Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error)
}

// Func adapts a plain function to Predictor.
type Func func(ctx context.Context, s dataset.Sample) (*graph.Graph, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	return f(ctx, s)
}

// Oracle returns the ground truth with every id prefixed by "p". It scores
// perfectly and exercises the id-agnostic matching path.
type Oracle struct{}

// Predict implements Predictor.
func (Oracle) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gt, err := s.LoadGraph()
	if err != nil {
		return nil, err
	}
	out := &graph.Graph{
		Nodes: make([]graph.Node, 0, len(gt.Nodes)),
		Edges: make([]graph.Edge, 0, len(gt.Edges)),
	}
	for _, n := range gt.Nodes {
		out.Nodes = append(out.Nodes, graph.Node{ID: "p" + n.ID, BBox: n.BBox})
	}
	for _, e := range gt.Edges {
		out.Edges = append(out.Edges, graph.Edge{Source: "p" + e.Source, Target: "p" + e.Target})
	}
	return out, nil
}

// Heuristic keeps the ground-truth nodes and links them top to bottom: nodes
// are ordered by the vertical center of their box and each one gets an edge
// to the next. It is a deterministic baseline, right on chains and wrong on
// anything that branches.
type Heuristic struct{}

// Predict implements Predictor.
func (Heuristic) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gt, err := s.LoadGraph()
	if err != nil {
		return nil, err
	}
	nodes := slices.Clone(gt.Nodes)
	slices.SortStableFunc(nodes, func(a, b graph.Node) int {
		return cmp.Compare(centerY(a), centerY(b))
	})

	out := &graph.Graph{Nodes: nodes, Edges: make([]graph.Edge, 0, max(len(nodes)-1, 0))}
	for i := 1; i < len(nodes); i++ {
		out.Edges = append(out.Edges, graph.Edge{Source: nodes[i-1].ID, Target: nodes[i].ID})
	}
	return out, nil
}

func centerY(n graph.Node) float64 {
	if n.BBox == nil {
		return 0
	}
	_, y := n.BBox.Center()
	return y
}
