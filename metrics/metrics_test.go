package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/match"
)

func edge(s, t string) graph.Edge {
	return graph.Edge{Source: s, Target: t}
}

func twoNodes(a, b string) []graph.Node {
	return []graph.Node{
		{ID: a, BBox: &graph.BBox{X: 0, Y: 0, W: 10, H: 10}},
		{ID: b, BBox: &graph.BBox{X: 20, Y: 0, W: 10, H: 10}},
	}
}

func TestNewPRF1(t *testing.T) {
	tests := []struct {
		name           string
		tp, predN, gtN int
		want           PRF1
	}{
		{"perfect", 3, 3, 3, PRF1{1, 1, 1}},
		{"half", 1, 2, 2, PRF1{0.5, 0.5, 0.5}},
		{"no predictions", 0, 0, 4, PRF1{0, 0, 0}},
		{"no ground truth", 0, 3, 0, PRF1{0, 0, 0}},
		{"both empty", 0, 0, 0, PRF1{0, 0, 0}},
		{"extra prediction", 1, 2, 1, PRF1{0.5, 1, 2 * 0.5 / 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPRF1(tt.tp, tt.predN, tt.gtN)
			if got != tt.want {
				t.Errorf("NewPRF1(%d, %d, %d) = %+v, want %+v", tt.tp, tt.predN, tt.gtN, got, tt.want)
			}
			if math.IsNaN(got.F1) {
				t.Error("F1 is NaN")
			}
		})
	}
}

func TestNodes(t *testing.T) {
	gt := &graph.Graph{Nodes: twoNodes("g1", "g2")}
	pred := &graph.Graph{Nodes: twoNodes("p1", "p2")}

	got := Nodes(gt, pred, match.Alignment{"p1": "g1"})
	want := PRF1{Precision: 0.5, Recall: 0.5, F1: 0.5}
	if got != want {
		t.Errorf("Nodes() = %+v, want %+v", got, want)
	}
}

func TestEdges(t *testing.T) {
	gt := graph.NewEdgeSet(edge("g1", "g2"))
	projected := graph.NewEdgeSet(edge("g1", "g2"), edge("g2", "g1"))

	got := Edges(gt, projected)
	want := PRF1{Precision: 0.5, Recall: 1, F1: 2 * (0.5 * 1.0) / (0.5 + 1.0)}
	if got != want {
		t.Errorf("Edges() = %+v, want %+v", got, want)
	}
}

func TestDirectionAccuracy(t *testing.T) {
	gt := graph.NewEdgeSet(edge("g1", "g2"))

	tests := []struct {
		name      string
		projected graph.EdgeSet
		want      float64
	}{
		{
			name:      "unrelated edges excluded",
			projected: graph.NewEdgeSet(edge("g1", "g2"), edge("g2", "g1"), edge("g9", "g10")),
			want:      0.5,
		},
		{
			name:      "only reversed",
			projected: graph.NewEdgeSet(edge("g2", "g1")),
			want:      0,
		},
		{
			name:      "no overlap",
			projected: graph.NewEdgeSet(edge("g3", "g4")),
			want:      0,
		},
		{
			name:      "empty",
			projected: graph.NewEdgeSet(),
			want:      0,
		},
		{
			name:      "all correct",
			projected: graph.NewEdgeSet(edge("g1", "g2")),
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DirectionAccuracy(gt, tt.projected); got != tt.want {
				t.Errorf("DirectionAccuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExactMatch(t *testing.T) {
	gt := &graph.Graph{Nodes: twoNodes("g1", "g2"), Edges: []graph.Edge{edge("g1", "g2")}}
	pred := &graph.Graph{Nodes: twoNodes("p1", "p2"), Edges: []graph.Edge{edge("p1", "p2")}}
	full := match.Alignment{"p1": "g1", "p2": "g2"}

	tests := []struct {
		name      string
		pred      *graph.Graph
		a         match.Alignment
		projected graph.EdgeSet
		want      bool
	}{
		{"identical", pred, full, graph.NewEdgeSet(edge("g1", "g2")), true},
		{"reversed edge", pred, full, graph.NewEdgeSet(edge("g2", "g1")), false},
		{"extra edge", pred, full, graph.NewEdgeSet(edge("g1", "g2"), edge("g2", "g1")), false},
		{"missing node match", pred, match.Alignment{"p1": "g1"}, graph.NewEdgeSet(edge("g1", "g2")), false},
		{
			name:      "extra predicted node",
			pred:      &graph.Graph{Nodes: append(twoNodes("p1", "p2"), graph.Node{ID: "p3", BBox: &graph.BBox{W: 1, H: 1}})},
			a:         full,
			projected: graph.NewEdgeSet(edge("g1", "g2")),
			want:      false,
		},
		{"alignment outside gt", pred, match.Alignment{"p1": "g1", "p2": "gx"}, graph.NewEdgeSet(edge("g1", "g2")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExactMatch(gt, tt.pred, tt.a, tt.projected); got != tt.want {
				t.Errorf("ExactMatch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompute_EmptyGraphs(t *testing.T) {
	empty := &graph.Graph{}
	got := Compute(empty, empty, match.Alignment{}, graph.NewEdgeSet(), nil)
	want := Sample{ExactMatch: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}
}

func TestMean(t *testing.T) {
	d := 2 * time.Second
	samples := []Sample{
		{Node: PRF1{1, 1, 1}, Edge: PRF1{1, 1, 1}, DirectionAccuracy: 1, ExactMatch: true, Runtime: &d},
		{Node: PRF1{0.5, 0.5, 0.5}, Edge: PRF1{0, 0, 0}, DirectionAccuracy: 0, ExactMatch: false},
	}

	got := Mean(samples)
	rt := 2.0
	want := Aggregate{
		Node:              PRF1{0.75, 0.75, 0.75},
		Edge:              PRF1{0.5, 0.5, 0.5},
		DirectionAccuracy: 0.5,
		ExactMatchRate:    0.5,
		RuntimeMean:       &rt,
		Count:             2,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Mean() mismatch (-want +got):\n%s", diff)
	}
}

func TestMean_NoRuntime(t *testing.T) {
	got := Mean([]Sample{{ExactMatch: true}})
	if got.RuntimeMean != nil {
		t.Errorf("RuntimeMean = %v, want nil", *got.RuntimeMean)
	}
	if got.ExactMatchRate != 1 {
		t.Errorf("ExactMatchRate = %v, want 1", got.ExactMatchRate)
	}
}

func TestMean_Empty(t *testing.T) {
	got := Mean(nil)
	if diff := cmp.Diff(Aggregate{}, got); diff != "" {
		t.Errorf("Mean(nil) mismatch (-want +got):\n%s", diff)
	}
}
