package diagbench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/match"
)

// scenarioGT is the two-node ground truth used across tests.
const scenarioGT = `{"nodes":[{"id":"g1","bbox":[0,0,100,100]},{"id":"g2","bbox":[200,0,100,100]}],"edges":[{"source":"g1","target":"g2"}]}`

type predictFunc func(ctx context.Context, s dataset.Sample) (*graph.Graph, error)

func (f predictFunc) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	return f(ctx, s)
}

// writeDataset creates a dataset with one sample per id, all sharing gt.
func writeDataset(t *testing.T, gt string, ids ...string) []dataset.Sample {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"images", "graphs"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "dataset.json"), []byte(`{"schema_version":"1.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := os.WriteFile(filepath.Join(root, "images", id+".png"), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, "graphs", id+".json"), []byte(gt), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	d, err := dataset.Load(root)
	if err != nil {
		t.Fatalf("dataset.Load() failed: %v", err)
	}
	samples, err := d.Samples(d.DefaultSplit())
	if err != nil {
		t.Fatalf("Samples() failed: %v", err)
	}
	return samples
}

func fixed(g *graph.Graph) Predictor {
	return predictFunc(func(context.Context, dataset.Sample) (*graph.Graph, error) {
		return g.Clone(), nil
	})
}

func scenarioPred(edges ...graph.Edge) *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{
			{ID: "p1", BBox: &graph.BBox{X: 10, Y: 10, W: 80, H: 80}},
			{ID: "p2", BBox: &graph.BBox{X: 210, Y: 10, W: 80, H: 80}},
		},
		Edges: edges,
	}
}

// relabel is an identity predictor that renames every node.
var relabel = predictFunc(func(_ context.Context, s dataset.Sample) (*graph.Graph, error) {
	gt, err := s.LoadGraph()
	if err != nil {
		return nil, err
	}
	out := gt.Clone()
	for i := range out.Nodes {
		out.Nodes[i].ID = "pred-" + out.Nodes[i].ID
	}
	for i := range out.Edges {
		out.Edges[i] = graph.Edge{Source: "pred-" + out.Edges[i].Source, Target: "pred-" + out.Edges[i].Target}
	}
	return out, nil
})

func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilPredictor) {
		t.Errorf("expected ErrNilPredictor, got: %v", err)
	}

	ev, err := New(relabel)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if ev.Alpha() != DefaultAlpha {
		t.Errorf("expected alpha %v, got %v", DefaultAlpha, ev.Alpha())
	}
	if ev.workers != 1 {
		t.Errorf("expected 1 worker, got %d", ev.workers)
	}
}

func TestNew_InvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -1} {
		if _, err := New(relabel, WithAlpha(alpha)); !errors.Is(err, match.ErrInvalidAlpha) {
			t.Errorf("alpha=%v: expected ErrInvalidAlpha, got: %v", alpha, err)
		}
	}
}

func TestEvaluateSample_Scenarios(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "s1")

	tests := []struct {
		name      string
		pred      *graph.Graph
		alpha     float64
		nodeF1    float64
		edgeF1    float64
		direction float64
		exact     bool
	}{
		{
			name:      "matching prediction",
			pred:      scenarioPred(graph.Edge{Source: "p1", Target: "p2"}),
			alpha:     0.3,
			nodeF1:    1,
			edgeF1:    1,
			direction: 1,
			exact:     true,
		},
		{
			name:   "reversed edge",
			pred:   scenarioPred(graph.Edge{Source: "p2", Target: "p1"}),
			alpha:  0.3,
			nodeF1: 1,
		},
		{
			name: "prediction far away",
			pred: &graph.Graph{Nodes: []graph.Node{
				{ID: "p1", BBox: &graph.BBox{X: 700, Y: 0, W: 100, H: 100}},
			}},
			alpha: 0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := New(fixed(tt.pred), WithAlpha(tt.alpha))
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			r, err := ev.EvaluateSample(context.Background(), samples[0])
			if err != nil {
				t.Fatalf("EvaluateSample() failed: %v", err)
			}
			m := r.Metrics
			if m.Node.F1 != tt.nodeF1 || m.Edge.F1 != tt.edgeF1 {
				t.Errorf("expected node/edge f1 %v/%v, got %v/%v", tt.nodeF1, tt.edgeF1, m.Node.F1, m.Edge.F1)
			}
			if m.DirectionAccuracy != tt.direction {
				t.Errorf("expected direction accuracy %v, got %v", tt.direction, m.DirectionAccuracy)
			}
			if m.ExactMatch != tt.exact {
				t.Errorf("expected exact match %v, got %v", tt.exact, m.ExactMatch)
			}
		})
	}
}

func TestRun_IdentityPredictor(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "a", "b", "c")

	ev, err := New(relabel)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	report, err := ev.Run(context.Background(), samples)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	agg := report.Aggregate
	if agg.Count != 3 {
		t.Errorf("expected 3 samples, got %d", agg.Count)
	}
	if agg.Node.F1 != 1 || agg.Edge.F1 != 1 || agg.DirectionAccuracy != 1 || agg.ExactMatchRate != 1 {
		t.Errorf("expected perfect scores, got %+v", agg)
	}
	if agg.RuntimeMean == nil {
		t.Error("expected runtime mean to be set")
	}
}

func TestRun_FixedClock(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "a")
	stopped := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	ev, err := New(relabel, WithClock(func() time.Time { return stopped }))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	report, err := ev.Run(context.Background(), samples)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if rt := report.Aggregate.RuntimeMean; rt == nil || *rt != 0 {
		t.Errorf("expected zero runtime under fixed clock, got %v", rt)
	}
}

// failOn returns a predictor that fails for the given sample id and
// otherwise behaves like relabel.
func failOn(id string, err error) Predictor {
	return predictFunc(func(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
		if s.ID == id {
			return nil, err
		}
		return relabel(ctx, s)
	})
}

func TestRun_FailFast(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "a", "b", "c")
	boom := errors.New("boom")

	ev, err := New(failOn("b", boom))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	_, err = ev.Run(context.Background(), samples)
	if err == nil {
		t.Fatal("expected error from failing sample")
	}

	var serr *SampleError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SampleError, got %T: %v", err, err)
	}
	if serr.SampleID != "b" {
		t.Errorf("expected sample b, got %q", serr.SampleID)
	}
	var perr *PredictionError
	if !errors.As(err, &perr) {
		t.Errorf("expected *PredictionError in chain, got: %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected predictor error in chain, got: %v", err)
	}
}

func TestRun_SkipFailed(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "a", "b", "c")

	ev, err := New(failOn("b", errors.New("boom")), WithSkipFailed())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	report, err := ev.Run(context.Background(), samples)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(report.Samples) != 2 || report.Samples[0].SampleID != "a" || report.Samples[1].SampleID != "c" {
		t.Errorf("unexpected scored samples: %+v", report.Samples)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].SampleID != "b" {
		t.Fatalf("unexpected skipped samples: %+v", report.Skipped)
	}
	if report.Skipped[0].Err == nil {
		t.Error("expected skipped sample to carry its error")
	}
	if report.Aggregate.Count != 2 || report.Aggregate.ExactMatchRate != 1 {
		t.Errorf("expected aggregate over 2 perfect samples, got %+v", report.Aggregate)
	}
}

func TestRun_MalformedPrediction(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "a")

	tests := []struct {
		name    string
		pred    Predictor
		wantErr error
	}{
		{
			name:    "nil graph",
			pred:    predictFunc(func(context.Context, dataset.Sample) (*graph.Graph, error) { return nil, nil }),
			wantErr: ErrNoGraph,
		},
		{
			name: "edge missing target",
			pred: fixed(&graph.Graph{
				Nodes: []graph.Node{{ID: "p1", BBox: &graph.BBox{W: 1, H: 1}}},
				Edges: []graph.Edge{{Source: "p1"}},
			}),
			wantErr: graph.ErrMalformed,
		},
		{
			name:    "node without bbox",
			pred:    fixed(&graph.Graph{Nodes: []graph.Node{{ID: "p1"}}}),
			wantErr: match.ErrMissingBBox,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := New(tt.pred)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			_, err = ev.Run(context.Background(), samples)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got: %v", tt.wantErr, err)
			}
			var perr *PredictionError
			if !errors.As(err, &perr) {
				t.Errorf("expected *PredictionError, got %T", err)
			}
		})
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	ids := make([]string, 24)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%02d", i)
	}
	samples := writeDataset(t, scenarioGT, ids...)

	// Odd samples lose an edge so per-sample scores differ.
	var calls atomic.Int64
	pred := predictFunc(func(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
		calls.Add(1)
		g, err := relabel(ctx, s)
		if err != nil {
			return nil, err
		}
		var n int
		fmt.Sscanf(s.ID, "s%d", &n)
		if n%2 == 1 {
			g.Edges = nil
		}
		return g, nil
	})

	fixedClock := WithClock(func() time.Time { return time.Unix(0, 0) })

	seq, err := New(pred, fixedClock)
	if err != nil {
		t.Fatal(err)
	}
	want, err := seq.Run(context.Background(), samples)
	if err != nil {
		t.Fatalf("sequential Run() failed: %v", err)
	}

	par, err := New(pred, fixedClock, WithWorkers(8))
	if err != nil {
		t.Fatal(err)
	}
	got, err := par.Run(context.Background(), samples)
	if err != nil {
		t.Fatalf("parallel Run() failed: %v", err)
	}

	if got.Aggregate.Edge.F1 != want.Aggregate.Edge.F1 || got.Aggregate.ExactMatchRate != want.Aggregate.ExactMatchRate {
		t.Errorf("parallel aggregate %+v differs from sequential %+v", got.Aggregate, want.Aggregate)
	}
	for i := range want.Samples {
		if got.Samples[i].SampleID != want.Samples[i].SampleID {
			t.Fatalf("sample %d: expected %s, got %s", i, want.Samples[i].SampleID, got.Samples[i].SampleID)
		}
	}
	if calls.Load() != int64(2*len(samples)) {
		t.Errorf("expected %d predictor calls, got %d", 2*len(samples), calls.Load())
	}
}

func TestRun_Canceled(t *testing.T) {
	samples := writeDataset(t, scenarioGT, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev, err := New(relabel, WithSkipFailed())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ev.Run(ctx, samples); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestRun_Empty(t *testing.T) {
	ev, err := New(relabel)
	if err != nil {
		t.Fatal(err)
	}
	report, err := ev.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if report.Aggregate.Count != 0 || len(report.Samples) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}
