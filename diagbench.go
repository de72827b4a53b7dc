package diagbench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/match"
	"github.com/jamesainslie/go-diagbench/metrics"
)

// Predictor turns a sample image into a graph. Implementations own any
// timeout or retry policy; the Evaluator calls Predict once per sample.
type Predictor interface {
	Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error)
}

// SampleResult is the outcome of one evaluated sample.
type SampleResult struct {
	SampleID  string
	Alignment match.Alignment
	Metrics   metrics.Sample
}

// Skipped records a sample left out in skip-and-report mode.
type Skipped struct {
	SampleID string
	Err      error
}

// Report is the outcome of a run. Samples and Skipped follow input order.
type Report struct {
	Samples   []SampleResult
	Skipped   []Skipped
	Aggregate metrics.Aggregate
}

// Evaluator scores a predictor against ground-truth samples.
// It is safe for concurrent use.
type Evaluator struct {
	predictor  Predictor
	alpha      float64
	workers    int
	logger     *slog.Logger
	now        func() time.Time
	skipFailed bool
}

// New creates an Evaluator for p.
func New(p Predictor, opts ...Option) (*Evaluator, error) {
	if p == nil {
		return nil, ErrNilPredictor
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := match.ValidateAlpha(cfg.alpha); err != nil {
		return nil, err
	}
	return &Evaluator{
		predictor:  p,
		alpha:      cfg.alpha,
		workers:    cfg.workers,
		logger:     cfg.logger,
		now:        cfg.now,
		skipFailed: cfg.skipFailed,
	}, nil
}

// Alpha returns the match distance factor in use.
func (e *Evaluator) Alpha() float64 {
	return e.alpha
}

// EvaluateSample loads the ground truth of s, runs the predictor and scores
// the prediction.
func (e *Evaluator) EvaluateSample(ctx context.Context, s dataset.Sample) (SampleResult, error) {
	gt, err := s.LoadGraph()
	if err != nil {
		return SampleResult{}, err
	}

	start := e.now()
	pred, err := e.predictor.Predict(ctx, s)
	elapsed := e.now().Sub(start)
	if err != nil {
		return SampleResult{}, &PredictionError{SampleID: s.ID, Err: err}
	}
	if pred == nil {
		return SampleResult{}, &PredictionError{SampleID: s.ID, Err: ErrNoGraph}
	}
	if err := pred.Validate("prediction " + s.ID); err != nil {
		return SampleResult{}, &PredictionError{SampleID: s.ID, Err: err}
	}
	for _, n := range pred.Nodes {
		if n.BBox == nil {
			return SampleResult{}, &PredictionError{
				SampleID: s.ID,
				Err:      fmt.Errorf("%w: node %q", match.ErrMissingBBox, n.ID),
			}
		}
	}

	a, err := match.Nodes(gt.Nodes, pred.Nodes, e.alpha)
	if err != nil {
		return SampleResult{}, err
	}
	projected := match.Project(pred.Edges, a)
	m := metrics.Compute(gt, pred, a, projected, &elapsed)

	e.logger.Debug("sample evaluated",
		"sample", s.ID,
		"matched", a.Len(),
		"node_f1", m.Node.F1,
		"edge_f1", m.Edge.F1,
		"exact", m.ExactMatch,
		"runtime", elapsed,
	)
	return SampleResult{SampleID: s.ID, Alignment: a, Metrics: m}, nil
}

// Run evaluates samples and aggregates the scores in input order.
//
// By default the first failing sample aborts the run with a *SampleError.
// With WithSkipFailed, failing samples are logged, listed in
// Report.Skipped and excluded from the aggregate.
func (e *Evaluator) Run(ctx context.Context, samples []dataset.Sample) (*Report, error) {
	results := make([]*SampleResult, len(samples))
	failures := make([]error, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.EvaluateSample(gctx, s)
			if err != nil {
				serr := &SampleError{SampleID: s.ID, Err: err}
				if e.skipFailed && ctx.Err() == nil {
					e.logger.Warn("skipping sample", "sample", s.ID, "error", err)
					failures[i] = serr
					return nil
				}
				return serr
			}
			results[i] = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Samples: make([]SampleResult, 0, len(samples))}
	scores := make([]metrics.Sample, 0, len(samples))
	for i, r := range results {
		if r == nil {
			report.Skipped = append(report.Skipped, Skipped{SampleID: samples[i].ID, Err: failures[i]})
			continue
		}
		report.Samples = append(report.Samples, *r)
		scores = append(scores, r.Metrics)
	}
	report.Aggregate = metrics.Mean(scores)

	e.logger.Info("run complete",
		"samples", len(report.Samples),
		"skipped", len(report.Skipped),
		"node_f1", report.Aggregate.Node.F1,
		"edge_f1", report.Aggregate.Edge.F1,
		"exact_match_rate", report.Aggregate.ExactMatchRate,
	)
	return report, nil
}
