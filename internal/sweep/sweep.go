// Package sweep evaluates one predictor over a range of match distance
// factors.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	diagbench "github.com/jamesainslie/go-diagbench"
	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/metrics"
)

// ErrInvalidRange indicates an unusable alpha range.
var ErrInvalidRange = errors.New("sweep: invalid alpha range")

// Result holds the aggregate for one alpha. Runtime is left unset since
// predictions are shared between alphas.
type Result struct {
	Alpha     float64
	Aggregate metrics.Aggregate
	Skipped   int
}

// MaxAlphas caps the number of values Alphas generates.
const MaxAlphas = 10000

// Alphas generates values from min to max inclusive in steps of step.
func Alphas(min, max, step float64) ([]float64, error) {
	if !(min > 0) || !(step > 0) || !(max >= min) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("%w: min=%v max=%v step=%v", ErrInvalidRange, min, max, step)
	}
	steps := math.Floor((max-min)/step + 1e-9)
	if steps >= MaxAlphas {
		return nil, fmt.Errorf("%w: more than %d values (min=%v max=%v step=%v)", ErrInvalidRange, MaxAlphas, min, max, step)
	}
	n := int(steps) + 1
	alphas := make([]float64, n)
	for i := range alphas {
		// Round away accumulated float error so 0.1+0.2 prints as 0.3.
		alphas[i] = math.Round((min+float64(i)*step)*1e9) / 1e9
	}
	return alphas, nil
}

// Run predicts every sample once and scores the predictions at each alpha.
// Results are sorted best first: by exact match rate, then edge F1, then
// node F1, with smaller alphas winning ties.
func Run(ctx context.Context, samples []dataset.Sample, p diagbench.Predictor, alphas []float64, opts ...diagbench.Option) ([]Result, error) {
	if p == nil {
		return nil, diagbench.ErrNilPredictor
	}
	cached := newCache(p)
	opts = slices.Clone(opts)

	results := make([]Result, 0, len(alphas))
	for _, alpha := range alphas {
		ev, err := diagbench.New(cached, append(opts, diagbench.WithAlpha(alpha))...)
		if err != nil {
			return nil, err
		}
		report, err := ev.Run(ctx, samples)
		if err != nil {
			return nil, fmt.Errorf("alpha %v: %w", alpha, err)
		}
		agg := report.Aggregate
		agg.RuntimeMean = nil
		results = append(results, Result{Alpha: alpha, Aggregate: agg, Skipped: len(report.Skipped)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Aggregate, results[j].Aggregate
		if a.ExactMatchRate != b.ExactMatchRate {
			return a.ExactMatchRate > b.ExactMatchRate
		}
		if a.Edge.F1 != b.Edge.F1 {
			return a.Edge.F1 > b.Edge.F1
		}
		if a.Node.F1 != b.Node.F1 {
			return a.Node.F1 > b.Node.F1
		}
		return results[i].Alpha < results[j].Alpha
	})
	return results, nil
}

type prediction struct {
	g   *graph.Graph
	err error
}

// cache memoizes predictions by sample ID, errors included.
type cache struct {
	p  diagbench.Predictor
	mu sync.Mutex
	m  map[string]prediction
}

func newCache(p diagbench.Predictor) *cache {
	return &cache{p: p, m: make(map[string]prediction)}
}

func (c *cache) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	c.mu.Lock()
	hit, ok := c.m[s.ID]
	c.mu.Unlock()
	if ok {
		return hit.g, hit.err
	}

	g, err := c.p.Predict(ctx, s)
	if ctx.Err() != nil {
		// Cancellation is not a property of the sample.
		return g, err
	}
	c.mu.Lock()
	c.m[s.ID] = prediction{g: g, err: err}
	c.mu.Unlock()
	return g, err
}
