package metrics

import (
	"gonum.org/v1/gonum/stat"
)

// Aggregate is the arithmetic mean of sample scores over a run.
type Aggregate struct {
	Node              PRF1
	Edge              PRF1
	DirectionAccuracy float64
	ExactMatchRate    float64
	RuntimeMean       *float64 // seconds; nil when no sample was timed
	Count             int
}

// Mean averages samples field by field in slice order. Runtime is averaged
// over the samples that report one. An empty slice yields zero values.
func Mean(samples []Sample) Aggregate {
	agg := Aggregate{Count: len(samples)}
	if len(samples) == 0 {
		return agg
	}

	n := len(samples)
	cols := struct {
		np, nr, nf, ep, er, ef, dir, exact []float64
	}{
		np: make([]float64, n), nr: make([]float64, n), nf: make([]float64, n),
		ep: make([]float64, n), er: make([]float64, n), ef: make([]float64, n),
		dir: make([]float64, n), exact: make([]float64, n),
	}
	var runtimes []float64

	for i, s := range samples {
		cols.np[i], cols.nr[i], cols.nf[i] = s.Node.Precision, s.Node.Recall, s.Node.F1
		cols.ep[i], cols.er[i], cols.ef[i] = s.Edge.Precision, s.Edge.Recall, s.Edge.F1
		cols.dir[i] = s.DirectionAccuracy
		if s.ExactMatch {
			cols.exact[i] = 1
		}
		if s.Runtime != nil {
			runtimes = append(runtimes, s.Runtime.Seconds())
		}
	}

	agg.Node = PRF1{
		Precision: stat.Mean(cols.np, nil),
		Recall:    stat.Mean(cols.nr, nil),
		F1:        stat.Mean(cols.nf, nil),
	}
	agg.Edge = PRF1{
		Precision: stat.Mean(cols.ep, nil),
		Recall:    stat.Mean(cols.er, nil),
		F1:        stat.Mean(cols.ef, nil),
	}
	agg.DirectionAccuracy = stat.Mean(cols.dir, nil)
	agg.ExactMatchRate = stat.Mean(cols.exact, nil)
	if len(runtimes) > 0 {
		m := stat.Mean(runtimes, nil)
		agg.RuntimeMean = &m
	}
	return agg
}
