package result

import (
	"fmt"
	"strings"
)

// Summary renders the run's headline metrics as the lines printed after a
// benchmark run.
func Summary(r *BenchmarkResult) string {
	m := r.Metrics
	var b strings.Builder
	fmt.Fprintf(&b, "node: p=%.3f r=%.3f f1=%.3f\n", m[NodePrecision], m[NodeRecall], m[NodeF1])
	fmt.Fprintf(&b, "edge: p=%.3f r=%.3f f1=%.3f\n", m[EdgePrecision], m[EdgeRecall], m[EdgeF1])
	fmt.Fprintf(&b, "direction_accuracy=%.3f\n", m[DirectionAccuracy])
	fmt.Fprintf(&b, "exact_match_rate=%.3f\n", m[ExactMatchRate])
	if rt, ok := m[RuntimeMeanS]; ok {
		fmt.Fprintf(&b, "runtime_mean_s=%.6f\n", rt)
	} else {
		b.WriteString("runtime_mean_s=none\n")
	}
	return b.String()
}

var infoMetrics = []string{NodeF1, EdgeF1, DirectionAccuracy, ExactMatchRate, RuntimeMeanS}

var infoRun = []string{RunTimestamp, RunToolVersion, RunGitSHA, RunID}

// Info renders a stored record for inspection.
func Info(r *BenchmarkResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema_version: %s\n", r.SchemaVersion)
	fmt.Fprintf(&b, "dataset: %s\n", r.Dataset)
	fmt.Fprintf(&b, "split: %s\n", r.Split)
	fmt.Fprintf(&b, "predictor: %s\n", r.Predictor)
	fmt.Fprintf(&b, "num_samples: %d\n", r.NumSamples)

	b.WriteString("\nmetrics:\n")
	listed := false
	for _, k := range infoMetrics {
		if v, ok := r.Metrics[k]; ok {
			fmt.Fprintf(&b, "  %s: %g\n", k, v)
			listed = true
		}
	}
	if !listed {
		b.WriteString("  (none)\n")
	}

	b.WriteString("\nrun:\n")
	listed = false
	for _, k := range infoRun {
		if v, ok := r.Run[k]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
			listed = true
		}
	}
	if !listed {
		b.WriteString("  (none)\n")
	}
	return b.String()
}
