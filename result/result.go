// Package result builds, validates and persists the versioned benchmark
// result record.
//
// The record shape is a stability contract for leaderboards and CI checks.
// Changing it requires bumping SchemaVersion. Encoded records have sorted
// keys and a trailing newline, so two runs over the same inputs with a fixed
// clock produce byte-identical files.
package result

import (
	"errors"
	"fmt"
	"math"

	"github.com/jamesainslie/go-diagbench/metrics"
)

// SchemaVersion is the only record version this package reads and writes.
const SchemaVersion = "1.1"

// Metric keys of the flattened metrics mapping.
const (
	NodePrecision     = "node_precision"
	NodeRecall        = "node_recall"
	NodeF1            = "node_f1"
	EdgePrecision     = "edge_precision"
	EdgeRecall        = "edge_recall"
	EdgeF1            = "edge_f1"
	DirectionAccuracy = "direction_accuracy"
	ExactMatchRate    = "exact_match_rate"
	RuntimeMeanS      = "runtime_mean_s"
)

// RequiredMetrics lists the metric keys every record carries.
var RequiredMetrics = []string{
	NodePrecision, NodeRecall, NodeF1,
	EdgePrecision, EdgeRecall, EdgeF1,
	DirectionAccuracy, ExactMatchRate,
}

var (
	// ErrUnsupportedSchema indicates a record with a foreign schema_version.
	ErrUnsupportedSchema = errors.New("result: unsupported schema_version")

	// ErrNegativeSamples indicates num_samples < 0.
	ErrNegativeSamples = errors.New("result: num_samples must be >= 0")

	// ErrInvalid indicates any other contract violation.
	ErrInvalid = errors.New("result: invalid record")
)

// BenchmarkResult is the externally visible record of one run. Fields are
// declared in key order so the encoding is sorted.
type BenchmarkResult struct {
	Dataset       string             `json:"dataset" validate:"required"`
	Metrics       map[string]float64 `json:"metrics" validate:"required"`
	NumSamples    int                `json:"num_samples" validate:"gte=0"`
	Predictor     string             `json:"predictor" validate:"required"`
	Run           map[string]string  `json:"run" validate:"required"`
	SchemaVersion string             `json:"schema_version" validate:"required"`
	Split         string             `json:"split" validate:"required"`
}

// Flatten maps aggregate metrics onto the record's metric keys. The runtime
// key is present only when the aggregate has a runtime.
func Flatten(agg metrics.Aggregate) map[string]float64 {
	m := map[string]float64{
		NodePrecision:     agg.Node.Precision,
		NodeRecall:        agg.Node.Recall,
		NodeF1:            agg.Node.F1,
		EdgePrecision:     agg.Edge.Precision,
		EdgeRecall:        agg.Edge.Recall,
		EdgeF1:            agg.Edge.F1,
		DirectionAccuracy: agg.DirectionAccuracy,
		ExactMatchRate:    agg.ExactMatchRate,
	}
	if agg.RuntimeMean != nil {
		m[RuntimeMeanS] = *agg.RuntimeMean
	}
	return m
}

// New assembles a record from an aggregate and run provenance. Unless the
// provenance supplies one, the run ID is derived from the record's content.
func New(dataset, split, predictor string, agg metrics.Aggregate, prov Provenance) *BenchmarkResult {
	r := &BenchmarkResult{
		Dataset:       dataset,
		Metrics:       Flatten(agg),
		NumSamples:    agg.Count,
		Predictor:     predictor,
		Run:           prov.RunBlock(),
		SchemaVersion: SchemaVersion,
		Split:         split,
	}
	if r.Run[RunID] == "" {
		r.Run[RunID] = RunIDFor(r)
	}
	return r
}

// Metric returns a metric value and whether it is present.
func (r *BenchmarkResult) Metric(key string) (float64, bool) {
	v, ok := r.Metrics[key]
	return v, ok
}

// Validate checks the record against the schema contract. Schema version
// and sample count are checked first.
func (r *BenchmarkResult) Validate() error {
	if r.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedSchema, r.SchemaVersion, SchemaVersion)
	}
	if r.NumSamples < 0 {
		return fmt.Errorf("%w (got %d)", ErrNegativeSamples, r.NumSamples)
	}
	for k, v := range r.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: metric %s is not finite", ErrInvalid, k)
		}
	}
	if err := structValidator().Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := validateSchema(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
