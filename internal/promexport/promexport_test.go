package promexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jamesainslie/go-diagbench/metrics"
	"github.com/jamesainslie/go-diagbench/result"
)

func testResult() *result.BenchmarkResult {
	agg := metrics.Aggregate{
		Node:              metrics.PRF1{Precision: 1, Recall: 1, F1: 1},
		Edge:              metrics.PRF1{Precision: 0.5, Recall: 1, F1: 0.75},
		DirectionAccuracy: 1,
		ExactMatchRate:    0.5,
		Count:             2,
	}
	prov := result.Provenance{Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ToolVersion: "dev"}
	return result.New("synthetic", "test", "heuristic", agg, prov)
}

func TestRegistry(t *testing.T) {
	reg := Registry(testResult())

	expected := `
		# HELP diagbench_samples Number of samples scored in the latest run.
		# TYPE diagbench_samples gauge
		diagbench_samples{dataset="synthetic",predictor="heuristic",split="test"} 2
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "diagbench_samples"); err != nil {
		t.Errorf("unexpected samples gauge: %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "diagbench_metric")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != len(result.RequiredMetrics) {
		t.Errorf("expected %d metric series, got %d", len(result.RequiredMetrics), n)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagbench.prom")
	if err := WriteTextfile(path, testResult()); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `diagbench_metric{dataset="synthetic",metric="edge_f1",predictor="heuristic",split="test"} 0.75`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q:\n%s", want, data)
	}
}
