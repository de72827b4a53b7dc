// Package promexport renders benchmark results in the Prometheus text
// format for node_exporter's textfile collector.
package promexport

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jamesainslie/go-diagbench/result"
)

const namespace = "diagbench"

// Registry returns a registry holding r's metrics as gauges.
func Registry(r *result.BenchmarkResult) *prometheus.Registry {
	labels := prometheus.Labels{
		"dataset":   r.Dataset,
		"split":     r.Split,
		"predictor": r.Predictor,
	}

	metric := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "metric",
			Help:        "Aggregate benchmark metric of the latest run.",
			ConstLabels: labels,
		},
		[]string{"metric"},
	)
	samples := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "samples",
		Help:        "Number of samples scored in the latest run.",
		ConstLabels: labels,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(metric, samples)

	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		metric.WithLabelValues(k).Set(r.Metrics[k])
	}
	samples.Set(float64(r.NumSamples))
	return reg
}

// WriteTextfile writes r's metrics to path. The file is replaced atomically.
func WriteTextfile(path string, r *result.BenchmarkResult) error {
	return prometheus.WriteToTextfile(path, Registry(r))
}
