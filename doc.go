// Package diagbench evaluates diagram-understanding predictors against a
// ground-truth dataset of flowchart images and node/edge graphs.
//
// # Quick Start
//
//	ds, err := dataset.Load("data/synthetic")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	samples, err := ds.Samples(ds.DefaultSplit())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ev, err := diagbench.New(predictor.Oracle{}, diagbench.WithAlpha(0.35))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := ev.Run(ctx, samples)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("node f1: %.3f\n", report.Aggregate.Node.F1)
//
// # Pipeline
//
// For every sample the Evaluator loads the ground-truth graph, calls the
// predictor, aligns predicted nodes to ground-truth nodes (package match),
// projects predicted edges through the alignment and scores the result
// (package metrics). Per-sample scores are averaged in sample order, so the
// aggregate does not depend on WithWorkers.
//
// # Failure Handling
//
// A failing sample aborts the run with a *SampleError. WithSkipFailed turns
// on skip-and-report mode: failed samples are listed in Report.Skipped and
// left out of the aggregate. Dataset-level problems are reported by
// package dataset before any prediction runs.
//
// # Results
//
// Package result turns a Report into the versioned JSON record consumed by
// leaderboards and CI checks.
package diagbench
