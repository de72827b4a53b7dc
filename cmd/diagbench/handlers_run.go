package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	diagbench "github.com/jamesainslie/go-diagbench"
	"github.com/jamesainslie/go-diagbench/internal/promexport"
	"github.com/jamesainslie/go-diagbench/internal/sweep"
	"github.com/jamesainslie/go-diagbench/leaderboard"
	"github.com/jamesainslie/go-diagbench/result"
)

// =============================================================================
// Run Command Handler
// =============================================================================

// runBenchmark handles the run command.
func runBenchmark(cmd *cobra.Command, g *globalFlags, f *runFlags, args []string) error {
	cfg, err := resolveConfig(cmd, g, &f.predictorFlags)
	if err != nil {
		return err
	}
	applyEvalFlags(cmd, &cfg, &f.evalFlags)
	if cmd.Flags().Changed("alpha") {
		cfg.Alpha = f.alpha
	}
	if f.out != "" {
		cfg.Output = f.out
	}
	if f.promTextfile != "" {
		cfg.PromTextfile = f.promTextfile
	}
	if f.store != "" {
		cfg.Store = f.store
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ref, err := datasetRef(args, cfg)
	if err != nil {
		return err
	}
	ds, err := openDataset(ref, cfg.Permissive)
	if err != nil {
		return err
	}
	split, samples, err := selectSamples(ds, cfg.Split, f.limit)
	if err != nil {
		return err
	}

	clock, err := result.ClockFromEnv(os.Getenv)
	if err != nil {
		return err
	}

	p, cleanup, err := openPredictor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []diagbench.Option{
		diagbench.WithAlpha(cfg.Alpha),
		diagbench.WithWorkers(cfg.Workers),
		diagbench.WithLogger(slog.Default()),
		diagbench.WithClock(clock),
	}
	if cfg.SkipFailed {
		opts = append(opts, diagbench.WithSkipFailed())
	}
	ev, err := diagbench.New(p, opts...)
	if err != nil {
		return err
	}

	slog.Info("running benchmark", "dataset", ref, "split", split, "predictor", cfg.Predictor, "samples", len(samples))
	report, err := ev.Run(cmd.Context(), samples)
	if err != nil {
		return err
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", s.SampleID, s.Err)
	}

	digest, err := ds.Digest()
	if err != nil {
		return err
	}
	prov := result.DetectProvenance(clock)
	prov.ToolVersion = toolVersion(prov.ToolVersion)
	prov.Extra = map[string]string{
		result.RunDatasetRef:     ref,
		result.RunPredictor:      cfg.Predictor,
		result.RunManifestSHA256: digest,
		result.RunCLI:            cmd.CommandPath(),
		result.RunAlpha:          strconv.FormatFloat(cfg.Alpha, 'g', -1, 64),
	}
	rec := result.New(ref, split, cfg.Predictor, report.Aggregate, prov)
	if err := rec.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.printJSON {
		data, err := result.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, result.Summary(rec))
	}

	if cfg.Output != "" {
		if err := result.Write(cfg.Output, rec); err != nil {
			return err
		}
		if !f.printJSON {
			fmt.Fprintf(out, "Wrote JSON: %s\n", cfg.Output)
		}
	}
	if cfg.PromTextfile != "" {
		if err := promexport.WriteTextfile(cfg.PromTextfile, rec); err != nil {
			return fmt.Errorf("write prometheus textfile: %w", err)
		}
	}
	if cfg.Store != "" {
		if err := storeResult(cmd.Context(), cfg.Store, rec); err != nil {
			return err
		}
	}
	return nil
}

// toolVersion prefers the ldflags version over the module version.
func toolVersion(detected string) string {
	if version != "dev" {
		return version
	}
	return detected
}

func storeResult(ctx context.Context, path string, rec *result.BenchmarkResult) error {
	store, err := leaderboard.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.Add(ctx, rec)
}

// =============================================================================
// Sweep Command Handler
// =============================================================================

// runSweep handles the sweep command.
func runSweep(cmd *cobra.Command, g *globalFlags, f *sweepFlags, args []string) error {
	cfg, err := resolveConfig(cmd, g, &f.predictorFlags)
	if err != nil {
		return err
	}
	applyEvalFlags(cmd, &cfg, &f.evalFlags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	alphas, err := sweep.Alphas(f.alphaMin, f.alphaMax, f.alphaStep)
	if err != nil {
		return err
	}
	ref, err := datasetRef(args, cfg)
	if err != nil {
		return err
	}
	ds, err := openDataset(ref, cfg.Permissive)
	if err != nil {
		return err
	}
	split, samples, err := selectSamples(ds, cfg.Split, f.limit)
	if err != nil {
		return err
	}

	p, cleanup, err := openPredictor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []diagbench.Option{
		diagbench.WithWorkers(cfg.Workers),
		diagbench.WithLogger(slog.Default()),
	}
	if cfg.SkipFailed {
		opts = append(opts, diagbench.WithSkipFailed())
	}
	results, err := sweep.Run(cmd.Context(), samples, p, alphas, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Alpha Sweep: %s/%s, predictor %s (%d samples)\n", ref, split, cfg.Predictor, len(samples))
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "%-8s %-8s %-8s %-8s %-8s\n", "Alpha", "NodeF1", "EdgeF1", "DirAcc", "Exact")
	for _, r := range results {
		a := r.Aggregate
		fmt.Fprintf(out, "%-8.3f %-8.3f %-8.3f %-8.3f %-8.3f\n", r.Alpha, a.Node.F1, a.Edge.F1, a.DirectionAccuracy, a.ExactMatchRate)
	}
	fmt.Fprintln(out, strings.Repeat("-", 50))
	if len(results) > 0 {
		fmt.Fprintf(out, "Best: %.3f (exact_match_rate=%.3f)\n", results[0].Alpha, results[0].Aggregate.ExactMatchRate)
	}
	return nil
}
