package main

import (
	"time"

	"github.com/spf13/cobra"
)

// predictorFlags are the flags that select and configure a predictor. They
// override values from the run configuration when set.
type predictorFlags struct {
	predictor      string
	command        []string
	commandTimeout time.Duration
	model          string
	sessions       int
	nodeThreshold  float64
	edgeThreshold  float64
}

func (f *predictorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.predictor, "predictor", "p", "oracle", "Predictor name (see `diagbench predictors`)")
	cmd.Flags().StringArrayVar(&f.command, "command", nil, "Program and arguments for the command predictor (repeatable)")
	cmd.Flags().DurationVar(&f.commandTimeout, "command-timeout", 0, "Per-sample limit for the command predictor")
	cmd.Flags().StringVar(&f.model, "model", "", "ONNX model path for the onnx predictor")
	cmd.Flags().IntVar(&f.sessions, "sessions", 1, "Pooled ONNX sessions")
	cmd.Flags().Float64Var(&f.nodeThreshold, "node-threshold", 0, "ONNX node score cut-off (default 0.5)")
	cmd.Flags().Float64Var(&f.edgeThreshold, "edge-threshold", 0, "ONNX edge probability cut-off (default 0.5)")
}

// evalFlags are shared by run and sweep.
type evalFlags struct {
	predictorFlags
	split      string
	limit      int
	workers    int
	skipFailed bool
	permissive bool
}

func (f *evalFlags) register(cmd *cobra.Command) {
	f.predictorFlags.register(cmd)
	cmd.Flags().StringVarP(&f.split, "split", "s", "", "Dataset split (default: test, else all)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Evaluate only the first N samples of the split")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 1, "Samples evaluated concurrently")
	cmd.Flags().BoolVar(&f.skipFailed, "skip-failed", false, "Skip and report failing samples instead of aborting")
	cmd.Flags().BoolVar(&f.permissive, "permissive", false, "Defer ground-truth validation to evaluation time")
}

// =============================================================================
// Run Command
// =============================================================================

type runFlags struct {
	evalFlags
	alpha        float64
	out          string
	printJSON    bool
	promTextfile string
	store        string
}

// buildRunCmd creates the "run" command.
func buildRunCmd(g *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [dataset]",
		Short: "Score a predictor on a dataset split",
		Long: `Score a predictor on a dataset split and print the headline metrics.

The dataset is a directory or a registered name (see DIAGBENCH_DATASET_PATHS).
With --out the validated result record is written atomically; set
DIAGBENCH_TIMESTAMP_UTC to make the record byte-identical across runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, g, &f, args)
		},
	}
	f.evalFlags.register(cmd)
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0.35, "Node match distance factor, relative to the ground-truth box diagonal")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the result record to this file")
	cmd.Flags().BoolVar(&f.printJSON, "json", false, "Print the result record instead of the summary")
	cmd.Flags().StringVar(&f.promTextfile, "prom-textfile", "", "Write aggregate metrics in Prometheus text format")
	cmd.Flags().StringVar(&f.store, "store", "", "Also record the result in this SQLite leaderboard")
	return cmd
}

// =============================================================================
// Sweep Command
// =============================================================================

type sweepFlags struct {
	evalFlags
	alphaMin  float64
	alphaMax  float64
	alphaStep float64
}

// buildSweepCmd creates the "sweep" command.
func buildSweepCmd(g *globalFlags) *cobra.Command {
	var f sweepFlags
	cmd := &cobra.Command{
		Use:   "sweep [dataset]",
		Short: "Score a predictor across a range of match distance factors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, g, &f, args)
		},
	}
	f.evalFlags.register(cmd)
	cmd.Flags().Float64Var(&f.alphaMin, "alpha-min", 0.1, "Smallest alpha")
	cmd.Flags().Float64Var(&f.alphaMax, "alpha-max", 1.0, "Largest alpha")
	cmd.Flags().Float64Var(&f.alphaStep, "alpha-step", 0.05, "Alpha increment")
	return cmd
}

// =============================================================================
// Dataset Commands
// =============================================================================

// buildValidateCmd creates the "validate" command.
func buildValidateCmd() *cobra.Command {
	var permissive, imageBounds bool
	cmd := &cobra.Command{
		Use:   "validate <dataset>",
		Short: "Check a dataset's layout, splits and ground truth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], permissive, imageBounds)
		},
	}
	cmd.Flags().BoolVar(&permissive, "permissive", false, "Skip per-graph validation")
	cmd.Flags().BoolVar(&imageBounds, "image-bounds", false, "Also check that boxes lie inside their images")
	return cmd
}

// buildSynthCmd creates the "synth" command.
func buildSynthCmd() *cobra.Command {
	var (
		n       int
		seed    uint64
		split   string
		idWidth int
	)
	cmd := &cobra.Command{
		Use:   "synth <root>",
		Short: "Generate a deterministic synthetic flowchart dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd, args[0], n, seed, split, idWidth)
		},
	}
	cmd.Flags().IntVar(&n, "n", 3, "Number of samples")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Jitter seed")
	cmd.Flags().StringVar(&split, "split", "test", "Split listing every sample")
	cmd.Flags().IntVar(&idWidth, "id-width", 4, "Zero-padded sample index width")
	return cmd
}

// =============================================================================
// Result Commands
// =============================================================================

// buildInfoCmd creates the "info" command.
func buildInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <result.json>",
		Short: "Validate and describe a stored result record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args[0])
		},
	}
}

type leaderboardFlags struct {
	format  string
	out     string
	store   string
	dataset string
	split   string
	top     int
}

// buildLeaderboardCmd creates the "leaderboard" command.
func buildLeaderboardCmd() *cobra.Command {
	var f leaderboardFlags
	cmd := &cobra.Command{
		Use:   "leaderboard [paths...]",
		Short: "Tabulate result records as CSV or Markdown",
		Long: `Tabulate result records as CSV or Markdown.

Paths may be files or directories, which are searched for .json records.
Invalid records are skipped with a warning. With --store and --dataset the
rows come from a SQLite leaderboard instead, best first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd, &f, args)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "csv", "Output format: csv or md")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the table to this file instead of stdout")
	cmd.Flags().StringVar(&f.store, "store", "", "Read rows from this SQLite leaderboard")
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "Dataset to rank (with --store)")
	cmd.Flags().StringVar(&f.split, "split", "", "Split to rank (with --store; default: all)")
	cmd.Flags().IntVar(&f.top, "top", 0, "Keep only the best N rows (with --store)")
	return cmd
}

// buildSchemaCmd creates the "schema" command.
func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [result|graph]",
		Short:     "Print the JSON Schema of result records or graph files",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"result", "graph"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "result"
			if len(args) == 1 {
				kind = args[0]
			}
			return runSchema(cmd, kind)
		},
	}
}

// =============================================================================
// Predictor Commands
// =============================================================================

// buildPredictorsCmd creates the "predictors" command.
func buildPredictorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predictors",
		Short: "List available predictors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredictors(cmd)
		},
	}
}

// buildPredictCmd creates the "predict" command.
func buildPredictCmd(g *globalFlags) *cobra.Command {
	var f predictorFlags
	cmd := &cobra.Command{
		Use:   "predict <dataset> <sample-id>",
		Short: "Print one predicted graph as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, g, &f, args[0], args[1])
		},
	}
	f.register(cmd)
	return cmd
}
