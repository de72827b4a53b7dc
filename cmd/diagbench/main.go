// Package main provides the diagbench command-line interface.
//
// diagbench scores diagram-to-graph predictors against ground-truth
// datasets and manages the resulting benchmark records.
//
// # Basic Usage
//
// Generate a small dataset and score the oracle predictor on it:
//
//	diagbench synth ./data/synth --n 6
//	diagbench run ./data/synth --predictor oracle --out result.json
//
// Inspect and tabulate stored results:
//
//	diagbench info result.json
//	diagbench leaderboard results/ --format md
//
// # Environment Variables
//
//   - DIAGBENCH_DATASET_PATHS: dataset name mapping (inline JSON or a file path)
//   - DIAGBENCH_TIMESTAMP_UTC: pin the run timestamp (RFC 3339) for reproducible output
//   - DIAGBENCH_PREDICTOR, DIAGBENCH_ALPHA, DIAGBENCH_WORKERS: run defaults
//   - DIAGBENCH_ONNX_MODEL, DIAGBENCH_ORT_LIBRARY: onnx predictor settings
//   - DIAGBENCH_DEBUG: enable debug logging
//
// A .env file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-diagbench/internal/config"
	"github.com/jamesainslie/go-diagbench/internal/logging"
)

// Build information - populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := buildRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:          "diagbench",
		Short:        "Benchmark diagram-to-graph predictors",
		Long:         "diagbench scores predicted flowchart graphs against ground-truth datasets and writes versioned, reproducible result records.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if g.envFile != "" {
				files = append(files, g.envFile)
			}
			if err := config.LoadDotEnv(files...); err != nil {
				return err
			}
			debug := g.debug || os.Getenv(config.EnvDebug) == "true"
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logging.Options{Debug: debug}))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML run configuration")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Load environment variables from this file (default: .env)")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		buildRunCmd(&g),
		buildSweepCmd(&g),
		buildValidateCmd(),
		buildInfoCmd(),
		buildLeaderboardCmd(),
		buildSynthCmd(),
		buildSchemaCmd(),
		buildPredictorsCmd(),
		buildPredictCmd(&g),
	)
	return rootCmd
}
