package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/inference"
	"github.com/jamesainslie/go-diagbench/internal/config"
	"github.com/jamesainslie/go-diagbench/predictor"
)

// resolveConfig loads the run configuration and overlays the predictor
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, g *globalFlags, f *predictorFlags) (config.Config, error) {
	cfg, err := config.Load(g.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("predictor") {
		cfg.Predictor = f.predictor
	}
	if flags.Changed("command") {
		cfg.Command = f.command
	}
	if flags.Changed("command-timeout") {
		cfg.CommandTimeout = f.commandTimeout
	}
	if flags.Changed("model") {
		cfg.ONNX.Model = f.model
	}
	if flags.Changed("sessions") {
		cfg.ONNX.Sessions = f.sessions
	}
	if flags.Changed("node-threshold") {
		cfg.ONNX.NodeThreshold = f.nodeThreshold
	}
	if flags.Changed("edge-threshold") {
		cfg.ONNX.EdgeThreshold = f.edgeThreshold
	}
	if g.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// applyEvalFlags overlays the evaluation flags the user set explicitly.
func applyEvalFlags(cmd *cobra.Command, cfg *config.Config, f *evalFlags) {
	flags := cmd.Flags()
	if flags.Changed("split") {
		cfg.Split = f.split
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("skip-failed") {
		cfg.SkipFailed = f.skipFailed
	}
	if flags.Changed("permissive") {
		cfg.Permissive = f.permissive
	}
}

// openPredictor constructs the configured predictor. The returned cleanup
// releases its resources and is never nil.
func openPredictor(cfg config.Config) (predictor.Predictor, func(), error) {
	if cfg.ONNX.Library != "" {
		inference.SetLibraryPath(cfg.ONNX.Library)
	}
	p, err := predictor.New(cfg.Predictor, predictor.Config{
		Command:        cfg.Command,
		CommandTimeout: cfg.CommandTimeout,
		Model:          cfg.ONNX.Model,
		Sessions:       cfg.ONNX.Sessions,
		InputSize:      cfg.ONNX.InputSize,
		NodeThreshold:  cfg.ONNX.NodeThreshold,
		EdgeThreshold:  cfg.ONNX.EdgeThreshold,
	})
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {}
	if c, ok := p.(io.Closer); ok {
		cleanup = func() {
			if err := c.Close(); err != nil {
				slog.Warn("closing predictor", "predictor", cfg.Predictor, "error", err)
			}
		}
	}
	return p, cleanup, nil
}

// datasetRef picks the dataset reference from the arguments or the
// configuration.
func datasetRef(args []string, cfg config.Config) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.Dataset != "" {
		return cfg.Dataset, nil
	}
	return "", fmt.Errorf("a dataset is required (argument, config file or %s)", config.EnvDataset)
}

// openDataset resolves and loads ref.
func openDataset(ref string, permissive bool) (*dataset.Dataset, error) {
	opts := []dataset.Option{dataset.WithLogger(slog.Default())}
	if permissive {
		opts = append(opts, dataset.WithPermissive())
	}
	return dataset.NewRegistry().Load(ref, opts...)
}

// selectSamples returns the samples of split (or the default split), cut to
// limit when it is positive.
func selectSamples(ds *dataset.Dataset, split string, limit int) (string, []dataset.Sample, error) {
	if split == "" {
		split = ds.DefaultSplit()
	}
	samples, err := ds.Samples(split)
	if err != nil {
		return "", nil, err
	}
	if limit > 0 && limit < len(samples) {
		samples = samples[:limit]
	}
	return split, samples, nil
}
