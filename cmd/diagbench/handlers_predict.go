package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-diagbench/predictor"
)

// =============================================================================
// Predictor Command Handlers
// =============================================================================

// runPredictors handles the predictors command.
func runPredictors(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range predictor.Entries() {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
	}
	return w.Flush()
}

// runPredict handles the predict command.
func runPredict(cmd *cobra.Command, g *globalFlags, f *predictorFlags, ref, sampleID string) error {
	cfg, err := resolveConfig(cmd, g, f)
	if err != nil {
		return err
	}
	ds, err := openDataset(ref, true)
	if err != nil {
		return err
	}
	s, ok := ds.Sample(sampleID)
	if !ok {
		return fmt.Errorf("sample %q not found in %s", sampleID, ds.Name())
	}

	p, cleanup, err := openPredictor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	pred, err := p.Predict(cmd.Context(), s)
	if err != nil {
		return fmt.Errorf("predict %s: %w", sampleID, err)
	}
	data, err := json.MarshalIndent(pred, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
