package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/internal/synth"
)

// =============================================================================
// Dataset Command Handlers
// =============================================================================

// runValidate handles the validate command.
func runValidate(cmd *cobra.Command, ref string, permissive, imageBounds bool) error {
	opts := []dataset.Option{dataset.WithLogger(slog.Default())}
	if permissive {
		opts = append(opts, dataset.WithPermissive())
	}
	if imageBounds {
		opts = append(opts, dataset.WithImageBounds())
	}
	ds, err := dataset.NewRegistry().Load(ref, opts...)
	if err != nil {
		return err
	}
	digest, err := ds.Digest()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "OK: %s (%d samples)\n", ds.Name(), ds.Len())
	fmt.Fprintf(out, "root: %s\n", ds.Root)
	fmt.Fprintf(out, "schema_version: %s\n", ds.Metadata.SchemaVersion)
	for _, split := range ds.Splits() {
		samples, err := ds.Samples(split)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "split %s: %d samples\n", split, len(samples))
	}
	fmt.Fprintf(out, "manifest_sha256: %s\n", digest)
	return nil
}

// runSynth handles the synth command.
func runSynth(cmd *cobra.Command, root string, n int, seed uint64, split string, idWidth int) error {
	ids, err := synth.Generate(root, synth.Options{N: n, Seed: seed, Split: split, IDWidth: idWidth})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d samples to %s\n", len(ids), root)
	if len(ids) > 0 {
		fmt.Fprintf(out, "  %s\n", strings.Join(ids, "\n  "))
	}
	return nil
}
