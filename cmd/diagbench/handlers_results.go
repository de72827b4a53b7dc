package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/leaderboard"
	"github.com/jamesainslie/go-diagbench/result"
)

// =============================================================================
// Result Command Handlers
// =============================================================================

// runInfo handles the info command.
func runInfo(cmd *cobra.Command, path string) error {
	r, err := result.Read(path)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), result.Info(r))
	return nil
}

// runLeaderboard handles the leaderboard command.
func runLeaderboard(cmd *cobra.Command, f *leaderboardFlags, args []string) error {
	if f.format != "csv" && f.format != "md" {
		return fmt.Errorf("unknown format %q (want csv or md)", f.format)
	}

	var rows []leaderboard.Row
	var err error
	if f.store != "" {
		rows, err = storeRows(cmd, f)
	} else {
		rows, err = fileRows(cmd, args)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if f.format == "md" {
		err = leaderboard.WriteMarkdown(&buf, rows)
	} else {
		err = leaderboard.WriteCSV(&buf, rows)
	}
	if err != nil {
		return err
	}

	if f.out == "" {
		_, err = io.Copy(cmd.OutOrStdout(), &buf)
		return err
	}
	if err := os.WriteFile(f.out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows), f.out)
	return nil
}

func fileRows(cmd *cobra.Command, args []string) ([]leaderboard.Row, error) {
	if len(args) == 0 {
		return nil, errors.New("no result paths given")
	}
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := leaderboard.FindResults(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}

	rows, rejected, err := leaderboard.BuildRows(paths)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping %s: %v\n", r.Path, r.Err)
	}
	return rows, nil
}

func storeRows(cmd *cobra.Command, f *leaderboardFlags) ([]leaderboard.Row, error) {
	if f.dataset == "" {
		return nil, errors.New("--dataset is required with --store")
	}
	store, err := leaderboard.Open(f.store)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Top(cmd.Context(), f.dataset, f.split, f.top)
	if err != nil {
		return nil, err
	}
	rows := make([]leaderboard.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, leaderboard.FromResult(r))
	}
	return rows, nil
}

// runSchema handles the schema command.
func runSchema(cmd *cobra.Command, kind string) error {
	var data []byte
	switch kind {
	case "result":
		data = result.SchemaJSON()
	case "graph":
		var err error
		if data, err = graph.SchemaJSON(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown schema %q (want result or graph)", kind)
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(bytes.TrimRight(data, "\n")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out)
	return err
}
