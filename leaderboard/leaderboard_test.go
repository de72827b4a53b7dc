package leaderboard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/go-diagbench/metrics"
	"github.com/jamesainslie/go-diagbench/result"
)

func makeResult(predictor string, exact float64, ts time.Time) *result.BenchmarkResult {
	agg := metrics.Aggregate{
		Node:              metrics.PRF1{Precision: exact, Recall: exact, F1: exact},
		Edge:              metrics.PRF1{Precision: exact, Recall: exact, F1: exact},
		DirectionAccuracy: exact,
		ExactMatchRate:    exact,
		Count:             1,
	}
	prov := result.Provenance{
		Timestamp:   ts,
		ToolVersion: "v0.1.0",
		GitSHA:      "abc1234",
		GoVersion:   "go1.24.12",
		Platform:    "test",
	}
	return result.New("example:minimal", "test", predictor, agg, prov)
}

func writeResult(t *testing.T, path string, r *result.BenchmarkResult) {
	t.Helper()
	if err := result.Write(path, r); err != nil {
		t.Fatalf("result.Write() failed: %v", err)
	}
}

var ts = time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

func TestBuildRowsAndCSV(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	writeResult(t, a, makeResult("oracle", 1.0, ts))
	writeResult(t, b, makeResult("heuristic", 0.5, ts))

	rows, rejected, err := BuildRows([]string{a, b})
	if err != nil {
		t.Fatalf("BuildRows() failed: %v", err)
	}
	if len(rows) != 2 || len(rejected) != 0 {
		t.Fatalf("expected 2 rows and no rejects, got %d/%d", len(rows), len(rejected))
	}
	if rows[1]["predictor"] != "heuristic" || rows[1]["exact_match_rate"] != "0.5" {
		t.Errorf("unexpected row: %v", rows[1])
	}
	if rows[0]["runtime_mean_s"] != "" {
		t.Errorf("expected empty runtime, got %q", rows[0]["runtime_mean_s"])
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != strings.Join(Columns, ",") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if len(lines) != 3 {
		t.Errorf("expected header + 2 rows, got %d lines", len(lines))
	}
}

func TestBuildRows_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	writeResult(t, good, makeResult("oracle", 1, ts))
	if err := os.WriteFile(bad, []byte(`{"hello":"world"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, rejected, err := BuildRows([]string{good, bad})
	if err != nil {
		t.Fatalf("BuildRows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
	if len(rejected) != 1 || rejected[0].Path != bad {
		t.Errorf("expected bad.json rejected, got %+v", rejected)
	}
}

func TestBuildRows_NoneValid(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := BuildRows([]string{bad}); !errors.Is(err, ErrNoValidResults) {
		t.Errorf("expected ErrNoValidResults, got: %v", err)
	}

	rows, _, err := BuildRows(nil)
	if err != nil || len(rows) != 0 {
		t.Errorf("expected empty result for no input, got %v, %v", rows, err)
	}
}

func TestFindResults(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "sub/c.JSON", "notes.txt"} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := FindResults(dir)
	if err != nil {
		t.Fatalf("FindResults() failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json"), filepath.Join(dir, "sub", "c.JSON")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWriteMarkdown(t *testing.T) {
	rows := []Row{{"predictor": "a|b", "dataset": "multi\nline"}}
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, rows); err != nil {
		t.Fatalf("WriteMarkdown() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "| --- |") {
		t.Errorf("unexpected separator: %s", lines[1])
	}
	if !strings.Contains(lines[2], `a\|b`) || !strings.Contains(lines[2], "multi line") {
		t.Errorf("cells not escaped: %s", lines[2])
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	inputs := []*result.BenchmarkResult{
		makeResult("heuristic", 0.5, ts),
		makeResult("oracle", 1.0, ts),
		makeResult("random", 0.1, ts),
	}
	for _, r := range inputs {
		if err := s.Add(ctx, r); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	// Same run ID replaces the earlier record.
	if err := s.Add(ctx, makeResult("oracle", 1.0, ts)); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 stored results, got %d", n)
	}

	top, err := s.Top(ctx, "example:minimal", "test", 2)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(top) != 2 || top[0].Predictor != "oracle" || top[1].Predictor != "heuristic" {
		t.Errorf("unexpected ranking: %+v", top)
	}

	all, err := s.Top(ctx, "example:minimal", "", 0)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 results without limit, got %d", len(all))
	}

	none, err := s.Top(ctx, "other", "", 10)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no results for unknown dataset, got %d", len(none))
	}
}

func TestStore_DistinctRunsSameSecond(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	a := makeResult("command", 0.2, ts)
	b := makeResult("command", 0.9, ts)
	if a.Run[result.RunID] == b.Run[result.RunID] {
		t.Fatalf("expected distinct run ids, both are %s", a.Run[result.RunID])
	}
	for _, r := range []*result.BenchmarkResult{a, b} {
		if err := s.Add(ctx, r); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 stored results, got %d", n)
	}
	top, err := s.Top(ctx, "example:minimal", "test", 0)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(top) != 2 || top[0].Metrics[result.ExactMatchRate] != 0.9 {
		t.Errorf("unexpected ranking: %+v", top)
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	r := makeResult("oracle", 1, ts)
	r.SchemaVersion = "0.9"
	if err := s.Add(context.Background(), r); !errors.Is(err, result.ErrUnsupportedSchema) {
		t.Errorf("expected ErrUnsupportedSchema, got: %v", err)
	}
}
