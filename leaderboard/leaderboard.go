// Package leaderboard tabulates stored benchmark results as CSV or
// Markdown and keeps a SQLite history of runs.
package leaderboard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jamesainslie/go-diagbench/result"
)

// Columns is the fixed leaderboard column order.
var Columns = []string{
	"timestamp_utc",
	"dataset",
	"split",
	"predictor",
	"schema_version",
	"num_samples",
	"exact_match_rate",
	"edge_f1",
	"node_f1",
	"direction_accuracy",
	"runtime_mean_s",
	"diagbench_version",
	"git_sha",
	"platform",
	"go_version",
}

// ErrNoValidResults is returned by BuildRows when every input was rejected.
var ErrNoValidResults = errors.New("leaderboard: no valid benchmark result files")

// maxReported caps the rejected files quoted in ErrNoValidResults.
const maxReported = 20

// Row is one leaderboard line keyed by column name. Missing values are "".
type Row map[string]string

// Cells returns the row values in column order.
func (r Row) Cells() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = r[c]
	}
	return out
}

// Rejected records a file BuildRows could not use.
type Rejected struct {
	Path string
	Err  error
}

// FromResult flattens a record into a row.
func FromResult(r *result.BenchmarkResult) Row {
	row := Row{
		"timestamp_utc":     r.Run[result.RunTimestamp],
		"dataset":           r.Dataset,
		"split":             r.Split,
		"predictor":         r.Predictor,
		"schema_version":    r.SchemaVersion,
		"num_samples":       strconv.Itoa(r.NumSamples),
		"diagbench_version": r.Run[result.RunToolVersion],
		"git_sha":           r.Run[result.RunGitSHA],
		"platform":          r.Run[result.RunPlatform],
		"go_version":        r.Run[result.RunGoVersion],
	}
	for _, k := range []string{result.ExactMatchRate, result.EdgeF1, result.NodeF1, result.DirectionAccuracy, result.RuntimeMeanS} {
		if v, ok := r.Metrics[k]; ok {
			row[k] = formatFloat(v)
		}
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// BuildRows reads every path as a benchmark result. Unreadable or invalid
// files are returned as rejected; if files were given and none was valid,
// BuildRows fails.
func BuildRows(paths []string) ([]Row, []Rejected, error) {
	var rows []Row
	var rejected []Rejected
	for _, p := range paths {
		r, err := result.Read(p)
		if err != nil {
			rejected = append(rejected, Rejected{Path: p, Err: err})
			continue
		}
		rows = append(rows, FromResult(r))
	}
	if len(rows) == 0 && len(rejected) > 0 {
		lines := make([]string, 0, maxReported)
		for i, rj := range rejected {
			if i == maxReported {
				break
			}
			lines = append(lines, "  - "+rj.Err.Error())
		}
		return nil, rejected, fmt.Errorf("%w:\n%s", ErrNoValidResults, strings.Join(lines, "\n"))
	}
	return rows, rejected, nil
}

// FindResults lists the .json files under root in lexical order.
func FindResults(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// WriteCSV writes a header line and one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Cells()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes rows as a Markdown table.
func WriteMarkdown(w io.Writer, rows []Row) error {
	var b strings.Builder
	b.WriteString("| " + strings.Join(Columns, " | ") + " |\n")
	sep := make([]string, len(Columns))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, r := range rows {
		cells := r.Cells()
		for i, c := range cells {
			cells[i] = mdCell(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

var mdEscaper = strings.NewReplacer("\r\n", " ", "\n", " ", "|", `\|`)

func mdCell(s string) string {
	return mdEscaper.Replace(s)
}
