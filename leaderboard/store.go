package leaderboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/jamesainslie/go-diagbench/result"
)

// Store persists benchmark results in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. An empty path opens an
// in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			run_id TEXT PRIMARY KEY,
			dataset TEXT NOT NULL,
			split TEXT NOT NULL,
			predictor TEXT NOT NULL,
			timestamp_utc TEXT NOT NULL,
			num_samples INTEGER NOT NULL,
			exact_match_rate REAL NOT NULL,
			edge_f1 REAL NOT NULL,
			node_f1 REAL NOT NULL,
			direction_accuracy REAL NOT NULL,
			runtime_mean_s REAL,
			record TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create results table: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_results_dataset ON results(dataset, split)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Add validates r and stores it, replacing any record with the same run ID.
func (s *Store) Add(ctx context.Context, r *result.BenchmarkResult) error {
	data, err := result.Marshal(r)
	if err != nil {
		return err
	}
	runID := r.Run[result.RunID]
	if runID == "" {
		runID = result.RunIDFor(r)
	}

	var runtime sql.NullFloat64
	if v, ok := r.Metrics[result.RuntimeMeanS]; ok {
		runtime = sql.NullFloat64{Float64: v, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO results (
			run_id, dataset, split, predictor, timestamp_utc, num_samples,
			exact_match_rate, edge_f1, node_f1, direction_accuracy, runtime_mean_s, record
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		r.Dataset,
		r.Split,
		r.Predictor,
		r.Run[result.RunTimestamp],
		r.NumSamples,
		r.Metrics[result.ExactMatchRate],
		r.Metrics[result.EdgeF1],
		r.Metrics[result.NodeF1],
		r.Metrics[result.DirectionAccuracy],
		runtime,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// Top returns up to limit results for a dataset split, best first: by exact
// match rate, then edge F1, then node F1. Ties go to the newer run, then to
// the predictor name. An empty split matches every split.
func (s *Store) Top(ctx context.Context, dataset, split string, limit int) ([]*result.BenchmarkResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM results
		WHERE dataset = ? AND (? = '' OR split = ?)
		ORDER BY exact_match_rate DESC, edge_f1 DESC, node_f1 DESC, timestamp_utc DESC, predictor ASC
		LIMIT ?
	`, dataset, split, split, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []*result.BenchmarkResult
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var r result.BenchmarkResult
		if err := json.Unmarshal([]byte(record), &r); err != nil {
			return nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return out, nil
}

// Count returns the number of stored results.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
