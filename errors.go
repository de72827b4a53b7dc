package diagbench

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrNilPredictor indicates New was called without a predictor.
	ErrNilPredictor = errors.New("diagbench: predictor is nil")

	// ErrNoGraph indicates a predictor returned neither a graph nor an error.
	ErrNoGraph = errors.New("diagbench: predictor returned no graph")
)

// SampleError reports the sample that stopped a run.
type SampleError struct {
	SampleID string
	Err      error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %q: %v", e.SampleID, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// PredictionError reports a predictor failure or malformed predictor output.
// The sample is not scored.
type PredictionError struct {
	SampleID string
	Err      error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction: %v", e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
