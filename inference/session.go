// Package inference runs ONNX graph-detection models through onnxruntime.
package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	// ErrPoolClosed is returned by Acquire once the pool has been closed.
	ErrPoolClosed = errors.New("inference: pool is closed")

	// ErrSessionClosed is returned by Run on a closed session.
	ErrSessionClosed = errors.New("inference: session is closed")

	// ErrShape indicates tensor data that does not fill its shape.
	ErrShape = errors.New("inference: tensor data does not match shape")
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
	ortLibPath string
)

// SetLibraryPath points onnxruntime at a specific shared library. It has no
// effect once the first session was created.
func SetLibraryPath(path string) {
	ortLibPath = path
}

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		if ortLibPath != "" {
			ort.SetSharedLibraryPath(ortLibPath)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Validate reports whether Data holds exactly one value per element.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("%w: empty shape", ErrShape)
	}
	n := int64(1)
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d in %v", ErrShape, d, t.Shape)
		}
		n *= d
	}
	if n != int64(len(t.Data)) {
		return fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, t.Shape, n, len(t.Data))
	}
	return nil
}

// IO names the model's input and output tensors in call order.
type IO struct {
	Inputs  []string
	Outputs []string
}

// Session wraps an ONNX Runtime session.
type Session struct {
	session *ort.DynamicAdvancedSession
	io      IO
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string, io IO) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if len(io.Inputs) == 0 || len(io.Outputs) == 0 {
		return nil, fmt.Errorf("model %s: input and output names are required", modelPath)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		io.Inputs,
		io.Outputs,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session, io: io}, nil
}

// Run feeds one tensor per input name and returns one tensor per output
// name, both in IO order.
func (s *Session) Run(ctx context.Context, inputs ...Tensor) ([]Tensor, error) {
	// Check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.session == nil {
		return nil, ErrSessionClosed
	}
	if len(inputs) != len(s.io.Inputs) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(s.io.Inputs), len(inputs))
	}

	values := make([]ort.Value, len(inputs))
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("input %s: %w", s.io.Inputs[i], err)
		}
		t, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
		if err != nil {
			return nil, fmt.Errorf("creating %s tensor: %w", s.io.Inputs[i], err)
		}
		defer func() { _ = t.Destroy() }()
		values[i] = t
	}

	// nil entries are allocated by Run
	outputs := make([]ort.Value, len(s.io.Outputs))
	if err := s.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	out := make([]Tensor, len(outputs))
	for i, o := range outputs {
		if o == nil {
			return nil, fmt.Errorf("no output produced for %s", s.io.Outputs[i])
		}
		t, ok := o.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %s: unexpected tensor type", s.io.Outputs[i])
		}
		data := t.GetData()
		out[i] = Tensor{
			Shape: append([]int64(nil), t.GetShape()...),
			Data:  append([]float32(nil), data...),
		}
	}
	return out, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
