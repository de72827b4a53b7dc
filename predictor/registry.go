package predictor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnknown indicates a predictor name that is not registered.
var ErrUnknown = errors.New("predictor: unknown predictor")

// Config carries the settings the built-in constructors draw from. Each
// predictor reads only its own fields.
type Config struct {
	Command        []string      // command: program and leading arguments
	CommandTimeout time.Duration // command: per-sample limit
	Model          string        // onnx: model path
	Sessions       int           // onnx: pooled sessions
	InputSize      int           // onnx: square input resolution
	NodeThreshold  float64       // onnx
	EdgeThreshold  float64       // onnx
}

// Entry describes a registered predictor.
type Entry struct {
	Name        string
	Description string
	New         func(cfg Config) (Predictor, error)
}

var registry = map[string]Entry{
	"oracle": {
		Name:        "oracle",
		Description: "ground truth with relabelled ids; scores 1.0 on valid datasets",
		New:         func(Config) (Predictor, error) { return Oracle{}, nil },
	},
	"heuristic": {
		Name:        "heuristic",
		Description: "ground-truth nodes chained top to bottom by vertical center",
		New:         func(Config) (Predictor, error) { return Heuristic{}, nil },
	},
	"command": {
		Name:        "command",
		Description: "external program given the image path, printing graph JSON on stdout",
		New: func(cfg Config) (Predictor, error) {
			return NewCommand(cfg.Command, cfg.CommandTimeout)
		},
	},
	"onnx": {
		Name:        "onnx",
		Description: "ONNX graph-detection model (pixel_values -> boxes, scores, edges)",
		New: func(cfg Config) (Predictor, error) {
			if cfg.Model == "" {
				return nil, errors.New("predictor: onnx needs a model path")
			}
			opts := []ONNXOption{WithInputSize(cfg.InputSize), WithSessions(cfg.Sessions)}
			if cfg.NodeThreshold > 0 || cfg.EdgeThreshold > 0 {
				node, edge := cfg.NodeThreshold, cfg.EdgeThreshold
				if node == 0 {
					node = DefaultNodeThreshold
				}
				if edge == 0 {
					edge = DefaultEdgeThreshold
				}
				opts = append(opts, WithThresholds(node, edge))
			}
			return NewONNX(cfg.Model, opts...)
		},
	},
}

// Names returns the registered predictor names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns every registered predictor, sorted by name.
func Entries() []Entry {
	names := Names()
	out := make([]Entry, len(names))
	for i, name := range names {
		out[i] = registry[name]
	}
	return out
}

// Lookup finds a predictor by name.
func Lookup(name string) (Entry, error) {
	e, ok := registry[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w %q (available: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return e, nil
}

// New constructs the named predictor. Callers should close the result when
// it implements io.Closer.
func New(name string, cfg Config) (Predictor, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return e.New(cfg)
}
