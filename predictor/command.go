package predictor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
)

// ErrCommandFailed indicates the external predictor exited unsuccessfully.
var ErrCommandFailed = errors.New("predictor: command failed")

// maxStderr caps the stderr quoted in command errors.
const maxStderr = 512

// Command runs an external program once per sample. The image path is
// appended to Args; the program prints the predicted graph as JSON on
// stdout.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration // zero means no per-sample limit
}

// NewCommand builds a Command from an argv slice.
func NewCommand(argv []string, timeout time.Duration) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("%w: no program given", ErrCommandFailed)
	}
	return &Command{Path: argv[0], Args: argv[1:], Timeout: timeout}, nil
}

// Predict implements Predictor.
func (c *Command) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.Args...), s.ImagePath)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of the program may hold stdout open after it is killed.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(c.Path), ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "..."
		}
		if msg != "" {
			return nil, fmt.Errorf("%w: %s: %w: %s", ErrCommandFailed, filepath.Base(c.Path), err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCommandFailed, filepath.Base(c.Path), err)
	}

	return graph.Decode(&stdout, fmt.Sprintf("%s output for %s", filepath.Base(c.Path), s.ID))
}
