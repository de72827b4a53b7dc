package predictor

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
	"github.com/jamesainslie/go-diagbench/inference"
)

// Detector model tensor names.
const (
	InputPixels  = "pixel_values"
	OutputBoxes  = "boxes"
	OutputScores = "scores"
	OutputEdges  = "edges"
)

// Defaults for the ONNX predictor.
const (
	DefaultInputSize     = 512
	DefaultNodeThreshold = 0.5
	DefaultEdgeThreshold = 0.5
)

// ErrModelOutput indicates detector outputs with unexpected shapes.
var ErrModelOutput = errors.New("predictor: unexpected model output")

// DetectorIO is the tensor signature the ONNX predictor expects.
var DetectorIO = inference.IO{
	Inputs:  []string{InputPixels},
	Outputs: []string{OutputBoxes, OutputScores, OutputEdges},
}

// ONNXOption configures an ONNX predictor.
type ONNXOption func(*onnxConfig)

type onnxConfig struct {
	inputSize     int
	nodeThreshold float64
	edgeThreshold float64
	workers       int
}

// WithInputSize sets the square model input resolution (default: 512).
func WithInputSize(px int) ONNXOption {
	return func(c *onnxConfig) {
		if px > 0 {
			c.inputSize = px
		}
	}
}

// WithThresholds sets the node score and edge probability cut-offs
// (default: 0.5 each).
func WithThresholds(node, edge float64) ONNXOption {
	return func(c *onnxConfig) {
		c.nodeThreshold = node
		c.edgeThreshold = edge
	}
}

// WithSessions sets how many inference sessions are pooled (default: 1).
func WithSessions(n int) ONNXOption {
	return func(c *onnxConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// ONNX predicts graphs with a detection model that emits node boxes, node
// scores and pairwise edge logits. Boxes are normalized [x, y, w, h] and are
// scaled back to the source image.
type ONNX struct {
	pool *inference.Pool
	cfg  onnxConfig
}

// NewONNX loads the model at modelPath.
func NewONNX(modelPath string, opts ...ONNXOption) (*ONNX, error) {
	cfg := onnxConfig{
		inputSize:     DefaultInputSize,
		nodeThreshold: DefaultNodeThreshold,
		edgeThreshold: DefaultEdgeThreshold,
		workers:       1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	pool, err := inference.NewPool(modelPath, DetectorIO, cfg.workers)
	if err != nil {
		return nil, err
	}
	return &ONNX{pool: pool, cfg: cfg}, nil
}

// Predict implements Predictor.
func (p *ONNX) Predict(ctx context.Context, s dataset.Sample) (*graph.Graph, error) {
	img, err := loadImage(s.ImagePath)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	out, err := p.pool.Run(ctx, pixelTensor(img, p.cfg.inputSize))
	if err != nil {
		return nil, err
	}
	return decodeDetections(out, float64(bounds.Dx()), float64(bounds.Dy()), p.cfg.nodeThreshold, p.cfg.edgeThreshold)
}

// Close releases the inference sessions.
func (p *ONNX) Close() error {
	return p.pool.Close()
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// pixelTensor resizes img to size x size and lays it out as a [1,3,H,W]
// tensor with channels scaled to [0, 1].
func pixelTensor(img image.Image, size int) inference.Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := dst.PixOffset(x, y)
			i := y*size + x
			data[i] = float32(dst.Pix[off]) / 255
			data[plane+i] = float32(dst.Pix[off+1]) / 255
			data[2*plane+i] = float32(dst.Pix[off+2]) / 255
		}
	}
	return inference.Tensor{Shape: []int64{1, 3, int64(size), int64(size)}, Data: data}
}

// decodeDetections turns detector outputs into a graph. Nodes scoring below
// nodeThr are dropped; an edge i->j is kept when sigmoid(logit) reaches
// edgeThr and both ends survived.
func decodeDetections(out []inference.Tensor, imgW, imgH, nodeThr, edgeThr float64) (*graph.Graph, error) {
	if len(out) != 3 {
		return nil, fmt.Errorf("%w: expected 3 outputs, got %d", ErrModelOutput, len(out))
	}
	boxes, scores, edges := out[0], out[1], out[2]
	n := len(scores.Data)
	if len(boxes.Data) != 4*n {
		return nil, fmt.Errorf("%w: %d boxes for %d scores", ErrModelOutput, len(boxes.Data)/4, n)
	}
	if len(edges.Data) != n*n {
		return nil, fmt.Errorf("%w: edge matrix has %d values, want %d", ErrModelOutput, len(edges.Data), n*n)
	}

	g := &graph.Graph{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		if float64(scores.Data[i]) < nodeThr {
			continue
		}
		b := boxes.Data[4*i : 4*i+4]
		box := &graph.BBox{
			X: float64(b[0]) * imgW,
			Y: float64(b[1]) * imgH,
			W: float64(b[2]) * imgW,
			H: float64(b[3]) * imgH,
		}
		if !box.Valid() {
			continue
		}
		ids[i] = fmt.Sprintf("n%d", i)
		g.Nodes = append(g.Nodes, graph.Node{ID: ids[i], BBox: box})
	}

	for i := 0; i < n; i++ {
		if ids[i] == "" {
			continue
		}
		for j := 0; j < n; j++ {
			if i == j || ids[j] == "" {
				continue
			}
			if sigmoid(float64(edges.Data[i*n+j])) >= edgeThr {
				g.Edges = append(g.Edges, graph.Edge{Source: ids[i], Target: ids[j]})
			}
		}
	}
	return g, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
