// Package synth generates small deterministic flowchart datasets: chain,
// branch and diamond graphs drawn as boxes and arrows, with ground truth
// and dataset.json written in the standard layout.
package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"golang.org/x/image/vector"

	"github.com/jamesainslie/go-diagbench/dataset"
	"github.com/jamesainslie/go-diagbench/graph"
)

// ErrInvalidOptions indicates unusable generator options.
var ErrInvalidOptions = errors.New("synth: invalid options")

// DatasetName is the name written to dataset.json.
const DatasetName = "synthetic-basic"

const (
	strokeWidth = 6
	jitter      = 10
)

// Options controls generation. The output is a pure function of the
// options.
type Options struct {
	N       int    // number of samples, > 0
	Seed    uint64 // jitter seed
	Split   string // split that lists every sample (default "test")
	IDWidth int    // zero-padded index width (default 4)
}

type pattern struct {
	name  string
	w, h  int
	nodes []node
	edges []graph.Edge
}

type node struct {
	id         string
	x, y, w, h int
}

func (n node) center() (float32, float32) {
	return float32(n.x) + float32(n.w)/2, float32(n.y) + float32(n.h)/2
}

func edges(pairs ...string) []graph.Edge {
	out := make([]graph.Edge, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, graph.Edge{Source: pairs[i], Target: pairs[i+1]})
	}
	return out
}

var patterns = []pattern{
	{
		name: "chain", w: 400, h: 300,
		nodes: []node{{"A", 50, 100, 80, 80}, {"B", 240, 100, 80, 80}},
		edges: edges("A", "B"),
	},
	{
		name: "branch", w: 500, h: 350,
		nodes: []node{{"A", 60, 120, 80, 80}, {"B", 260, 60, 80, 80}, {"C", 260, 200, 80, 80}},
		edges: edges("A", "B", "A", "C"),
	},
	{
		name: "diamond", w: 600, h: 400,
		nodes: []node{{"A", 60, 160, 80, 80}, {"B", 260, 80, 80, 80}, {"C", 260, 240, 80, 80}, {"D", 460, 160, 80, 80}},
		edges: edges("A", "B", "A", "C", "B", "D", "C", "D"),
	},
}

type generatorInfo struct {
	Type    string `json:"type"`
	N       int    `json:"n"`
	Seed    uint64 `json:"seed"`
	IDWidth int    `json:"id_width"`
}

type metadata struct {
	SchemaVersion string              `json:"schema_version"`
	Name          string              `json:"name"`
	Version       string              `json:"version"`
	Splits        map[string][]string `json:"splits"`
	Generator     generatorInfo       `json:"generator"`
}

// Generate writes a dataset under root and returns the sample IDs in order.
// Samples cycle through the patterns; each sample shifts all of its nodes by
// the same seeded offset of up to 10 pixels per axis.
func Generate(root string, opts Options) ([]string, error) {
	if opts.N <= 0 {
		return nil, fmt.Errorf("%w: n must be > 0 (got %d)", ErrInvalidOptions, opts.N)
	}
	if opts.Split == "" {
		opts.Split = "test"
	}
	if opts.IDWidth <= 0 {
		opts.IDWidth = 4
	}

	imagesDir := filepath.Join(root, dataset.ImagesDir)
	graphsDir := filepath.Join(root, dataset.GraphsDir)
	for _, dir := range []string{imagesDir, graphsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, 0))
	ids := make([]string, 0, opts.N)
	for i := 1; i <= opts.N; i++ {
		p := patterns[(i-1)%len(patterns)]
		dx, dy := rng.IntN(2*jitter+1)-jitter, rng.IntN(2*jitter+1)-jitter

		nodes := make([]node, len(p.nodes))
		for j, n := range p.nodes {
			n.x += dx
			n.y += dy
			nodes[j] = n
		}

		id := fmt.Sprintf("%0*d_%s", opts.IDWidth, i, p.name)
		if err := writeImage(filepath.Join(imagesDir, id+".png"), p, nodes); err != nil {
			return nil, err
		}
		if err := writeGraph(filepath.Join(graphsDir, id+".json"), nodes, p.edges); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	meta := metadata{
		SchemaVersion: dataset.SchemaVersion,
		Name:          DatasetName,
		Version:       "0.1",
		Splits:        map[string][]string{opts.Split: ids},
		Generator: generatorInfo{
			Type:    "synthetic_basic",
			N:       opts.N,
			Seed:    opts.Seed,
			IDWidth: opts.IDWidth,
		},
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(root, dataset.MetadataFile), append(data, '\n'), 0o644); err != nil {
		return nil, err
	}
	return ids, nil
}

func writeGraph(path string, nodes []node, edges []graph.Edge) error {
	g := &graph.Graph{Nodes: make([]graph.Node, 0, len(nodes)), Edges: edges}
	for _, n := range nodes {
		g.Nodes = append(g.Nodes, graph.Node{
			ID:   n.id,
			BBox: &graph.BBox{X: float64(n.x), Y: float64(n.y), W: float64(n.w), H: float64(n.h)},
		})
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeImage(path string, p pattern, nodes []node) error {
	img := image.NewRGBA(image.Rect(0, 0, p.w, p.h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	byID := make(map[string]node, len(nodes))
	for _, n := range nodes {
		byID[n.id] = n
		drawBox(img, n)
	}
	for _, e := range p.edges {
		drawArrow(img, byID[e.Source], byID[e.Target])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

type point struct{ x, y float32 }

func fill(img *image.RGBA, c color.Color, pts ...point) {
	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(pts[0].x, pts[0].y)
	for _, p := range pts[1:] {
		z.LineTo(p.x, p.y)
	}
	z.ClosePath()
	z.Draw(img, b, image.NewUniform(c), image.Point{})
}

func rect(x0, y0, x1, y1 float32) []point {
	return []point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// drawBox draws a white box with a black outline centered on the node
// border.
func drawBox(img *image.RGBA, n node) {
	x0, y0 := float32(n.x), float32(n.y)
	x1, y1 := x0+float32(n.w), y0+float32(n.h)
	half := float32(strokeWidth) / 2
	fill(img, color.Black, rect(x0-half, y0-half, x1+half, y1+half)...)
	fill(img, color.White, rect(x0+half, y0+half, x1-half, y1-half)...)
}

// drawArrow draws a line between the node centers, trimmed by a quarter of
// the source box, ending in a triangular head.
func drawArrow(img *image.RGBA, a, b node) {
	ax, ay := a.center()
	bx, by := b.center()
	dx, dy := bx-ax, by-ay
	dist := float32(math.Hypot(float64(dx), float64(dy)))
	if dist == 0 {
		dist = 1
	}
	ux, uy := dx/dist, dy/dist
	trim := float32(max(a.w, a.h)) * 0.25

	sx, sy := ax+ux*trim, ay+uy*trim
	ex, ey := bx-ux*trim, by-uy*trim
	length := float32(math.Hypot(float64(ex-sx), float64(ey-sy)))
	head := length * 0.25

	// Perpendicular offsets for the shaft and the head.
	px, py := -uy, ux
	w := float32(strokeWidth) / 2
	hx, hy := ex-ux*head, ey-uy*head
	fill(img, color.Black,
		point{sx + px*w, sy + py*w},
		point{hx + px*w, hy + py*w},
		point{hx - px*w, hy - py*w},
		point{sx - px*w, sy - py*w},
	)
	fill(img, color.Black,
		point{ex, ey},
		point{hx + px*head*0.5, hy + py*head*0.5},
		point{hx - px*head*0.5, hy - py*head*0.5},
	)
}
