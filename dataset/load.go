package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	_ "golang.org/x/image/webp" // register WebP for DecodeConfig

	"github.com/jamesainslie/go-diagbench/graph"
)

// imageExts are the accepted image extensions, lower case.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	permissive  bool
	imageBounds bool
	logger      *slog.Logger
}

// WithPermissive defers per-graph validation to Sample.LoadGraph instead of
// failing the load on the first malformed graph.
func WithPermissive() Option {
	return func(c *loadConfig) {
		c.permissive = true
	}
}

// WithImageBounds additionally checks that every ground-truth box lies
// inside its image. Only image headers are read.
func WithImageBounds() Option {
	return func(c *loadConfig) {
		c.imageBounds = true
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Load reads and validates the dataset rooted at root.
func Load(root string, opts ...Option) (*Dataset, error) {
	cfg := loadConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	metaPath := filepath.Join(root, MetadataFile)
	imagesDir := filepath.Join(root, ImagesDir)
	graphsDir := filepath.Join(root, GraphsDir)

	if err := requireFile(metaPath, ErrMissingMetadata); err != nil {
		return nil, err
	}
	if err := requireDir(imagesDir, ErrMissingImages); err != nil {
		return nil, err
	}
	if err := requireDir(graphsDir, ErrMissingGraphs); err != nil {
		return nil, err
	}

	meta, err := readMetadata(metaPath, filepath.Base(filepath.Clean(root)))
	if err != nil {
		return nil, err
	}

	images, err := listImages(imagesDir)
	if err != nil {
		return nil, err
	}
	graphIDs, err := listGraphs(graphsDir)
	if err != nil {
		return nil, err
	}
	if err := checkPairs(root, images, graphIDs); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(images))
	for id := range images {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	splits, assigned, err := resolveSplits(metaPath, meta.Splits, ids)
	if err != nil {
		return nil, err
	}
	meta.Splits = cloneSplits(splits)

	d := &Dataset{
		Root:     root,
		Metadata: meta,
		samples:  make([]Sample, 0, len(ids)),
		byID:     make(map[string]int, len(ids)),
		splits:   splits,
	}
	for i, id := range ids {
		d.samples = append(d.samples, Sample{
			ID:        id,
			ImagePath: images[id],
			GraphPath: filepath.Join(graphsDir, id+".json"),
			Split:     assigned[id],
		})
		d.byID[id] = i
	}

	if !cfg.permissive || cfg.imageBounds {
		for _, s := range d.samples {
			g, err := s.LoadGraph()
			if err != nil {
				if cfg.permissive {
					continue
				}
				return nil, err
			}
			if cfg.imageBounds {
				if err := checkBounds(s, g.Nodes); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg.logger.Debug("dataset loaded",
		"root", root,
		"name", meta.Name,
		"samples", len(d.samples),
		"splits", d.Splits(),
		"permissive", cfg.permissive,
	)
	return d, nil
}

func requireFile(path string, kind error) error {
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Kind: kind, Path: path}
	}
	if info.IsDir() {
		return &Error{Kind: kind, Path: path, Detail: "is a directory"}
	}
	return nil
}

func requireDir(path string, kind error) error {
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Kind: kind, Path: path}
	}
	if !info.IsDir() {
		return &Error{Kind: kind, Path: path, Detail: "not a directory"}
	}
	return nil
}

func readMetadata(path, defaultName string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, &Error{Kind: ErrInvalidMetadata, Path: path, Err: err}
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		detail := "must be a JSON object"
		if !json.Valid(data) {
			detail = "invalid JSON"
		}
		return Metadata{}, &Error{Kind: ErrInvalidMetadata, Path: path, Detail: detail}
	}

	meta := Metadata{Name: defaultName, Extra: make(map[string]json.RawMessage)}

	rawVersion, ok := doc["schema_version"]
	if !ok || isNull(rawVersion) {
		return Metadata{}, &Error{Kind: ErrMissingSchemaVersion, Path: path}
	}
	if err := json.Unmarshal(rawVersion, &meta.SchemaVersion); err != nil {
		return Metadata{}, &Error{Kind: ErrInvalidMetadata, Path: path, Detail: "'schema_version' must be a string"}
	}
	if !supportedSchemas[meta.SchemaVersion] {
		return Metadata{}, &Error{
			Kind:   ErrUnsupportedSchema,
			Path:   path,
			Detail: fmt.Sprintf("%q (supported: %s)", meta.SchemaVersion, supportedList()),
		}
	}

	if raw, ok := doc["name"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &meta.Name); err != nil || strings.TrimSpace(meta.Name) == "" {
			return Metadata{}, &Error{Kind: ErrInvalidMetadata, Path: path, Detail: "'name' must be a non-empty string"}
		}
	}
	if raw, ok := doc["version"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &meta.Version); err != nil {
			return Metadata{}, &Error{Kind: ErrInvalidMetadata, Path: path, Detail: "'version' must be a string"}
		}
	}
	if raw, ok := doc["splits"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &meta.Splits); err != nil {
			return Metadata{}, &Error{
				Kind:   ErrInvalidMetadata,
				Path:   path,
				Detail: "'splits' must be an object of {split_name: [sample ids]}",
			}
		}
		if meta.Splits == nil {
			meta.Splits = map[string][]string{}
		}
	}

	for k, v := range doc {
		switch k {
		case "schema_version", "name", "version", "splits":
		default:
			meta.Extra[k] = v
		}
	}
	return meta, nil
}

func supportedList() string {
	versions := make([]string, 0, len(supportedSchemas))
	for v := range supportedSchemas {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return strings.Join(versions, ", ")
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// listImages maps sample id to image path.
func listImages(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Kind: ErrMissingImages, Path: dir, Err: err}
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !imageExts[strings.ToLower(ext)] {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if id == "" {
			continue
		}
		if prev, dup := out[id]; dup {
			return nil, &Error{
				Kind:   ErrDuplicateImage,
				Path:   dir,
				IDs:    []string{id},
				Detail: fmt.Sprintf("%s and %s", filepath.Base(prev), e.Name()),
			}
		}
		out[id] = filepath.Join(dir, e.Name())
	}
	return out, nil
}

func listGraphs(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Kind: ErrMissingGraphs, Path: dir, Err: err}
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if id := strings.TrimSuffix(e.Name(), ".json"); id != "" {
			out[id] = true
		}
	}
	return out, nil
}

func checkPairs(root string, images map[string]string, graphs map[string]bool) error {
	var missingGraphs, missingImages []string
	for id := range images {
		if !graphs[id] {
			missingGraphs = append(missingGraphs, id+".json")
		}
	}
	for id := range graphs {
		if _, ok := images[id]; !ok {
			missingImages = append(missingImages, id)
		}
	}
	if len(missingGraphs) == 0 && len(missingImages) == 0 {
		return nil
	}
	sort.Strings(missingGraphs)
	sort.Strings(missingImages)

	var parts []string
	if len(missingGraphs) > 0 {
		parts = append(parts, fmt.Sprintf("missing graphs: %s", strings.Join(capped(missingGraphs), ", ")))
	}
	if len(missingImages) > 0 {
		parts = append(parts, fmt.Sprintf("missing images for: %s", strings.Join(capped(missingImages), ", ")))
	}
	return &Error{Kind: ErrPairMismatch, Path: root, Detail: strings.Join(parts, "; ")}
}

// resolveSplits validates declared splits against ids, or builds the single
// default split when none are declared. It returns the split table and the
// split of each id.
func resolveSplits(metaPath string, declared map[string][]string, ids []string) (map[string][]string, map[string]string, error) {
	assigned := make(map[string]string, len(ids))

	if declared == nil {
		all := make([]string, len(ids))
		copy(all, ids)
		for _, id := range all {
			assigned[id] = DefaultSplitName
		}
		return map[string][]string{DefaultSplitName: all}, assigned, nil
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string][]string, len(declared))
	for _, name := range names {
		members := declared[name]
		for _, id := range members {
			if !known[id] {
				return nil, nil, &Error{
					Kind:   ErrUnknownSplitID,
					Path:   metaPath,
					IDs:    []string{id},
					Detail: fmt.Sprintf("split %q", name),
				}
			}
			if prev, dup := assigned[id]; dup {
				return nil, nil, &Error{
					Kind:   ErrDuplicateSplitID,
					Path:   metaPath,
					IDs:    []string{id},
					Detail: fmt.Sprintf("splits %q and %q", prev, name),
				}
			}
			assigned[id] = name
		}
		out[name] = append([]string(nil), members...)
	}

	var unassigned []string
	for _, id := range ids {
		if _, ok := assigned[id]; !ok {
			unassigned = append(unassigned, id)
		}
	}
	if len(unassigned) > 0 {
		return nil, nil, &Error{Kind: ErrUnassigned, Path: metaPath, IDs: capped(unassigned)}
	}
	return out, assigned, nil
}

// cloneSplits deep-copies a split map so Metadata cannot alias the
// dataset's own index.
func cloneSplits(splits map[string][]string) map[string][]string {
	out := make(map[string][]string, len(splits))
	for name, ids := range splits {
		out[name] = slices.Clone(ids)
	}
	return out
}

func checkBounds(s Sample, nodes []graph.Node) error {
	f, err := os.Open(s.ImagePath)
	if err != nil {
		return &Error{Kind: ErrUnreadableImage, Path: s.ImagePath, Err: err}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return &Error{Kind: ErrUnreadableImage, Path: s.ImagePath, Err: err}
	}

	w, h := float64(cfg.Width), float64(cfg.Height)
	for _, n := range nodes {
		b := n.BBox
		if b == nil {
			continue
		}
		if b.X < 0 || b.Y < 0 || b.X+b.W > w || b.Y+b.H > h {
			return &Error{
				Kind: ErrBBoxOutOfBounds,
				Path: s.GraphPath,
				IDs:  []string{s.ID},
				Detail: fmt.Sprintf("node %q bbox [%g %g %g %g] exceeds image %dx%d",
					n.ID, b.X, b.Y, b.W, b.H, cfg.Width, cfg.Height),
			}
		}
	}
	return nil
}
