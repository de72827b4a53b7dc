// Package dataset loads and validates benchmark datasets from disk.
//
// A dataset root contains:
//
//	dataset.json       metadata: schema_version, name, version, optional splits
//	images/<id>.<ext>  one image per sample (.png, .jpg, .jpeg, .webp)
//	graphs/<id>.json   one ground-truth graph per sample
//
// Load checks the layout, the metadata schema version, the image/graph
// pairing and the split assignment, then by default decodes and validates
// every ground-truth graph. Any violation is reported as an *Error whose
// Kind identifies the broken rule. A loaded Dataset is read-only and safe
// for concurrent use.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jamesainslie/go-diagbench/graph"
)

// SchemaVersion is the dataset.json version written by this module.
const SchemaVersion = "1.0"

// supportedSchemas is the allow-list of dataset.json versions Load accepts.
var supportedSchemas = map[string]bool{
	"1.0": true,
}

// DefaultSplitName is the split created when dataset.json declares none.
const DefaultSplitName = "all"

// Layout names under a dataset root.
const (
	MetadataFile = "dataset.json"
	ImagesDir    = "images"
	GraphsDir    = "graphs"
)

// Metadata is the parsed content of dataset.json.
type Metadata struct {
	SchemaVersion string
	Name          string
	Version       string
	Splits        map[string][]string
	Extra         map[string]json.RawMessage // unrecognized top-level keys
}

// Sample is one image and its ground-truth graph.
type Sample struct {
	ID        string
	ImagePath string
	GraphPath string
	Split     string
}

// LoadGraph reads, decodes and validates the sample's ground-truth graph.
func (s Sample) LoadGraph() (*graph.Graph, error) {
	f, err := os.Open(s.GraphPath)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidGraph, Path: s.GraphPath, Err: err}
	}
	defer f.Close()

	g, err := graph.Decode(f, filepath.Base(s.GraphPath))
	if err != nil {
		return nil, &Error{Kind: ErrInvalidGraph, Path: s.GraphPath, Err: err}
	}
	if err := g.ValidateGroundTruth(filepath.Base(s.GraphPath)); err != nil {
		return nil, &Error{Kind: ErrInvalidGraph, Path: s.GraphPath, Err: err}
	}
	return g, nil
}

// Dataset is a validated, immutable collection of samples.
type Dataset struct {
	Root     string
	Metadata Metadata

	samples []Sample // sorted by ID
	byID    map[string]int
	splits  map[string][]string
}

// Name returns the dataset name from metadata.
func (d *Dataset) Name() string {
	return d.Metadata.Name
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// All returns every sample ordered by ID.
func (d *Dataset) All() []Sample {
	out := make([]Sample, len(d.samples))
	copy(out, d.samples)
	return out
}

// Splits returns the split names in sorted order.
func (d *Dataset) Splits() []string {
	names := make([]string, 0, len(d.splits))
	for name := range d.splits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Samples returns the samples of a split in the order the split declares
// them.
func (d *Dataset) Samples(split string) ([]Sample, error) {
	ids, ok := d.splits[split]
	if !ok {
		return nil, &Error{
			Kind:   ErrUnknownSplit,
			Path:   d.Root,
			Detail: fmt.Sprintf("%q (available: %v)", split, d.Splits()),
		}
	}
	out := make([]Sample, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.samples[d.byID[id]])
	}
	return out, nil
}

// Sample looks up a sample by ID.
func (d *Dataset) Sample(id string) (Sample, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Sample{}, false
	}
	return d.samples[i], true
}

// DefaultSplit picks the split to evaluate when the caller names none:
// "test" if present, then "all", then the first split by name.
func (d *Dataset) DefaultSplit() string {
	if _, ok := d.splits["test"]; ok {
		return "test"
	}
	if _, ok := d.splits[DefaultSplitName]; ok {
		return DefaultSplitName
	}
	if names := d.Splits(); len(names) > 0 {
		return names[0]
	}
	return DefaultSplitName
}
