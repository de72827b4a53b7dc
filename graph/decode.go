package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// wireNode, wireEdge and wireGraph are the canonical JSON shape.
type wireNode struct {
	ID   string    `json:"id" jsonschema:"required,minLength=1" jsonschema_description:"Node identifier, unique within the graph"`
	BBox []float64 `json:"bbox,omitempty" jsonschema:"minItems=4,maxItems=4" jsonschema_description:"Bounding box [x, y, w, h] in image pixels; w and h must be positive"`
}

type wireEdge struct {
	Source string `json:"source" jsonschema:"required,minLength=1"`
	Target string `json:"target" jsonschema:"required,minLength=1"`
}

type wireGraph struct {
	Nodes []wireNode `json:"nodes" jsonschema:"required"`
	Edges []wireEdge `json:"edges" jsonschema:"required"`
}

// Decode reads a graph document from r. Source labels errors.
func Decode(r io.Reader, source string) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: read graph: %w", source, err)
	}
	return Parse(data, source)
}

// Parse decodes a graph document, checking its structure as it goes.
//
// Nodes need a non-empty string "id" unique within the document and an
// optional "bbox" of four numbers with positive width and height. Edges need
// non-empty string endpoints under "source"/"target"; the legacy "from"/"to"
// spelling is accepted and normalized. Referential integrity is not checked
// here, see ValidateGroundTruth.
func Parse(data []byte, source string) (*Graph, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		if json.Valid(data) {
			return nil, docError(source, "graph must be a JSON object")
		}
		return nil, docError(source, fmt.Sprintf("invalid JSON: %v", err))
	}
	if doc == nil {
		return nil, docError(source, "graph must be a JSON object")
	}

	nodesRaw, nodesOK := asList(doc["nodes"])
	edgesRaw, edgesOK := asList(doc["edges"])
	switch {
	case !nodesOK && !edgesOK:
		return nil, docError(source, "'nodes' and 'edges' must be lists")
	case !nodesOK:
		return nil, &Error{Source: source, Field: "nodes", Index: -1, Reason: "'nodes' must be a list"}
	case !edgesOK:
		return nil, &Error{Source: source, Field: "edges", Index: -1, Reason: "'edges' must be a list"}
	}

	g := &Graph{
		Nodes: make([]Node, 0, len(nodesRaw)),
		Edges: make([]Edge, 0, len(edgesRaw)),
	}

	seen := make(map[string]struct{}, len(nodesRaw))
	for i, raw := range nodesRaw {
		n, err := parseNode(raw, source, i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.ID]; dup {
			return nil, nodeError(source, i, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}

	for i, raw := range edgesRaw {
		e, err := parseEdge(raw, source, i)
		if err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, e)
	}

	return g, nil
}

func parseNode(raw json.RawMessage, source string, i int) (Node, error) {
	obj, ok := asObject(raw)
	if !ok {
		return Node{}, nodeError(source, i, "node must be an object")
	}

	id, ok := stringField(obj, "id")
	if !ok {
		return Node{}, nodeError(source, i, "missing valid 'id' (non-empty string)")
	}
	n := Node{ID: id}

	rawBox, present := obj["bbox"]
	if !present || isNull(rawBox) {
		return n, nil
	}
	var vals []float64
	if err := json.Unmarshal(rawBox, &vals); err != nil || len(vals) != 4 {
		return Node{}, nodeError(source, i, fmt.Sprintf("invalid bbox for node %q (expected [x, y, w, h])", id))
	}
	b := BBox{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	if !b.Valid() {
		return Node{}, nodeError(source, i, fmt.Sprintf("invalid bbox size for node %q (w and h must be > 0)", id))
	}
	n.BBox = &b
	return n, nil
}

func parseEdge(raw json.RawMessage, source string, i int) (Edge, error) {
	obj, ok := asObject(raw)
	if !ok {
		return Edge{}, edgeError(source, i, "edge must be an object")
	}

	src, reason := endpoint(obj, "source", "from")
	if reason != "" {
		return Edge{}, edgeError(source, i, reason)
	}
	dst, reason := endpoint(obj, "target", "to")
	if reason != "" {
		return Edge{}, edgeError(source, i, reason)
	}
	return Edge{Source: src, Target: dst}, nil
}

// endpoint resolves one edge endpoint from its canonical or legacy key and
// returns a non-empty reason when neither yields a valid value.
func endpoint(obj map[string]json.RawMessage, canonical, legacy string) (string, string) {
	v, ok := stringField(obj, canonical)
	lv, lok := stringField(obj, legacy)
	switch {
	case ok && lok && v != lv:
		return "", fmt.Sprintf("conflicting '%s' and '%s' values", canonical, legacy)
	case ok:
		return v, ""
	case lok:
		return lv, ""
	}
	return "", fmt.Sprintf("missing valid '%s' (or legacy '%s')", canonical, legacy)
}

func asList(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// MarshalJSON encodes the graph in canonical form with "source"/"target" keys.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := wireGraph{
		Nodes: make([]wireNode, 0, len(g.Nodes)),
		Edges: make([]wireEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		wn := wireNode{ID: n.ID}
		if n.BBox != nil {
			wn.BBox = []float64{n.BBox.X, n.BBox.Y, n.BBox.W, n.BBox.H}
		}
		w.Nodes = append(w.Nodes, wn)
	}
	for _, e := range g.Edges {
		w.Edges = append(w.Edges, wireEdge{Source: e.Source, Target: e.Target})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes with the same rules as Parse.
func (g *Graph) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data, "")
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
