package graph

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of the canonical graph document, the
// contract predictors are expected to produce.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	s := r.Reflect(&wireGraph{})
	s.Title = "diagbench graph"
	s.Description = "Nodes with bounding boxes and directed edges between node ids. " +
		"Legacy documents using from/to instead of source/target are accepted on read."
	return s
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
