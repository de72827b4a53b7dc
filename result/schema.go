package result

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/benchmark_result_v1.1.json
var schemaJSON string

// SchemaJSON returns the JSON Schema of the current record version.
func SchemaJSON() []byte {
	return []byte(schemaJSON)
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error

	validateOnce sync.Once
	validate     *validator.Validate
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("benchmark_result_v"+SchemaVersion+".json", schemaJSON)
	})
	return compiledSchema, schemaErr
}

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// validateSchema checks the encoded form of r against the embedded schema.
func validateSchema(r *BenchmarkResult) error {
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("compile result schema: %w", err)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return schema.Validate(decoded)
}
