// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

//go:generate go run ../../cmd/gen-schema ../../schemas/config.schema.json

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the configuration file schema.
const SchemaID = "https://holomush.dev/schemas/hotswap-config.schema.json"

var (
	compiledOnce   sync.Once
	compiledSchema *jschema.Schema
	compileErr     error
)

// GenerateSchema generates a JSON Schema from the Config struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "hotswap configuration"
	schema.Description = "Schema for hotswap config.yaml files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateSchema validates YAML data against the configuration schema.
// An empty document is valid.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		return nil
	}

	sch, err := compiled()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiled() (*jschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compileErr = compile()
	})
	return compiledSchema, compileErr
}

func compile() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("config.schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return sch, nil
}

// toJSONTypes normalizes YAML-decoded values through a JSON round trip so
// the validator only sees JSON types. Durations, timestamps and the like
// become strings.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = toJSONTypes(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = toJSONTypes(v)
		}
		return out
	case string, bool, int, int64, float64, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}
