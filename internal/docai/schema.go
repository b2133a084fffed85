package docai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// operationSchema is the subset of the analyze operation payload we rely on.
var operationSchema = map[string]any{
	"type":     "object",
	"required": []string{"status"},
	"properties": map[string]any{
		"status": map[string]any{
			"type": "string",
			"enum": []string{"notStarted", "running", "succeeded", "failed", "canceled", "skipped"},
		},
		"analyzeResult": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"modelId": map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
				"keyValuePairs": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"key"},
						"properties": map[string]any{
							"key":        map[string]any{"$ref": "#/$defs/element"},
							"value":      map[string]any{"$ref": "#/$defs/element"},
							"confidence": map[string]any{"type": "number"},
						},
					},
				},
				"tables": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"rowCount", "columnCount", "cells"},
						"properties": map[string]any{
							"rowCount":    map[string]any{"type": "integer", "minimum": 0},
							"columnCount": map[string]any{"type": "integer", "minimum": 0},
							"cells": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type":     "object",
									"required": []string{"rowIndex", "columnIndex"},
									"properties": map[string]any{
										"rowIndex":    map[string]any{"type": "integer", "minimum": 0},
										"columnIndex": map[string]any{"type": "integer", "minimum": 0},
										"content":     map[string]any{"type": "string"},
									},
								},
							},
						},
					},
				},
				"documents": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"fields": map[string]any{
								"type":                 "object",
								"additionalProperties": map[string]any{"type": "object"},
							},
						},
					},
				},
			},
		},
	},
	"$defs": map[string]any{
		"element": map[string]any{
			"type": []string{"object", "null"},
			"properties": map[string]any{
				"content": map[string]any{"type": "string"},
			},
		},
	},
}

// compileSchema compiles schemaMap once for repeated validation.
func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("operation.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("operation.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validate checks data against schema.
func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
