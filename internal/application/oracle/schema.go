package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func scalarValue() map[string]any {
	return map[string]any{"type": []string{"string", "number", "null"}}
}

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// AnalyzedDataSchema is the JSON schema every analysis reply must satisfy
func AnalyzedDataSchema() map[string]any {
	parameter := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "minLength": 1},
			"value":    map[string]any{"type": []string{"string", "number"}},
			"unit":     nullableString(),
			"category": nullableString(),
		},
		"required": []string{"name", "value"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"reportDate": nullableString(),
			"parameters": map[string]any{"type": "array", "items": parameter},
			"summary":    map[string]any{"type": "string"},
			"redFlags":   stringArray(),
		},
		"required": []string{"reportDate", "parameters", "summary", "redFlags"},
	}
}

// ComparisonResultSchema is the JSON schema every comparison reply must satisfy
func ComparisonResultSchema() map[string]any {
	changeTypes := []string{
		string(entities.ChangeTypeImprovement),
		string(entities.ChangeTypeDeterioration),
		string(entities.ChangeTypeStable),
		string(entities.ChangeTypeNew),
	}

	change := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       map[string]any{"type": "string", "minLength": 1},
			"prevValue":  scalarValue(),
			"newValue":   scalarValue(),
			"unit":       nullableString(),
			"changeType": map[string]any{"type": "string", "enum": changeTypes},
			"insight":    nullableString(),
		},
		"required": []string{"name", "changeType"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary":          map[string]any{"type": "string"},
			"parameterChanges": map[string]any{"type": "array", "items": change},
			"redFlagsStatus": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"resolved":   stringArray(),
					"persisting": stringArray(),
					"new":        stringArray(),
				},
				"required": []string{"resolved", "persisting", "new"},
			},
			"recommendations": stringArray(),
		},
		"required": []string{"summary", "parameterChanges", "redFlagsStatus", "recommendations"},
	}
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func mustCompileSchema(name string, schemaMap map[string]any) *jsonschema.Schema {
	schema, err := compileSchema(name, schemaMap)
	if err != nil {
		panic(fmt.Sprintf("oracle: %s: %v", name, err))
	}
	return schema
}

var (
	analyzedDataSchema     = mustCompileSchema("analyzed_data.json", AnalyzedDataSchema())
	comparisonResultSchema = mustCompileSchema("comparison_result.json", ComparisonResultSchema())
)
