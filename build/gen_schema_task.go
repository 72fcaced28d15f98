package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goyek/goyek/v2"
	"github.com/invopop/jsonschema"

	"github.com/spachava753/oracle/internal/config"
)

// GenSchema generates the JSON schema for oracle configuration files
var GenSchema = goyek.Define(goyek.Task{
	Name:  "gen-schema",
	Usage: "Generate JSON schema for oracle configuration files. Use [-schema-out=FILE]",
	Action: func(a *goyek.A) {
		reflector := &jsonschema.Reflector{
			AllowAdditionalProperties: false,
			FieldNameTag:              "yaml",
		}

		schema := reflector.Reflect(&config.RawConfig{})
		schema.Title = "Oracle Configuration Schema"
		schema.Description = "JSON Schema for oracle.yaml: models, providers, defaults, browser and telemetry settings"
		schema.Version = "https://json-schema.org/draft/2020-12/schema"

		schemaJSON, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			a.Fatalf("Failed to marshal schema: %v", err)
		}

		schemaPath := *schemaOut
		if schemaPath == "" {
			root, err := moduleRoot()
			if err != nil {
				a.Fatal(err)
			}
			schemaPath = filepath.Join(root, "schema", "oracle-config-schema.json")
		}
		if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
			a.Fatalf("Failed to create schema directory: %v", err)
		}
		if err := os.WriteFile(schemaPath, append(schemaJSON, '\n'), 0644); err != nil {
			a.Fatalf("Failed to write schema file: %v", err)
		}

		fmt.Printf("Generated schema: %s\n", schemaPath)
	},
})

// moduleRoot prefers GOMOD, then walks up from the working directory.
func moduleRoot() (string, error) {
	if gomod := os.Getenv("GOMOD"); gomod != "" && gomod != os.DevNull {
		return filepath.Dir(gomod), nil
	}
	current, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no go.mod found above the working directory")
		}
		current = parent
	}
}
