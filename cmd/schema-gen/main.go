// Schema Generator
//
// Generates JSON Schema files for the import API wire types so that other
// clients of the import service can validate against them.
//
// Usage:
//
//	go run ./cmd/schema-gen [output-dir]
//
// Output (default directory ./schemas):
//
//	imports.json
//	auth.json
//	sandbox.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/kosarica/import-wizard/internal/auth"
	"github.com/kosarica/import-wizard/internal/handlers"
	"github.com/kosarica/import-wizard/internal/sandbox"
	"github.com/kosarica/import-wizard/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

var groups = []SchemaGroup{
	{
		Name: "imports",
		Types: []any{
			// Request types
			types.PreviewRequest{},
			types.ConfirmRequest{},
			types.WireDiscountRule{},
			// Response types
			types.ParseResult{},
			types.RowIssue{},
			types.ImportPreview{},
			types.ImportPreviewItem{},
			types.ConfirmResult{},
		},
		Output: "imports.json",
	},
	{
		Name: "auth",
		Types: []any{
			handlers.LoginRequest{},
			handlers.RefreshRequest{},
			auth.Tokens{},
		},
		Output: "auth.json",
	},
	{
		Name: "sandbox",
		Types: []any{
			sandbox.Record{},
			sandbox.Summary{},
			handlers.HealthResponse{},
		},
		Output: "sandbox.json",
	},
}

func main() {
	outputDir := "./schemas"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range groups {
		outputPath := filepath.Join(outputDir, group.Output)
		if err := writeSchema(generateGroupSchema(group), outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}
	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://kosarica.hr/schemas/import-wizard/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
