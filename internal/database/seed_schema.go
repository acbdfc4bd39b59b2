package database

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed seed.schema.json
var seedSchemaJSON []byte

// validateSeedSchema checks the seed document against seed.schema.json, which
// carries the value bounds the API enforces.
func validateSeedSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(seedSchemaJSON)
	if err != nil {
		return fmt.Errorf("failed to compile seed schema: %w", err)
	}

	// Round-trip through JSON so the validator sees float64s and
	// map[string]any rather than YAML node types.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to convert seed data: %w", err)
	}
	var doc any
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return fmt.Errorf("failed to convert seed data: %w", err)
	}

	result := schema.Validate(doc)
	if !result.IsValid() {
		var messages []string
		for field, evalErr := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		sort.Strings(messages)
		return fmt.Errorf("seed data failed schema validation: %s", strings.Join(messages, "; "))
	}
	return nil
}
