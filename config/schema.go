package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for agents configuration files.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Unknown top-level keys are almost always typos.
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Grove Agents Configuration"
	schema.Description = "Schema for agents.yml / agents.toml."

	return json.MarshalIndent(schema, "", "  ")
}
