package definition

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "tasks"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "variables": {"type": ["object", "null"]},
    "tasks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "serviceURL": {"type": "string"},
          "method": {"type": "string"},
          "input": {"type": "string"},
          "vout": {"type": "string"},
          "outputMappings": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(definitionSchema)

// validateSchema checks the raw decoded document against the definition
// schema, so unknown or mistyped task fields are reported by name.
func validateSchema(document interface{}) error {
	documentBytes, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to encode definition: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(documentBytes))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("invalid definition: %s", strings.Join(problems, "; "))
}
