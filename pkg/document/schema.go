package document

import (
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// documentSchema is the JSON schema for document files. It is embedded so
// validation needs no files on disk.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "nodetick document",
  "type": "object",
  "required": ["version", "graphs"],
  "properties": {
    "version": { "type": "string", "minLength": 1 },
    "graphs": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/definitions/graph" }
    }
  },
  "definitions": {
    "graph": {
      "type": "object",
      "required": ["name", "outputs", "nodes"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "id": { "type": "string" },
        "outputs": {
          "type": "array",
          "items": { "type": "string", "minLength": 1 }
        },
        "nodes": {
          "type": "array",
          "items": { "$ref": "#/definitions/node" }
        },
        "links": {
          "type": "array",
          "items": { "$ref": "#/definitions/link" }
        }
      }
    },
    "node": {
      "type": "object",
      "required": ["name", "kind"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "kind": { "enum": ["value", "expr", "pick", "reroute", "group"] },
        "value": {},
        "expr": { "type": "string" },
        "path": { "type": "string" },
        "inputs": {
          "type": "object",
          "additionalProperties": { "type": "string" }
        },
        "graph": { "$ref": "#/definitions/graph" }
      }
    },
    "link": {
      "type": "object",
      "required": ["from", "to"],
      "properties": {
        "from": { "type": "string", "minLength": 1 },
        "from_socket": { "type": "string" },
        "to": { "type": "string", "minLength": 1 },
        "to_socket": { "type": "string" }
      }
    }
  }
}`

// ValidateBytes validates document YAML against the embedded schema before
// parsing, so malformed files fail with field-level messages instead of
// construction errors.
func ValidateBytes(yamlBytes []byte) error {
	if len(yamlBytes) == 0 {
		return errors.New("empty YAML input")
	}

	var data interface{}
	if err := yaml.Unmarshal(yamlBytes, &data); err != nil {
		return fmt.Errorf("failed to parse YAML for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, desc := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += fmt.Sprintf("%s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("schema validation failed: %s", errMsg)
	}

	return nil
}
