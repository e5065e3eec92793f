package messaging

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Event payloads are validated before dispatch; malformed messages go
// straight to the DLQ instead of burning retries.

const interactionEventSchema = `{
	"type": "object",
	"required": ["event_id", "user_id", "recipe_id", "kind", "timestamp"],
	"properties": {
		"event_id": {"type": "string", "minLength": 1},
		"user_id": {"type": "integer", "minimum": 1},
		"recipe_id": {"type": "integer", "minimum": 1},
		"kind": {
			"type": "string",
			"enum": ["like", "dislike", "unlike", "undislike", "view", "detail_view"]
		},
		"source": {"type": "string", "enum": ["feed", "search", "detail"]},
		"timestamp": {"type": "string", "format": "date-time"}
	}
}`

const recipeIngestionSchema = `{
	"type": "object",
	"required": ["job_id", "recipe"],
	"properties": {
		"job_id": {"type": "string", "minLength": 1},
		"recipe": {
			"type": "object",
			"required": ["recipe_id", "title"],
			"properties": {
				"recipe_id": {"type": "integer", "minimum": 1},
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"tags": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`

type schemaValidator struct {
	interaction *gojsonschema.Schema
	ingestion   *gojsonschema.Schema
}

func newSchemaValidator() (*schemaValidator, error) {
	interaction, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(interactionEventSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile interaction schema: %w", err)
	}

	ingestion, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recipeIngestionSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile ingestion schema: %w", err)
	}

	return &schemaValidator{
		interaction: interaction,
		ingestion:   ingestion,
	}, nil
}

func (v *schemaValidator) validate(schema *gojsonschema.Schema, payload []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid payload: %v", result.Errors())
	}
	return nil
}
