package ai

import (
	"fmt"
	"strings"

	"github.com/leofalp/switchai/internal/jsonschema"
)

// DefaultSchemaName is used for structured output when the schema has no title.
const DefaultSchemaName = "response_schema"

// NormalizeSchema returns a self-contained copy of schema: references inlined
// and titles removed. A nil schema stays nil.
func NormalizeSchema(schema Schema) (Schema, error) {
	if schema == nil {
		return nil, nil
	}
	return jsonschema.Normalize(schema)
}

// SchemaName returns the title of schema, or DefaultSchemaName. It must be
// read before NormalizeSchema drops the title.
func SchemaName(schema Schema) string {
	if title := schema.Title(); title != "" {
		return title
	}
	return DefaultSchemaName
}

// StructuredOutputInstruction renders the system instruction used by
// providers without native structured output. The schema is normalized first
// so the model sees a tree without references.
func StructuredOutputInstruction(schema Schema) (string, error) {
	normalized, err := NormalizeSchema(schema)
	if err != nil {
		return "", err
	}
	rendered, err := normalized.MarshalIndent()
	if err != nil {
		return "", fmt.Errorf("error rendering response schema: %w", err)
	}
	return "Return a short JSON object with the following schema: \n" + rendered, nil
}

// JoinInstructions concatenates non-empty system instructions.
func JoinInstructions(instructions ...string) string {
	nonEmpty := make([]string, 0, len(instructions))
	for _, instruction := range instructions {
		if instruction != "" {
			nonEmpty = append(nonEmpty, instruction)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
