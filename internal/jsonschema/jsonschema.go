package jsonschema

import (
	"errors"
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
	invopop "github.com/invopop/jsonschema"
)

// ErrUnsupportedSchema is returned when a schema cannot be normalized, for
// example because its "$defs" graph references itself.
var ErrUnsupportedSchema = errors.New("switchai: unsupported schema")

// Schema is a JSON Schema node. Nested nodes are either Schema or
// map[string]any values; both are accepted everywhere a node is expected.
type Schema map[string]any

// schemaMapKeywords hold a name -> schema mapping rather than a schema. The
// names inside them are user data and are never treated as keywords.
var schemaMapKeywords = map[string]bool{
	"properties":        true,
	"patternProperties": true,
	"$defs":             true,
	"definitions":       true,
	"dependentSchemas":  true,
}

// valueKeywords hold literal instance data and are copied without descending.
var valueKeywords = map[string]bool{
	"enum":     true,
	"const":    true,
	"default":  true,
	"examples": true,
	"required": true,
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return Schema(cloneMap(s))
}

// Title returns the top-level "title" keyword, or "" when absent.
func (s Schema) Title() string {
	title, _ := s["title"].(string)
	return title
}

// MarshalIndent renders the schema as indented JSON, mostly for prompts that
// embed the schema as text.
func (s Schema) MarshalIndent() (string, error) {
	data, err := json.MarshalIndent(map[string]any(s), "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling schema: %w", err)
	}
	return string(data), nil
}

// Parse decodes a JSON document into a Schema.
func Parse(data []byte) (Schema, error) {
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("error parsing schema: %w", err)
	}
	return schema, nil
}

// reflector keeps the root type expanded and references nested named types
// through "$defs", which Normalize later inlines.
var reflector = invopop.Reflector{
	ExpandedStruct: true,
	Anonymous:      true,
}

// FromType derives a Schema from the Go type T using struct tags
// (`json`, `jsonschema`). The "$schema" and "$id" keywords are dropped since
// no provider accepts them inside a request.
func FromType[T any]() (Schema, error) {
	reflected := reflector.ReflectFromType(reflect.TypeFor[T]())

	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("error marshaling reflected schema: %w", err)
	}

	schema, err := Parse(data)
	if err != nil {
		return nil, err
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}

// asMap reports whether v is a schema node and returns it as a plain map.
func asMap(v any) (map[string]any, bool) {
	switch node := v.(type) {
	case Schema:
		return node, true
	case map[string]any:
		return node, true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	if node, ok := asMap(v); ok {
		return cloneMap(node)
	}
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = cloneValue(value)
	}
	return out
}
