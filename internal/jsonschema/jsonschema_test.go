package jsonschema

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustParse decodes a schema literal, failing the test on malformed JSON.
func mustParse(t *testing.T, literal string) Schema {
	t.Helper()
	schema, err := Parse([]byte(literal))
	require.NoError(t, err)
	return schema
}

// assertNoKey walks a normalized tree and fails if any schema node carries the
// given keyword. Property names are data and are skipped by the walk.
func assertNoKey(t *testing.T, value any, keyword string) {
	t.Helper()
	switch node := value.(type) {
	case Schema:
		assertNoKey(t, map[string]any(node), keyword)
	case map[string]any:
		for key, child := range node {
			assert.NotEqual(t, keyword, key, "found %q keyword in %v", keyword, node)
			if schemaMapKeywords[key] {
				if named, ok := asMap(child); ok {
					for _, grandChild := range named {
						assertNoKey(t, grandChild, keyword)
					}
				}
				continue
			}
			if valueKeywords[key] {
				continue
			}
			assertNoKey(t, child, keyword)
		}
	case []any:
		for _, item := range node {
			assertNoKey(t, item, keyword)
		}
	}
}

const nestedSchema = `{
	"title": "Recipe",
	"type": "object",
	"properties": {
		"title": {"type": "string", "title": "Title"},
		"steps": {"type": "array", "title": "Steps", "items": {"$ref": "#/$defs/Step"}},
		"author": {"$ref": "#/$defs/Person", "description": "who wrote it"}
	},
	"required": ["title", "steps"],
	"$defs": {
		"Step": {
			"title": "Step",
			"type": "object",
			"properties": {
				"text": {"type": "string", "title": "Text"},
				"by": {"$ref": "#/$defs/Person"}
			}
		},
		"Person": {
			"title": "Person",
			"type": "object",
			"properties": {"name": {"type": "string", "enum": ["a", "b"], "title": "Name"}}
		}
	}
}`

// TestStripTitles verifies that every "title" keyword is removed at any depth
// while a property literally named "title" survives, and that the input tree
// is left untouched.
func TestStripTitles(t *testing.T) {
	schema := mustParse(t, nestedSchema)
	before, err := json.Marshal(schema)
	require.NoError(t, err)

	stripped := StripTitles(schema)

	assertNoKey(t, stripped, "title")
	properties := stripped["properties"].(map[string]any)
	assert.Contains(t, properties, "title", "property named title must be kept")

	after, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after), "input schema must not be mutated")
}

// TestStripKeys_LeavesLiteralValuesAlone checks that keywords are only removed
// from schema nodes, never from enum/default literal data.
func TestStripKeys_LeavesLiteralValuesAlone(t *testing.T) {
	schema := mustParse(t, `{
		"type": "object",
		"additionalProperties": false,
		"default": {"additionalProperties": 1},
		"properties": {"x": {"type": "object", "additionalProperties": false}}
	}`)

	stripped := StripKeys(schema, "additionalProperties")

	assert.NotContains(t, stripped, "additionalProperties")
	assert.Equal(t, map[string]any{"additionalProperties": float64(1)}, stripped["default"])
	x := stripped["properties"].(map[string]any)["x"].(map[string]any)
	assert.NotContains(t, x, "additionalProperties")
}

// TestInlineRefs verifies that references are replaced by copies of their
// definitions (recursively), sibling keywords override the definition, and
// the $defs map disappears from the result.
func TestInlineRefs(t *testing.T) {
	schema := mustParse(t, nestedSchema)

	inlined, err := InlineRefs(schema)
	require.NoError(t, err)

	assertNoKey(t, inlined, "$ref")
	assert.NotContains(t, inlined, "$defs")

	properties := inlined["properties"].(map[string]any)
	author := properties["author"].(map[string]any)
	assert.Equal(t, "who wrote it", author["description"])
	assert.Equal(t, "object", author["type"])

	step := properties["steps"].(map[string]any)["items"].(map[string]any)
	by := step["properties"].(map[string]any)["by"].(map[string]any)
	assert.Equal(t, "Person", by["title"], "InlineRefs alone keeps titles")

	// The original still has its references.
	assert.Contains(t, schema, "$defs")
}

// TestInlineRefs_CopiesAreIndependent makes sure two references to the same
// definition do not share one map, so mutating one copy cannot leak.
func TestInlineRefs_CopiesAreIndependent(t *testing.T) {
	schema := mustParse(t, `{
		"type": "object",
		"properties": {"a": {"$ref": "#/$defs/X"}, "b": {"$ref": "#/$defs/X"}},
		"$defs": {"X": {"type": "string"}}
	}`)

	inlined, err := InlineRefs(schema)
	require.NoError(t, err)

	properties := inlined["properties"].(map[string]any)
	properties["a"].(map[string]any)["type"] = "integer"
	assert.Equal(t, "string", properties["b"].(map[string]any)["type"])
}

// TestInlineRefs_Cycles verifies every cyclic shape is rejected with
// ErrUnsupportedSchema instead of recursing forever.
func TestInlineRefs_Cycles(t *testing.T) {
	testCases := []struct {
		name   string
		schema string
	}{
		{
			name:   "self reference → error",
			schema: `{"$ref": "#/$defs/Node", "$defs": {"Node": {"type": "object", "properties": {"next": {"$ref": "#/$defs/Node"}}}}}`,
		},
		{
			name:   "mutual reference → error",
			schema: `{"type": "object", "properties": {"a": {"$ref": "#/$defs/A"}}, "$defs": {"A": {"items": {"$ref": "#/$defs/B"}}, "B": {"items": {"$ref": "#/$defs/A"}}}}`,
		},
		{
			name:   "unreferenced cycle → error",
			schema: `{"type": "string", "$defs": {"A": {"anyOf": [{"$ref": "#/$defs/B"}]}, "B": {"$ref": "#/$defs/A"}}}`,
		},
		{
			name:   "root reference → error",
			schema: `{"type": "object", "properties": {"child": {"$ref": "#"}}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(mustParse(t, tc.schema))
			require.ErrorIs(t, err, ErrUnsupportedSchema)
			assert.Contains(t, err.Error(), "cyclic reference")
		})
	}
}

// TestInlineRefs_Unresolved rejects references that do not point into the
// local definitions.
func TestInlineRefs_Unresolved(t *testing.T) {
	schema := mustParse(t, `{"type": "object", "properties": {"a": {"$ref": "#/$defs/Missing"}}}`)

	_, err := InlineRefs(schema)
	require.ErrorIs(t, err, ErrUnsupportedSchema)
	assert.Contains(t, err.Error(), "unresolved reference")
}

// TestInlineRefs_DepthBound checks that a very deep acyclic schema fails fast
// instead of recursing without limit.
func TestInlineRefs_DepthBound(t *testing.T) {
	var builder strings.Builder
	for range maxDepth + 5 {
		builder.WriteString(`{"type": "array", "items": `)
	}
	builder.WriteString(`{"type": "string"}`)
	for range maxDepth + 5 {
		builder.WriteString(`}`)
	}

	_, err := InlineRefs(mustParse(t, builder.String()))
	require.ErrorIs(t, err, ErrUnsupportedSchema)
}

// TestNormalize_IdempotentAndOrderIndependent verifies that normalizing twice
// is a no-op and that the two passes commute for acyclic schemas.
func TestNormalize_IdempotentAndOrderIndependent(t *testing.T) {
	schema := mustParse(t, nestedSchema)

	once, err := Normalize(schema)
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	assertNoKey(t, once, "title")
	assertNoKey(t, once, "$ref")

	inlinedFirst, err := InlineRefs(schema)
	require.NoError(t, err)
	strippedFirst, err := InlineRefs(StripTitles(schema))
	require.NoError(t, err)
	assert.Equal(t, StripTitles(inlinedFirst), strippedFirst)
}

// TestNormalize_Nil maps a missing schema to a missing schema.
func TestNormalize_Nil(t *testing.T) {
	normalized, err := Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, normalized)
}

type address struct {
	City string `json:"city"`
}

type contact struct {
	Name    string   `json:"name" jsonschema:"description=Full name"`
	Home    address  `json:"home"`
	Work    *address `json:"work,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// TestFromType verifies that a reflected schema drops $schema/$id and
// normalizes into a self-contained object tree.
func TestFromType(t *testing.T) {
	schema, err := FromType[contact]()
	require.NoError(t, err)

	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$id")
	assert.Equal(t, "object", schema["type"])

	normalized, err := Normalize(schema)
	require.NoError(t, err)
	assertNoKey(t, normalized, "$ref")

	properties := normalized["properties"].(map[string]any)
	assert.Equal(t, "Full name", properties["name"].(map[string]any)["description"])
	home := properties["home"].(map[string]any)
	assert.Contains(t, home["properties"], "city")
}
