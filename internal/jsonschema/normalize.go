package jsonschema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// maxDepth bounds recursion so that pathological but acyclic schemas still
// terminate with an error instead of exhausting the stack.
const maxDepth = 64

// rootRef is the JSON pointer to the document root.
const rootRef = "#"

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Normalize returns a self-contained copy of schema: every local "$ref" is
// replaced by the definition it points to, "$defs"/"definitions" are dropped,
// and no node carries a "title" keyword. A nil schema normalizes to nil.
func Normalize(schema Schema) (Schema, error) {
	inlined, err := InlineRefs(schema)
	if err != nil {
		return nil, err
	}
	return StripTitles(inlined), nil
}

// StripTitles returns a copy of schema without any "title" keyword at any
// depth. Property names that happen to be "title" are kept.
func StripTitles(schema Schema) Schema {
	return StripKeys(schema, "title")
}

// StripKeys returns a copy of schema with the given keywords removed from
// every node. Names inside "properties" and similar name maps are data and
// are never removed, and literal values (enum, const, default) are copied
// untouched.
func StripKeys(schema Schema, keys ...string) Schema {
	if schema == nil {
		return nil
	}
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		drop[key] = true
	}
	return Schema(stripNode(schema, drop))
}

func stripNode(node map[string]any, drop map[string]bool) map[string]any {
	out := make(map[string]any, len(node))
	for key, value := range node {
		if drop[key] {
			continue
		}

		switch {
		case valueKeywords[key]:
			out[key] = cloneValue(value)
		case schemaMapKeywords[key]:
			named, ok := asMap(value)
			if !ok {
				out[key] = cloneValue(value)
				continue
			}
			children := make(map[string]any, len(named))
			for name, child := range named {
				children[name] = stripValue(child, drop)
			}
			out[key] = children
		default:
			out[key] = stripValue(value, drop)
		}
	}
	return out
}

func stripValue(value any, drop map[string]bool) any {
	if node, ok := asMap(value); ok {
		return stripNode(node, drop)
	}
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = stripValue(item, drop)
		}
		return out
	}
	return value
}

// InlineRefs returns a copy of schema in which every "$ref" pointing into the
// root "$defs" (or legacy "definitions") map is replaced by a deep copy of the
// target, recursively. Keywords written next to a "$ref" override the ones
// from the definition. The definition maps are removed from the result.
//
// Every definition is checked, including unreferenced ones: a cycle anywhere
// in the definition graph, a reference to the document root, or a reference
// that does not resolve locally fails with ErrUnsupportedSchema.
func InlineRefs(schema Schema) (Schema, error) {
	if schema == nil {
		return nil, nil
	}

	inliner := refInliner{defs: map[string]map[string]any{rootRef: schema}}
	for _, keyword := range []string{"$defs", "definitions"} {
		named, ok := asMap(schema[keyword])
		if !ok {
			continue
		}
		for name, def := range named {
			defNode, ok := asMap(def)
			if !ok {
				return nil, fmt.Errorf("%w: definition %q is not an object", ErrUnsupportedSchema, name)
			}
			inliner.defs["#/"+keyword+"/"+pointerEscaper.Replace(name)] = defNode
		}
	}

	refs := make([]string, 0, len(inliner.defs))
	for ref := range inliner.defs {
		if ref != rootRef {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	for _, ref := range refs {
		if _, err := inliner.node(inliner.defs[ref], []string{rootRef, ref}, 0); err != nil {
			return nil, err
		}
	}

	out, err := inliner.node(schema, []string{rootRef}, 0)
	if err != nil {
		return nil, err
	}
	return Schema(out), nil
}

// refInliner resolves references against the definitions of one document.
// stack holds the references currently being expanded, so a repeat means the
// expansion would never end.
type refInliner struct {
	defs map[string]map[string]any
}

func (inliner refInliner) node(node map[string]any, stack []string, depth int) (map[string]any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d levels", ErrUnsupportedSchema, maxDepth)
	}

	if ref, ok := node["$ref"].(string); ok {
		if slices.Contains(stack, ref) {
			path := append(slices.Clone(stack[1:]), ref)
			return nil, fmt.Errorf("%w: cyclic reference %s", ErrUnsupportedSchema, strings.Join(path, " -> "))
		}
		target, found := inliner.defs[ref]
		if !found {
			return nil, fmt.Errorf("%w: unresolved reference %q", ErrUnsupportedSchema, ref)
		}

		resolved, err := inliner.node(target, append(slices.Clone(stack), ref), depth+1)
		if err != nil {
			return nil, err
		}
		for key, value := range node {
			if key == "$ref" {
				continue
			}
			inlined, err := inliner.value(key, value, stack, depth+1)
			if err != nil {
				return nil, err
			}
			resolved[key] = inlined
		}
		return resolved, nil
	}

	out := make(map[string]any, len(node))
	for key, value := range node {
		if key == "$defs" || key == "definitions" {
			continue
		}
		inlined, err := inliner.value(key, value, stack, depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = inlined
	}
	return out, nil
}

func (inliner refInliner) value(key string, value any, stack []string, depth int) (any, error) {
	if valueKeywords[key] {
		return cloneValue(value), nil
	}

	if schemaMapKeywords[key] {
		named, ok := asMap(value)
		if !ok {
			return cloneValue(value), nil
		}
		children := make(map[string]any, len(named))
		for name, child := range named {
			inlined, err := inliner.child(child, stack, depth)
			if err != nil {
				return nil, err
			}
			children[name] = inlined
		}
		return children, nil
	}

	return inliner.child(value, stack, depth)
}

func (inliner refInliner) child(value any, stack []string, depth int) (any, error) {
	if node, ok := asMap(value); ok {
		return inliner.node(node, stack, depth)
	}
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			inlined, err := inliner.child(item, stack, depth)
			if err != nil {
				return nil, err
			}
			out[i] = inlined
		}
		return out, nil
	}
	return value, nil
}
