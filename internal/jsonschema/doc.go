// Package jsonschema holds the map-backed JSON Schema tree exchanged between
// callers and provider adapters, and the pure transformations that make one
// schema acceptable to providers with different structured-output rules.
//
// [Normalize] is the entry point used by adapters: it removes every "title"
// keyword and inlines every local "$ref" so the result carries no "$defs"
// indirection. Both passes rebuild the tree and never mutate their input.
// Self-referential definitions cannot be inlined and fail with
// [ErrUnsupportedSchema].
//
// [FromType] derives a schema from a Go type through invopop/jsonschema.
package jsonschema
