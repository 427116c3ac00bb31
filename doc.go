// Package ciskema validates CI configuration documents against a schema of
// typed nodes:
//
//   - A Registry describes node types (scalars, string lists, key/value maps,
//     fixed composites and named collections) and is built once with a Builder.
//   - Validate composes a Value tree into Entries, collecting Issues per node
//     without stopping at the first failure.
//   - Entries expose semantic values and whether each value was specified by
//     the document or filled from a default.
//
// Drivers under source/ turn YAML, JSON and HCL documents into Values, and
// package ci holds the canonical pipeline schema.
//
// Typical usage:
//
//	res, err := ciskema.ParseFrom(ctx, ci.Registry(), yamlsrc.Bytes(data))
//	if err != nil { ... }          // the document could not be decoded
//	for _, line := range res.Errors() { fmt.Println(line) }
//	stages, _ := res.SemanticValue("stages")
package ciskema
