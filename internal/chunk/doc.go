// Package chunk splits parsed documentation sources into bounded-size,
// metadata-tagged passages suitable for vector indexing.
//
// Four chunking paths exist, selected by document shape:
//
//   - OpenAPI/Swagger specifications: one chunk per API operation, named
//     schema and security scheme, plus overview and server chunks.
//   - Custom documentation YAML (api_documentation/endpoints shape): one
//     chunk per endpoint entry, plus overview, authentication and
//     example-group chunks.
//   - Generic YAML: the nested structure is flattened into dotted-path
//     text blocks grouped under their top-level key.
//   - HTML pages: split on heading boundaries, then on paragraph
//     boundaries for oversized sections, never inside a code block.
//
// Chunk IDs are deterministic in (source, section, ordinal), which makes
// re-ingestion of an unchanged source idempotent under upsert semantics.
// Empty or whitespace-only input produces zero chunks, not an error.
package chunk
