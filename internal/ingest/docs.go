// Package ingest turns documentation sources into indexed documents.
// It backs both the CLI batch ingestion and the load_documentation
// MCP tool.
package ingest

import (
	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/store"
)

// Documents converts chunks to store documents. Chunk provenance
// (source, title, section) moves into metadata so search results can
// cite where content came from.
func Documents(chunks []chunk.Chunk) []store.Document {
	docs := make([]store.Document, len(chunks))
	for i, c := range chunks {
		metadata := make(map[string]string, len(c.Metadata)+3)
		for k, v := range c.Metadata {
			metadata[k] = v
		}
		metadata["url"] = c.Source
		metadata["title"] = c.Title
		metadata["section"] = c.Section

		docs[i] = store.Document{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: metadata,
		}
	}
	return docs
}
