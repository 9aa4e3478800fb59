package docload

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docdex/docdex/internal/chunk"
)

// LoadFile parses a YAML file (multi-document files supported) and
// chunks every document by its detected shape. Malformed YAML returns a
// *ParseError; unrecognized-but-well-formed YAML falls back to generic
// flattening and is never an error. An empty file yields zero chunks.
func (l *Loader) LoadFile(path string) ([]chunk.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var chunks []chunk.Chunk
	skipped := 0
	dec := yaml.NewDecoder(f)

	for docIndex := 0; ; docIndex++ {
		var root map[string]any
		err := dec.Decode(&root)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A type mismatch on one document (e.g. a bare scalar at the
			// root) is not broken YAML; skip it and keep decoding.
			var typeErr *yaml.TypeError
			if errors.As(err, &typeErr) {
				skipped++
				l.logger.Warn("skipping non-mapping YAML document",
					"source", path, "doc_index", docIndex, "error", err)
				continue
			}
			return nil, &ParseError{Source: path, Err: err}
		}
		if len(root) == 0 {
			continue
		}

		kind := chunk.ClassifyYAML(root)
		docChunks := chunk.FromYAML(root, path)
		l.logger.Info("chunked YAML document",
			"source", path, "doc_index", docIndex, "kind", kind.String(), "chunks", len(docChunks))
		chunks = append(chunks, docChunks...)
	}

	if skipped > 0 {
		l.logger.Warn("some YAML documents were skipped", "source", path, "skipped", skipped)
	}

	return chunks, nil
}
