package chunk

import (
	"fmt"
	"strings"
)

// maxFlattenDepth bounds recursion into nested YAML structures.
// Leaves deeper than this are rendered in place as YAML text.
const maxFlattenDepth = 5

// flatLeaf is one flattened key/value pair with its dotted path.
type flatLeaf struct {
	path  string
	key   string
	value string
}

// FromGeneric chunks YAML with no recognized shape by flattening the
// nested structure into dotted-path text blocks, grouped into one chunk
// per top-level key. The hierarchical path of every leaf is preserved in
// the chunk content; the top-level key lands in metadata.
func FromGeneric(root map[string]any, source string) []Chunk {
	var chunks []Chunk
	ids := newCounter()
	title := titleFromSource(source)

	for _, topKey := range sortedKeys(root) {
		leaves := flatten(root[topKey], topKey, 0)
		if len(leaves) == 0 {
			continue
		}

		var b strings.Builder
		for _, leaf := range leaves {
			fmt.Fprintf(&b, "%s:\n%s\n\n", leaf.path, leaf.value)
		}
		content := strings.TrimSpace(b.String())
		if len(content) < MinContentLen {
			continue
		}

		chunks = append(chunks, Chunk{
			Content: content,
			Source:  source,
			Title:   title,
			Section: SectionGeneric,
			ID:      NewID(source, SectionGeneric, ids.next(SectionGeneric)),
			Metadata: map[string]string{
				"doc_kind":     KindGeneric.String(),
				"section_name": topKey,
			},
		})
	}

	return chunks
}

// flatten recursively walks a YAML value, emitting leaves with dotted
// paths. Maps recurse per key, sequences per index ([i] notation).
func flatten(v any, path string, depth int) []flatLeaf {
	if m, ok := asMap(v); ok && depth < maxFlattenDepth {
		var leaves []flatLeaf
		for _, key := range sortedKeys(m) {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			leaves = append(leaves, flatten(m[key], childPath, depth+1)...)
		}
		return leaves
	}

	if s, ok := asSlice(v); ok && depth < maxFlattenDepth {
		var leaves []flatLeaf
		for i, item := range s {
			leaves = append(leaves, flatten(item, fmt.Sprintf("%s[%d]", path, i), depth+1)...)
		}
		return leaves
	}

	value := renderYAML(v)
	if strings.TrimSpace(value) == "" {
		return nil
	}

	key := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		key = path[i+1:]
	}
	return []flatLeaf{{path: path, key: key, value: value}}
}
