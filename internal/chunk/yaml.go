package chunk

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocKind classifies a parsed YAML document into one of the supported
// chunking strategies.
type DocKind int

const (
	// KindGeneric is any well-formed YAML with no recognized shape.
	KindGeneric DocKind = iota

	// KindOpenAPI is an OpenAPI or Swagger specification.
	KindOpenAPI

	// KindCustomDoc is the free-form api_documentation/endpoints format.
	KindCustomDoc
)

// String returns the kind label used in chunk metadata and logs.
func (k DocKind) String() string {
	switch k {
	case KindOpenAPI:
		return "openapi"
	case KindCustomDoc:
		return "custom_api_docs"
	default:
		return "generic"
	}
}

// ClassifyYAML detects the document kind from the top-level keys.
// Detection order: openapi/swagger, then api_documentation/endpoints,
// then generic.
func ClassifyYAML(root map[string]any) DocKind {
	if _, ok := root["openapi"]; ok {
		return KindOpenAPI
	}
	if _, ok := root["swagger"]; ok {
		return KindOpenAPI
	}
	if _, ok := root["api_documentation"]; ok {
		return KindCustomDoc
	}
	if _, ok := root["endpoints"]; ok {
		return KindCustomDoc
	}
	return KindGeneric
}

// FromYAML chunks a parsed YAML document, dispatching on its detected
// kind. source is the originating file path or URL; it seeds chunk IDs
// and provenance metadata. A nil or empty document yields zero chunks.
func FromYAML(root map[string]any, source string) []Chunk {
	if len(root) == 0 {
		return nil
	}

	switch ClassifyYAML(root) {
	case KindOpenAPI:
		return FromOpenAPI(root, source)
	case KindCustomDoc:
		return FromCustomDoc(root, source)
	default:
		return FromGeneric(root, source)
	}
}

// titleFromSource derives a human-readable document title from a file
// path or URL (the base name without extension).
func titleFromSource(source string) string {
	base := filepath.Base(source)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// asMap coerces a decoded YAML value to a string-keyed map. yaml.v3
// decodes mappings as map[string]any, but nested documents produced by
// other decoders may carry map[any]any; both are handled.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// asSlice coerces a decoded YAML value to a slice.
func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// sortedKeys returns map keys in sorted order. Go map iteration is
// randomized; chunk ordinals must be stable across runs for ID
// determinism, so every map walk in this package sorts first.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asString returns v as a string if it is one.
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// renderYAML renders a non-string YAML value back to YAML text for
// embedding in chunk content. Marshal errors fall back to %v formatting;
// the value round-tripped through the decoder, so they are not expected.
func renderYAML(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return strings.TrimSpace(string(b))
}
