package chunk

import (
	"fmt"
	"strings"
)

// FromCustomDoc chunks the free-form documentation YAML format: a
// top-level api_documentation mapping (or the root itself) holding
// overview, authentication, endpoints and examples blocks.
func FromCustomDoc(root map[string]any, source string) []Chunk {
	docs := root
	if inner, ok := asMap(root["api_documentation"]); ok {
		docs = inner
	}

	var chunks []Chunk
	ids := newCounter()
	title := titleFromSource(source)

	if overview := asString(docs["overview"]); overview != "" {
		chunks = append(chunks, Chunk{
			Content:  "# API Overview\n\n" + overview,
			Source:   source,
			Title:    title,
			Section:  SectionOverview,
			ID:       NewID(source, SectionOverview, ids.next(SectionOverview)),
			Metadata: map[string]string{"doc_kind": KindCustomDoc.String()},
		})
	}

	if auth, ok := asMap(docs["authentication"]); ok && len(auth) > 0 {
		chunks = append(chunks, Chunk{
			Content: formatAuthentication(auth),
			Source:  source,
			Title:   title,
			Section: SectionAuthentication,
			ID:      NewID(source, SectionAuthentication, ids.next(SectionAuthentication)),
			Metadata: map[string]string{
				"doc_kind":  KindCustomDoc.String(),
				"auth_type": asString(auth["type"]),
			},
		})
	}

	if endpoints, ok := asSlice(docs["endpoints"]); ok {
		for _, v := range endpoints {
			endpoint, ok := asMap(v)
			if !ok {
				continue
			}
			meta := map[string]string{"doc_kind": KindCustomDoc.String()}
			if name := asString(endpoint["name"]); name != "" {
				meta["endpoint_name"] = name
			}
			if path := asString(endpoint["path"]); path != "" {
				meta["endpoint_path"] = path
			}
			if method := asString(endpoint["method"]); method != "" {
				meta["http_method"] = strings.ToUpper(method)
			}
			chunks = append(chunks, Chunk{
				Content:  formatCustomEndpoint(endpoint),
				Source:   source,
				Title:    title,
				Section:  SectionEndpoint,
				ID:       NewID(source, SectionEndpoint, ids.next(SectionEndpoint)),
				Metadata: meta,
			})
		}
	}

	if examples, ok := asMap(docs["examples"]); ok && len(examples) > 0 {
		chunks = append(chunks, Chunk{
			Content:  formatExamples(examples),
			Source:   source,
			Title:    title,
			Section:  SectionExamples,
			ID:       NewID(source, SectionExamples, ids.next(SectionExamples)),
			Metadata: map[string]string{"doc_kind": KindCustomDoc.String()},
		})
	}

	return chunks
}

func formatAuthentication(auth map[string]any) string {
	var b strings.Builder
	b.WriteString("# Authentication\n\n")

	if t := asString(auth["type"]); t != "" {
		fmt.Fprintf(&b, "**Type:** %s\n\n", t)
	}
	if desc := asString(auth["description"]); desc != "" {
		fmt.Fprintf(&b, "%s\n\n", desc)
	}

	if examples, ok := asSlice(auth["examples"]); ok {
		b.WriteString("## Examples\n\n")
		for _, example := range examples {
			if s := asString(example); s != "" {
				fmt.Fprintf(&b, "```\n%s\n```\n\n", s)
			} else {
				fmt.Fprintf(&b, "```yaml\n%s\n```\n\n", renderYAML(example))
			}
		}
	}

	return strings.TrimSpace(b.String())
}

func formatCustomEndpoint(endpoint map[string]any) string {
	var b strings.Builder

	method := asString(endpoint["method"])
	if method == "" {
		method = "GET"
	}
	path := asString(endpoint["path"])
	if path == "" {
		path = "/unknown"
	}
	fmt.Fprintf(&b, "# %s %s\n\n", strings.ToUpper(method), path)

	if name := asString(endpoint["name"]); name != "" {
		fmt.Fprintf(&b, "**Name:** %s\n\n", name)
	}
	if desc := asString(endpoint["description"]); desc != "" {
		fmt.Fprintf(&b, "**Description:** %s\n\n", desc)
	}

	if params, ok := asSlice(endpoint["parameters"]); ok && len(params) > 0 {
		b.WriteString("## Parameters\n\n")
		for _, v := range params {
			param, ok := asMap(v)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- **%s**: %s\n",
				asString(param["name"]), asString(param["description"]))
		}
		b.WriteString("\n")
	}

	if req := asString(endpoint["example_request"]); req != "" {
		fmt.Fprintf(&b, "## Example Request\n\n```\n%s\n```\n\n", req)
	}
	if resp := asString(endpoint["example_response"]); resp != "" {
		fmt.Fprintf(&b, "## Example Response\n\n```\n%s\n```\n\n", resp)
	}

	return strings.TrimSpace(b.String())
}

func formatExamples(examples map[string]any) string {
	var b strings.Builder
	b.WriteString("# API Examples\n\n")

	for _, name := range sortedKeys(examples) {
		fmt.Fprintf(&b, "## %s\n\n", name)
		if s := asString(examples[name]); s != "" {
			fmt.Fprintf(&b, "%s\n\n", s)
		} else {
			fmt.Fprintf(&b, "```yaml\n%s\n```\n\n", renderYAML(examples[name]))
		}
	}

	return strings.TrimSpace(b.String())
}
