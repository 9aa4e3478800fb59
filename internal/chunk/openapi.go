package chunk

import (
	"fmt"
	"strings"
)

// httpMethods are the operation keys recognized inside an OpenAPI path
// item, in chunking order.
var httpMethods = []string{"get", "post", "put", "delete", "patch", "options", "head", "trace"}

// FromOpenAPI chunks an OpenAPI/Swagger specification: one chunk per
// (path, method) operation, per named schema, per security scheme, plus
// an overview chunk for the info block and a servers chunk.
func FromOpenAPI(spec map[string]any, source string) []Chunk {
	var chunks []Chunk
	ids := newCounter()
	title := titleFromSource(source)

	if info, ok := asMap(spec["info"]); ok && len(info) > 0 {
		if t := asString(info["title"]); t != "" {
			title = t
		}
		chunks = append(chunks, Chunk{
			Content: formatAPIInfo(info),
			Source:  source,
			Title:   title,
			Section: SectionOverview,
			ID:      NewID(source, SectionOverview, ids.next(SectionOverview)),
			Metadata: map[string]string{
				"doc_kind":    KindOpenAPI.String(),
				"api_version": asString(info["version"]),
			},
		})
	}

	if servers, ok := asSlice(spec["servers"]); ok && len(servers) > 0 {
		chunks = append(chunks, Chunk{
			Content:  formatServers(servers),
			Source:   source,
			Title:    title,
			Section:  SectionServers,
			ID:       NewID(source, SectionServers, ids.next(SectionServers)),
			Metadata: map[string]string{"doc_kind": KindOpenAPI.String()},
		})
	}

	if paths, ok := asMap(spec["paths"]); ok {
		for _, path := range sortedKeys(paths) {
			item, ok := asMap(paths[path])
			if !ok {
				continue
			}
			chunks = append(chunks, openAPIPathChunks(path, item, source, title, ids)...)
		}
	}

	if components, ok := asMap(spec["components"]); ok {
		chunks = append(chunks, openAPIComponentChunks(components, source, title, ids)...)
	}

	// Swagger 2.0 keeps schemas under "definitions" instead of components.
	if definitions, ok := asMap(spec["definitions"]); ok {
		chunks = append(chunks, schemaChunks(definitions, source, title, ids)...)
	}

	return chunks
}

// openAPIPathChunks produces one endpoint chunk per HTTP method defined
// on a path item. Path-level parameters apply to every operation.
func openAPIPathChunks(path string, item map[string]any, source, title string, ids *counter) []Chunk {
	var chunks []Chunk

	pathParams, _ := asSlice(item["parameters"])

	for _, method := range httpMethods {
		op, ok := asMap(item[method])
		if !ok {
			continue
		}

		meta := map[string]string{
			"doc_kind":      KindOpenAPI.String(),
			"endpoint_path": path,
			"http_method":   strings.ToUpper(method),
			"section_path":  fmt.Sprintf("paths.%s.%s", path, method),
		}
		if opID := asString(op["operationId"]); opID != "" {
			meta["operation_id"] = opID
		}
		if tags, ok := asSlice(op["tags"]); ok && len(tags) > 0 {
			meta["tags"] = joinStrings(tags, ",")
		}

		chunks = append(chunks, Chunk{
			Content: formatOperation(path, strings.ToUpper(method), op, pathParams),
			Source:  source,
			Title:   title,
			Section: SectionEndpoint,
			ID:      NewID(source, SectionEndpoint, ids.next(SectionEndpoint)),
			Metadata: meta,
		})
	}

	return chunks
}

// openAPIComponentChunks chunks components/schemas and
// components/securitySchemes.
func openAPIComponentChunks(components map[string]any, source, title string, ids *counter) []Chunk {
	var chunks []Chunk

	if schemas, ok := asMap(components["schemas"]); ok {
		chunks = append(chunks, schemaChunks(schemas, source, title, ids)...)
	}

	if schemes, ok := asMap(components["securitySchemes"]); ok {
		for _, name := range sortedKeys(schemes) {
			def, ok := asMap(schemes[name])
			if !ok {
				continue
			}
			chunks = append(chunks, Chunk{
				Content: formatSecurityScheme(name, def),
				Source:  source,
				Title:   title,
				Section: SectionSecurity,
				ID:      NewID(source, SectionSecurity, ids.next(SectionSecurity)),
				Metadata: map[string]string{
					"doc_kind":        KindOpenAPI.String(),
					"security_scheme": name,
					"security_type":   asString(def["type"]),
				},
			})
		}
	}

	return chunks
}

func schemaChunks(schemas map[string]any, source, title string, ids *counter) []Chunk {
	var chunks []Chunk
	for _, name := range sortedKeys(schemas) {
		def, ok := asMap(schemas[name])
		if !ok {
			continue
		}
		chunks = append(chunks, Chunk{
			Content: formatSchema(name, def),
			Source:  source,
			Title:   title,
			Section: SectionSchema,
			ID:      NewID(source, SectionSchema, ids.next(SectionSchema)),
			Metadata: map[string]string{
				"doc_kind":    KindOpenAPI.String(),
				"schema_name": name,
				"schema_type": asString(def["type"]),
			},
		})
	}
	return chunks
}

// Formatting helpers. Output is markdown: embedding models handle it
// well and clients render it directly.

func formatAPIInfo(info map[string]any) string {
	var b strings.Builder

	apiTitle := asString(info["title"])
	if apiTitle == "" {
		apiTitle = "API Documentation"
	}
	fmt.Fprintf(&b, "# %s\n\n", apiTitle)

	if desc := asString(info["description"]); desc != "" {
		fmt.Fprintf(&b, "**Description:** %s\n\n", desc)
	}
	if version := asString(info["version"]); version != "" {
		fmt.Fprintf(&b, "**Version:** %s\n\n", version)
	}

	if contact, ok := asMap(info["contact"]); ok {
		b.WriteString("**Contact Information:**\n")
		if name := asString(contact["name"]); name != "" {
			fmt.Fprintf(&b, "- Name: %s\n", name)
		}
		if email := asString(contact["email"]); email != "" {
			fmt.Fprintf(&b, "- Email: %s\n", email)
		}
		if u := asString(contact["url"]); u != "" {
			fmt.Fprintf(&b, "- URL: %s\n", u)
		}
		b.WriteString("\n")
	}

	if license, ok := asMap(info["license"]); ok {
		fmt.Fprintf(&b, "**License:** %s", asString(license["name"]))
		if u := asString(license["url"]); u != "" {
			fmt.Fprintf(&b, " (%s)", u)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func formatServers(servers []any) string {
	var b strings.Builder
	b.WriteString("# API Servers\n\n")

	for i, v := range servers {
		server, ok := asMap(v)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## Server %d\n", i+1)
		fmt.Fprintf(&b, "**URL:** %s\n", asString(server["url"]))
		if desc := asString(server["description"]); desc != "" {
			fmt.Fprintf(&b, "**Description:** %s\n", desc)
		}
		if vars, ok := asMap(server["variables"]); ok {
			b.WriteString("**Variables:**\n")
			for _, name := range sortedKeys(vars) {
				info, ok := asMap(vars[name])
				if !ok {
					continue
				}
				fmt.Fprintf(&b, "- %s: %s\n", name, asString(info["description"]))
				if def, ok := info["default"]; ok {
					fmt.Fprintf(&b, "  - Default: %s\n", renderYAML(def))
				}
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func formatOperation(path, method string, op map[string]any, pathParams []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", method, path)

	if summary := asString(op["summary"]); summary != "" {
		fmt.Fprintf(&b, "**Summary:** %s\n\n", summary)
	}
	if desc := asString(op["description"]); desc != "" {
		fmt.Fprintf(&b, "**Description:** %s\n\n", desc)
	}
	if opID := asString(op["operationId"]); opID != "" {
		fmt.Fprintf(&b, "**Operation ID:** %s\n\n", opID)
	}
	if tags, ok := asSlice(op["tags"]); ok && len(tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n\n", joinStrings(tags, ", "))
	}

	opParams, _ := asSlice(op["parameters"])
	allParams := append(append([]any{}, pathParams...), opParams...)
	if len(allParams) > 0 {
		b.WriteString("## Parameters\n\n")
		for _, v := range allParams {
			param, ok := asMap(v)
			if !ok {
				continue
			}
			in := asString(param["in"])
			if in == "" {
				in = "unknown"
			}
			fmt.Fprintf(&b, "- **%s** (%s): %s\n",
				asString(param["name"]), in, asString(param["description"]))
			if required, _ := param["required"].(bool); required {
				b.WriteString("  - Required: Yes\n")
			}
			if schema, ok := asMap(param["schema"]); ok {
				if t := asString(schema["type"]); t != "" {
					fmt.Fprintf(&b, "  - Type: %s\n", t)
				}
			}
		}
		b.WriteString("\n")
	}

	if reqBody, ok := asMap(op["requestBody"]); ok {
		b.WriteString("## Request Body\n\n")
		if desc := asString(reqBody["description"]); desc != "" {
			fmt.Fprintf(&b, "%s\n\n", desc)
		}
		if content, ok := asMap(reqBody["content"]); ok {
			for _, mediaType := range sortedKeys(content) {
				fmt.Fprintf(&b, "**Content-Type:** %s\n", mediaType)
				if media, ok := asMap(content[mediaType]); ok {
					if ref := schemaRef(media["schema"]); ref != "" {
						fmt.Fprintf(&b, "**Schema:** %s\n", ref)
					}
				}
			}
		}
		b.WriteString("\n")
	}

	if responses, ok := asMap(op["responses"]); ok {
		b.WriteString("## Responses\n\n")
		for _, status := range sortedKeys(responses) {
			fmt.Fprintf(&b, "### %s\n", status)
			if resp, ok := asMap(responses[status]); ok {
				if desc := asString(resp["description"]); desc != "" {
					fmt.Fprintf(&b, "%s\n", desc)
				}
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String())
}

func formatSchema(name string, def map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Schema: %s\n\n", name)

	if desc := asString(def["description"]); desc != "" {
		fmt.Fprintf(&b, "**Description:** %s\n\n", desc)
	}
	if t := asString(def["type"]); t != "" {
		fmt.Fprintf(&b, "**Type:** %s\n\n", t)
	}

	if props, ok := asMap(def["properties"]); ok {
		b.WriteString("## Properties\n\n")
		for _, propName := range sortedKeys(props) {
			fmt.Fprintf(&b, "- **%s**", propName)
			if prop, ok := asMap(props[propName]); ok {
				if t := asString(prop["type"]); t != "" {
					fmt.Fprintf(&b, " (%s)", t)
				}
				if desc := asString(prop["description"]); desc != "" {
					fmt.Fprintf(&b, ": %s", desc)
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if required, ok := asSlice(def["required"]); ok && len(required) > 0 {
		fmt.Fprintf(&b, "**Required fields:** %s\n", joinStrings(required, ", "))
	}

	return strings.TrimSpace(b.String())
}

func formatSecurityScheme(name string, def map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Security Scheme: %s\n\n", name)

	schemeType := asString(def["type"])
	if schemeType != "" {
		fmt.Fprintf(&b, "**Type:** %s\n\n", schemeType)
	}
	if desc := asString(def["description"]); desc != "" {
		fmt.Fprintf(&b, "**Description:** %s\n\n", desc)
	}

	switch schemeType {
	case "http":
		if scheme := asString(def["scheme"]); scheme != "" {
			fmt.Fprintf(&b, "**HTTP Scheme:** %s\n", scheme)
		}
	case "apiKey":
		if in := asString(def["in"]); in != "" {
			fmt.Fprintf(&b, "**Location:** %s\n", in)
		}
		if n := asString(def["name"]); n != "" {
			fmt.Fprintf(&b, "**Parameter Name:** %s\n", n)
		}
	case "oauth2":
		if flows, ok := asMap(def["flows"]); ok {
			b.WriteString("**OAuth2 Flows:**\n")
			for _, flowType := range sortedKeys(flows) {
				authURL := "N/A"
				if flow, ok := asMap(flows[flowType]); ok {
					if u := asString(flow["authorizationUrl"]); u != "" {
						authURL = u
					}
				}
				fmt.Fprintf(&b, "- %s: %s\n", flowType, authURL)
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// schemaRef extracts a $ref name or inline type from a schema value for
// request body summaries.
func schemaRef(v any) string {
	schema, ok := asMap(v)
	if !ok {
		return ""
	}
	if ref := asString(schema["$ref"]); ref != "" {
		parts := strings.Split(ref, "/")
		return parts[len(parts)-1]
	}
	return asString(schema["type"])
}

func joinStrings(values []any, sep string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if s := asString(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}
