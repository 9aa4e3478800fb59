package chunk

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyYAML(t *testing.T) {
	tests := []struct {
		name string
		root map[string]any
		want DocKind
	}{
		{"openapi 3", map[string]any{"openapi": "3.0.0", "paths": map[string]any{}}, KindOpenAPI},
		{"swagger 2", map[string]any{"swagger": "2.0"}, KindOpenAPI},
		{"custom api_documentation", map[string]any{"api_documentation": map[string]any{}}, KindCustomDoc},
		{"custom endpoints", map[string]any{"endpoints": []any{}}, KindCustomDoc},
		{"openapi wins over endpoints", map[string]any{"openapi": "3.1.0", "endpoints": []any{}}, KindOpenAPI},
		{"generic", map[string]any{"settings": map[string]any{"debug": true}}, KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyYAML(tt.root); got != tt.want {
				t.Errorf("ClassifyYAML() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromCustomDoc(t *testing.T) {
	root := map[string]any{
		"api_documentation": map[string]any{
			"overview": "The Orders API manages order lifecycle from creation to fulfillment.",
			"authentication": map[string]any{
				"type":        "bearer",
				"description": "Pass the token in the Authorization header.",
				"examples":    []any{"Authorization: Bearer <token>"},
			},
			"endpoints": []any{
				map[string]any{
					"name":        "Create order",
					"method":      "post",
					"path":        "/orders",
					"description": "Creates a new order.",
					"parameters": []any{
						map[string]any{"name": "idempotency_key", "description": "Dedupe key"},
					},
					"example_request": `{"sku": "A-1", "qty": 2}`,
				},
				map[string]any{
					"name":   "Get order",
					"method": "get",
					"path":   "/orders/{id}",
				},
			},
			"examples": map[string]any{
				"curl": "curl -H 'Authorization: Bearer t' https://api.example.com/orders",
			},
		},
	}

	chunks := FromCustomDoc(root, "docs/orders.yaml")

	sections := map[string]int{}
	for _, c := range chunks {
		sections[c.Section]++
	}
	want := map[string]int{
		SectionOverview:       1,
		SectionAuthentication: 1,
		SectionEndpoint:       2,
		SectionExamples:       1,
	}
	if diff := cmp.Diff(want, sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}

	auth := findSection(t, chunks, SectionAuthentication)
	if auth.Metadata["auth_type"] != "bearer" {
		t.Errorf("auth_type = %q, want bearer", auth.Metadata["auth_type"])
	}

	endpoint := findSection(t, chunks, SectionEndpoint)
	if !strings.Contains(endpoint.Content, "# POST /orders") {
		t.Errorf("endpoint content:\n%s", endpoint.Content)
	}
	if endpoint.Metadata["http_method"] != "POST" {
		t.Errorf("http_method = %q", endpoint.Metadata["http_method"])
	}
}

func TestFromGeneric(t *testing.T) {
	root := map[string]any{
		"database": map[string]any{
			"host":     "db.internal.example.com",
			"port":     5432,
			"replicas": []any{"replica-1.internal", "replica-2.internal"},
		},
		"tiny": "x",
	}

	chunks := FromGeneric(root, "config/settings.yaml")

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1 (short top-level key dropped)", len(chunks))
	}
	c := chunks[0]
	if c.Metadata["section_name"] != "database" {
		t.Errorf("section_name = %q", c.Metadata["section_name"])
	}
	for _, want := range []string{"database.host:", "database.port:", "database.replicas[0]:", "replica-2.internal"} {
		if !strings.Contains(c.Content, want) {
			t.Errorf("content missing %q:\n%s", want, c.Content)
		}
	}
}

func TestFromYAMLDispatch(t *testing.T) {
	openapi := FromYAML(map[string]any{
		"openapi": "3.0.0",
		"info":    map[string]any{"title": "T", "version": "1", "description": strings.Repeat("d", 60)},
	}, "a.yaml")
	if len(openapi) == 0 || openapi[0].Metadata["doc_kind"] != "openapi" {
		t.Errorf("openapi dispatch failed: %+v", openapi)
	}

	if got := FromYAML(nil, "a.yaml"); got != nil {
		t.Errorf("nil document produced chunks: %v", got)
	}
}
