package chunk

import (
	"strings"
	"testing"
)

// paymentsSpec is a small OpenAPI document with four operations across
// three paths, one schema and one security scheme.
func paymentsSpec() map[string]any {
	return map[string]any{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":       "Payments API",
			"version":     "2.1.0",
			"description": "Process card payments and refunds.",
		},
		"servers": []any{
			map[string]any{"url": "https://api.example.com/v2", "description": "Production"},
		},
		"paths": map[string]any{
			"/payments": map[string]any{
				"get": map[string]any{
					"summary":     "List payments",
					"operationId": "listPayments",
				},
				"post": map[string]any{
					"summary":     "Create a payment",
					"description": "Creates a new card payment and returns its status.",
					"operationId": "createPayment",
					"requestBody": map[string]any{
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/Payment"},
							},
						},
					},
					"responses": map[string]any{
						"201": map[string]any{"description": "Payment created"},
					},
				},
			},
			"/payments/{id}": map[string]any{
				"get": map[string]any{
					"summary":     "Get a payment",
					"operationId": "getPayment",
					"parameters": []any{
						map[string]any{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]any{"type": "string"},
						},
					},
				},
			},
			"/refunds": map[string]any{
				"post": map[string]any{
					"summary":     "Create a refund",
					"operationId": "createRefund",
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Payment": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"amount":   map[string]any{"type": "integer", "description": "Amount in cents"},
						"currency": map[string]any{"type": "string"},
					},
					"required": []any{"amount", "currency"},
				},
			},
			"securitySchemes": map[string]any{
				"oauth": map[string]any{
					"type":        "oauth2",
					"description": "OAuth2 client credentials flow.",
					"flows": map[string]any{
						"clientCredentials": map[string]any{
							"tokenUrl": "https://auth.example.com/token",
						},
					},
				},
			},
		},
	}
}

func TestFromOpenAPI(t *testing.T) {
	chunks := FromOpenAPI(paymentsSpec(), "specs/payments.yaml")

	t.Run("one endpoint chunk per operation", func(t *testing.T) {
		var endpoints int
		for _, c := range chunks {
			if c.Section == SectionEndpoint {
				endpoints++
			}
		}
		if endpoints != 4 {
			t.Errorf("endpoint chunks = %d, want 4", endpoints)
		}
	})

	t.Run("overview carries api metadata", func(t *testing.T) {
		overview := findSection(t, chunks, SectionOverview)
		if overview.Title != "Payments API" {
			t.Errorf("title = %q, want %q", overview.Title, "Payments API")
		}
		if got := overview.Metadata["api_version"]; got != "2.1.0" {
			t.Errorf("api_version = %q, want %q", got, "2.1.0")
		}
		if !strings.Contains(overview.Content, "Process card payments") {
			t.Errorf("overview content missing description:\n%s", overview.Content)
		}
	})

	t.Run("endpoint chunk content and metadata", func(t *testing.T) {
		var post *Chunk
		for i := range chunks {
			if chunks[i].Metadata["operation_id"] == "createPayment" {
				post = &chunks[i]
				break
			}
		}
		if post == nil {
			t.Fatal("no chunk for createPayment")
		}
		if post.Metadata["http_method"] != "POST" || post.Metadata["endpoint_path"] != "/payments" {
			t.Errorf("metadata = %v", post.Metadata)
		}
		for _, want := range []string{"# POST /payments", "Create a payment", "Content-Type:** application/json", "Schema:** Payment", "### 201"} {
			if !strings.Contains(post.Content, want) {
				t.Errorf("content missing %q:\n%s", want, post.Content)
			}
		}
	})

	t.Run("schema chunk", func(t *testing.T) {
		schema := findSection(t, chunks, SectionSchema)
		if schema.Metadata["schema_name"] != "Payment" {
			t.Errorf("schema_name = %q", schema.Metadata["schema_name"])
		}
		for _, want := range []string{"# Schema: Payment", "**amount** (integer)", "Required fields:** amount, currency"} {
			if !strings.Contains(schema.Content, want) {
				t.Errorf("content missing %q:\n%s", want, schema.Content)
			}
		}
	})

	t.Run("security scheme chunk", func(t *testing.T) {
		sec := findSection(t, chunks, SectionSecurity)
		if sec.Metadata["security_type"] != "oauth2" {
			t.Errorf("security_type = %q", sec.Metadata["security_type"])
		}
		if !strings.Contains(sec.Content, "OAuth2 Flows:") {
			t.Errorf("content missing flows:\n%s", sec.Content)
		}
	})

	t.Run("every chunk has content and id", func(t *testing.T) {
		for _, c := range chunks {
			if strings.TrimSpace(c.Content) == "" {
				t.Errorf("empty chunk %s in section %s", c.ID, c.Section)
			}
			if !strings.HasPrefix(c.ID, "chunk_") {
				t.Errorf("bad ID %q", c.ID)
			}
		}
	})
}

// Re-chunking an unchanged spec must reproduce the same IDs so upserts
// overwrite instead of duplicating.
func TestFromOpenAPIStableIDs(t *testing.T) {
	first := FromOpenAPI(paymentsSpec(), "specs/payments.yaml")
	second := FromOpenAPI(paymentsSpec(), "specs/payments.yaml")

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID changed: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func findSection(t *testing.T, chunks []Chunk, section string) Chunk {
	t.Helper()
	for _, c := range chunks {
		if c.Section == section {
			return c
		}
	}
	t.Fatalf("no chunk in section %s", section)
	return Chunk{}
}
