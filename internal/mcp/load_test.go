package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docload"
	"github.com/docdex/docdex/internal/log"
	"github.com/docdex/docdex/internal/security"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/testutil"
)

func loadTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	m := store.NewMemory("docs", &testutil.Embedder{}, 100)
	registry := auth.NewRegistry(t.TempDir()+"/credentials.json", nil)
	loader := docload.NewLoader(
		config.CrawlerConfig{MaxDepth: 2, TimeoutMs: 5000},
		security.NewURLAllowLoopback(),
		log.NewNop(),
	)

	s, err := NewServer(Config{
		Name:    "docdex",
		Version: "test",
		Crawler: config.CrawlerConfig{MaxDepth: 2},
	}, auth.NewGuard(m, nil), registry, loader, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, m
}

func adminIdentity() auth.Identity {
	return auth.Identity{
		CredentialID: "cred-admin",
		OrgID:        "acme",
		Permissions:  []auth.Permission{auth.PermRead, auth.PermWrite, auth.PermAdmin},
	}
}

func resultText(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return text.Text
}

func TestLoadDocumentation(t *testing.T) {
	s, m := loadTestServer(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body>
<h1>Overview</h1>
<p>The API exposes endpoints for orders, payments and refunds with token auth.</p>
</body></html>`))
	}))
	defer srv.Close()

	res := s.loadDocumentation(context.Background(), adminIdentity(), LoadInput{URL: srv.URL + "/"})
	if res.IsError {
		t.Fatalf("load failed: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.HasPrefix(text, "Successfully loaded ") {
		t.Errorf("result text = %q", text)
	}

	info, err := m.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Documents == 0 {
		t.Error("no documents indexed")
	}
}

// Chunks produced before a cancellation are still indexed; the cancelled
// crawl context must not abort the embed and store round trip.
func TestLoadDocumentationIndexesPartialOnCancel(t *testing.T) {
	s, m := loadTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body>
<h1>Getting started</h1>
<p>The first crawled page carries enough prose to produce at least one chunk.</p>
<a href="/never">More</a>
</body></html>`))
		cancel()
	}))
	defer srv.Close()

	res := s.loadDocumentation(ctx, adminIdentity(), LoadInput{URL: srv.URL + "/"})
	if res.IsError {
		t.Fatalf("partial load reported as error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "before the crawl was cancelled") {
		t.Errorf("result text = %q", text)
	}

	info, err := m.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Documents == 0 {
		t.Error("partial chunks were not indexed")
	}
}

func TestLoadDocumentationRequiresAdmin(t *testing.T) {
	s, m := loadTestServer(t)

	writer := auth.Identity{
		CredentialID: "cred-writer",
		OrgID:        "acme",
		Permissions:  []auth.Permission{auth.PermRead, auth.PermWrite},
	}
	res := s.loadDocumentation(context.Background(), writer, LoadInput{URL: "https://docs.example.com"})
	if !res.IsError {
		t.Fatal("non-admin load accepted")
	}
	if text := resultText(t, res); !strings.HasPrefix(text, "Security error: admin permission required") {
		t.Errorf("result text = %q", text)
	}

	info, _ := m.Info(context.Background())
	if info.Documents != 0 {
		t.Errorf("documents indexed despite denial: %d", info.Documents)
	}
}

func TestLoadDocumentationRequiresURL(t *testing.T) {
	s, _ := loadTestServer(t)
	res := s.loadDocumentation(context.Background(), adminIdentity(), LoadInput{})
	if !res.IsError || resultText(t, res) != "Error: url parameter is required" {
		t.Errorf("result = %+v", res)
	}
}

func TestAuthenticatedMessage(t *testing.T) {
	got := authenticatedMessage(auth.Identity{
		CredentialID: "0b6f3c1e",
		OrgID:        "acme",
		Permissions:  []auth.Permission{auth.PermRead, auth.PermWrite},
	})
	want := "Authenticated as credential 0b6f3c1e for organization 'acme' with permissions: read, write"
	if got != want {
		t.Errorf("authenticatedMessage = %q, want %q", got, want)
	}
}
