package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docload"
	"github.com/docdex/docdex/internal/ingest"
	"github.com/docdex/docdex/internal/store"
)

const defaultSearchLimit = 5

// AuthenticateInput is the input schema for the authenticate tool.
type AuthenticateInput struct {
	APIKey string `json:"api_key" jsonschema:"API key issued for your organization"`
}

// SearchInput is the input schema for the search_api_docs tool.
type SearchInput struct {
	Query   string            `json:"query" jsonschema:"Search query in natural language (e.g. 'authentication methods', 'error handling')"`
	Limit   int               `json:"limit,omitempty" jsonschema:"Maximum number of results to return (default: 5)"`
	Filters map[string]string `json:"filters,omitempty" jsonschema:"Optional metadata filters, matched exactly (e.g. {\"section\": \"authentication\"})"`
}

// LoadInput is the input schema for the load_documentation tool.
type LoadInput struct {
	URL      string `json:"url" jsonschema:"URL to load documentation from"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"Maximum crawling depth for linked pages (default: 2)"`
}

// InfoInput is the input schema for the get_collection_info tool.
type InfoInput struct{}

func (s *Server) registerAuthenticate() error {
	schema, err := schemaFor[AuthenticateInput]()
	if err != nil {
		return err
	}
	tool := &mcp.Tool{
		Name:        "authenticate",
		Description: "Authenticate this session with an API key. Required before any other tool can be used.",
		InputSchema: schema,
	}
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in AuthenticateInput) (*mcp.CallToolResult, any, error) {
		if in.APIKey == "" {
			return errorResult("Error: api_key parameter is required"), nil, nil
		}

		id, err := s.registry.Authenticate(in.APIKey)
		if err != nil {
			s.logger.Warn("authentication failed", "error", err)
			return errorResult(s.clientMessage(err)), nil, nil
		}

		s.sessions.Store(req.Session, id)
		s.logger.Info("session authenticated", "credential_id", id.CredentialID, "org_id", id.OrgID)

		return textResult(authenticatedMessage(id)), nil, nil
	})
	return nil
}

func authenticatedMessage(id auth.Identity) string {
	perms := make([]string, len(id.Permissions))
	for i, p := range id.Permissions {
		perms[i] = string(p)
	}
	return fmt.Sprintf("Authenticated as credential %s for organization '%s' with permissions: %s",
		id.CredentialID, id.OrgID, strings.Join(perms, ", "))
}

func (s *Server) registerSearch() error {
	schema, err := schemaFor[SearchInput]()
	if err != nil {
		return err
	}
	tool := &mcp.Tool{
		Name:        "search_api_docs",
		Description: "Search through API documentation using semantic similarity. Use this when you need to find relevant documentation, code examples, or API usage patterns.",
		InputSchema: schema,
	}
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
		id, err := s.identity(req)
		if err != nil {
			return errorResult(s.clientMessage(err)), nil, nil
		}
		if in.Query == "" {
			return errorResult("Error: query parameter is required"), nil, nil
		}
		limit := in.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}

		results, err := s.guard.Search(ctx, id, in.Query, limit, in.Filters)
		if err != nil {
			s.logger.Error("search failed", "org_id", id.OrgID, "error", err)
			return errorResult(s.clientMessage(err)), nil, nil
		}
		if len(results) == 0 {
			return textResult(fmt.Sprintf("No relevant documentation found for query: '%s'", in.Query)), nil, nil
		}
		return textResult(formatSearchResults(in.Query, results)), nil, nil
	})
	return nil
}

func (s *Server) registerLoad() error {
	schema, err := schemaFor[LoadInput]()
	if err != nil {
		return err
	}
	tool := &mcp.Tool{
		Name:        "load_documentation",
		Description: "Load API documentation from a URL into the vector store. Crawls same-origin linked pages. Requires admin permission.",
		InputSchema: schema,
	}
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in LoadInput) (*mcp.CallToolResult, any, error) {
		id, err := s.identity(req)
		if err != nil {
			return errorResult(s.clientMessage(err)), nil, nil
		}
		return s.loadDocumentation(ctx, id, in), nil, nil
	})
	return nil
}

func (s *Server) loadDocumentation(ctx context.Context, id auth.Identity, in LoadInput) *mcp.CallToolResult {
	if !id.Has(auth.PermAdmin) {
		s.logger.Warn("load denied", "credential_id", id.CredentialID, "org_id", id.OrgID)
		return errorResult("Security error: admin permission required to load documentation")
	}
	if in.URL == "" {
		return errorResult("Error: url parameter is required")
	}

	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.crawler.MaxDepth
	}
	maxDepth = min(maxDepth, config.MaxAllowedCrawlDepth)

	chunks, loadErr := s.loader.LoadURL(ctx, in.URL, maxDepth)
	cancelled := loadErr != nil && errors.Is(loadErr, context.Canceled)
	if loadErr != nil && !cancelled {
		s.logger.Error("load failed", "url", in.URL, "error", loadErr)
		return errorResult(s.clientMessage(loadErr))
	}
	if len(chunks) == 0 {
		return textResult(fmt.Sprintf("No content could be extracted from: %s", in.URL))
	}

	// A cancelled crawl still indexes what it produced; the cancelled
	// context would abort the embed/store round trip, so indexing runs
	// detached from it.
	indexCtx := ctx
	if cancelled {
		indexCtx = context.WithoutCancel(ctx)
	}
	if err := s.guard.Add(indexCtx, id, ingest.Documents(chunks)); err != nil {
		s.logger.Error("indexing failed", "url", in.URL, "error", err)
		return errorResult(s.clientMessage(err))
	}

	if cancelled {
		return textResult(fmt.Sprintf("Loaded %d documentation chunks from %s before the crawl was cancelled", len(chunks), in.URL))
	}
	return textResult(fmt.Sprintf("Successfully loaded %d documentation chunks from %s", len(chunks), in.URL))
}

func (s *Server) registerInfo() error {
	schema, err := schemaFor[InfoInput]()
	if err != nil {
		return err
	}
	tool := &mcp.Tool{
		Name:        "get_collection_info",
		Description: "Get information about the current documentation collection.",
		InputSchema: schema,
	}
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in InfoInput) (*mcp.CallToolResult, any, error) {
		id, err := s.identity(req)
		if err != nil {
			return errorResult(s.clientMessage(err)), nil, nil
		}

		info, err := s.guard.Info(ctx, id)
		if err != nil {
			s.logger.Error("collection info failed", "org_id", id.OrgID, "error", err)
			return errorResult(s.clientMessage(err)), nil, nil
		}
		return textResult(formatInfo(info)), nil, nil
	})
	return nil
}

func formatSearchResults(query string, results []store.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant documentation sections for: '%s'\n", len(results), query)
	for i, result := range results {
		fmt.Fprintf(&b, "\n## Result %d (Score: %.3f)\n", i+1, result.Score)
		fmt.Fprintf(&b, "**Title:** %s\n", metaOr(result.Metadata, "title", "Unknown"))
		fmt.Fprintf(&b, "**Section:** %s\n", metaOr(result.Metadata, "section", "main"))
		fmt.Fprintf(&b, "**URL:** %s\n", metaOr(result.Metadata, "url", "Unknown"))
		fmt.Fprintf(&b, "**Content:**\n%s\n", result.Content)
	}
	return b.String()
}

func formatInfo(info store.Info) string {
	var b strings.Builder
	b.WriteString("## Documentation Collection Information\n")
	fmt.Fprintf(&b, "**Collection Name:** %s\n", info.Collection)
	fmt.Fprintf(&b, "**Document Count:** %d\n", info.Documents)
	fmt.Fprintf(&b, "**Vector Store Type:** %s\n", info.Backend)
	fmt.Fprintf(&b, "**Embedding Dimensions:** %d\n", info.Dimensions)
	return b.String()
}

func metaOr(metadata map[string]string, key, fallback string) string {
	if v, ok := metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}

// clientMessage maps an internal error to the text shown to the MCP
// client. Security failures carry a "Security error:" prefix; backend
// details never leak.
func (s *Server) clientMessage(err error) string {
	var fetchErr *docload.FetchError
	var batchErr *store.BatchError

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "Security error: not authenticated. Call the authenticate tool first."
	case errors.Is(err, auth.ErrCredentialExpired):
		return "Security error: credential has expired"
	case errors.Is(err, auth.ErrCredentialDeactivated):
		return "Security error: credential has been deactivated"
	case errors.Is(err, auth.ErrCredentialInvalid):
		return "Security error: invalid credentials"
	case errors.Is(err, auth.ErrPermissionDenied):
		return "Security error: permission denied"
	case errors.Is(err, docload.ErrUnsafeURL):
		return "Security error: URL is not allowed"
	case errors.As(err, &batchErr):
		return fmt.Sprintf("Error: indexing failed after %d chunks were stored; retry to finish", batchErr.Committed)
	case errors.Is(err, store.ErrCollectionNotFound):
		return "Error: documentation collection does not exist yet"
	case errors.Is(err, store.ErrTimeout):
		return "Error: the operation timed out, please try again"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "Error: the vector store is unavailable, please try again later"
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Error loading documentation from %s: %s", fetchErr.URL, fetchErr.Error())
	default:
		return "Error: internal error"
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
