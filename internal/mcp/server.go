// Package mcp exposes the documentation index over the Model Context
// Protocol. Four tools are served: authenticate, search_api_docs,
// load_documentation and get_collection_info. Identity is tracked per
// MCP session; every tool except authenticate requires a prior
// successful authenticate call on the same session.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docload"
	"github.com/docdex/docdex/internal/log"
)

// ErrNotAuthenticated indicates a tool call on a session that has not
// completed authenticate.
var ErrNotAuthenticated = errors.New("not authenticated")

// Server wraps the MCP SDK server with the documentation index's
// tools. Safe for concurrent sessions; identities live in a per-server
// session map.
type Server struct {
	mcpServer *mcp.Server
	guard     *auth.Guard
	registry  *auth.Registry
	loader    *docload.Loader
	crawler   config.CrawlerConfig
	logger    log.Logger

	// sessions maps *mcp.ServerSession to auth.Identity.
	sessions sync.Map
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Crawler config.CrawlerConfig
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg Config, guard *auth.Guard, registry *auth.Registry, loader *docload.Loader, logger log.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if guard == nil || registry == nil || loader == nil {
		return nil, fmt.Errorf("guard, registry and loader are required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		guard:    guard,
		registry: registry,
		loader:   loader,
		crawler:  cfg.Crawler,
		logger:   logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run serves MCP on the given transport. Blocks until the transport
// closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerAuthenticate(); err != nil {
		return fmt.Errorf("registering authenticate: %w", err)
	}
	if err := s.registerSearch(); err != nil {
		return fmt.Errorf("registering search_api_docs: %w", err)
	}
	if err := s.registerLoad(); err != nil {
		return fmt.Errorf("registering load_documentation: %w", err)
	}
	if err := s.registerInfo(); err != nil {
		return fmt.Errorf("registering get_collection_info: %w", err)
	}
	return nil
}

// identity returns the authenticated identity for the request's
// session.
func (s *Server) identity(req *mcp.CallToolRequest) (auth.Identity, error) {
	val, ok := s.sessions.Load(req.Session)
	if !ok {
		return auth.Identity{}, ErrNotAuthenticated
	}
	id, ok := val.(auth.Identity)
	if !ok {
		return auth.Identity{}, ErrNotAuthenticated
	}
	return id, nil
}

func schemaFor[T any]() (*jsonschema.Schema, error) {
	return jsonschema.For[T](nil)
}
