package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/seen-labs/seen/internal/blobstore"
	"github.com/seen-labs/seen/internal/config"
	"github.com/seen-labs/seen/internal/ingest"
	"github.com/seen-labs/seen/internal/search"
	"github.com/seen-labs/seen/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "seen"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the archive's orchestrators. Every tool
// call passes the caller allow-list check before any orchestrator runs.
type Server struct {
	mcp    *server.MCPServer
	cfg    *config.Config
	ingest *ingest.Orchestrator
	search *search.Orchestrator
	links  *store.Store
	blobs  *blobstore.Store
	log    *logrus.Logger
}

// NewServer creates the MCP front-end over already-wired components.
func NewServer(cfg *config.Config, ing *ingest.Orchestrator, srch *search.Orchestrator, links *store.Store, blobs *blobstore.Store, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		cfg:    cfg,
		ingest: ing,
		search: srch,
		links:  links,
		blobs:  blobs,
		log:    log,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(saveLinkTool(), s.handleSaveLink)
	s.mcp.AddTool(searchLinksTool(), s.handleSearchLinks)
	s.mcp.AddTool(listLinksTool(), s.handleListLinks)
	s.mcp.AddTool(getLinkTool(), s.handleGetLink)
	s.mcp.AddTool(deleteLinkTool(), s.handleDeleteLink)
}
