package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/manualcore/internal/adaptivestats"
	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/coreports"
	"github.com/dshills/manualcore/internal/docstore"
	"github.com/dshills/manualcore/internal/pipeline"
)

const (
	// ServerName is the MCP server name
	ServerName = "manualcore"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the retrieval pipeline.
type Server struct {
	mcp      *server.MCPServer
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// NewServer creates a new MCP server instance rooted at cfg.ManualsRoot.
func NewServer(cfg config.Config) (*Server, error) {
	provider := docstore.NewFilesystem(cfg.ManualsRoot)
	stats := adaptivestats.New(cfg.AdaptiveStatsPath)

	core := pipeline.New(cfg, provider, coreports.SystemClock{}, nil, stats)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		pipeline: core,
		log:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.pipeline.Close()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(manualFindTool(), s.handleManualFind)
	s.mcp.AddTool(manualHitsTool(), s.handleManualHits)
	s.mcp.AddTool(manualInvalidateTool(), s.handleManualInvalidate)
}
