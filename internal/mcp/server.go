// Package mcp exposes chunking tools over the Model Context Protocol.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"repochunk/internal/config"
)

const (
	// ServerName is the MCP server name
	ServerName = "repochunk-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer creates a new MCP server instance. cfg supplies the defaults a
// tool call can override per request.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		cfg:    cfg,
		logger: logger,
	}
	s.registerTools()

	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("MCP server started", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkCodebaseTool(), s.handleChunkCodebase)
	s.mcp.AddTool(scanSourceTool(), s.handleScanSource)
}
