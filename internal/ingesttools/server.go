// Package ingesttools exposes the same index()/reset() operations the
// admin HTTP surface does, as an MCP tool surface for agent callers.
package ingesttools

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Indexer is the subset of service.Service the MCP tool surface calls.
type Indexer interface {
	Index(ctx context.Context) (string, error)
	Reset(ctx context.Context) error
}

// Server wraps an MCP server exposing index/reset tools.
type Server struct {
	indexer Indexer
	mcp     *server.MCPServer
}

// NewServer creates an MCP server wired to indexer.
func NewServer(indexer Indexer) *Server {
	s := &Server{indexer: indexer}

	s.mcp = server.NewMCPServer(
		"ingestctl",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexTool, s.handleIndex)
	s.mcp.AddTool(resetTool, s.handleReset)
}

// Serve starts the MCP server on stdio. Stdout is reserved for MCP
// protocol messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
