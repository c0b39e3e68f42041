// Package mcp exposes admind to AI agents over the Model Context Protocol.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/service"
)

// MCPServer wraps the mcp-go server with the admind tool and resource
// registrations. Tools read the configuration store directly, so the server
// runs with the privileges of whoever can start it.
type MCPServer struct {
	store      *config.Store
	privileges *service.PrivilegeCache
	generator  *service.PolicyGenerator
	logger     *slog.Logger
	server     *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all admind tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(store *config.Store, privileges *service.PrivilegeCache, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:      store,
		privileges: privileges,
		generator:  service.NewPolicyGenerator(store),
		logger:     logger,
	}

	mcpServer := server.NewMCPServer(
		"admind",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// admind as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
