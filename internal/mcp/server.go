// Package mcp exposes document search and question answering as MCP
// tools over stdio, so editor agents can query a user's documents.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/claro-ai/claro/internal/pipeline"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes document QA tools.
type Server struct {
	pipe *pipeline.Pipeline
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(pipe *pipeline.Pipeline) *Server {
	s := &Server{pipe: pipe}

	s.mcp = server.NewMCPServer(
		"claro",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
