// Package server exposes the MiniSafe view layer as MCP tools, so agents can
// read balances, save, withdraw and manage merchants through the same
// controller the other surfaces use.
package server

import (
	"context"
	"net/http"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mark3labs/minisafe-go/view"
)

// Server wraps an MCP server whose tools drive a view controller
type Server struct {
	mcpServer  *mcpserver.MCPServer
	controller *view.Controller
	config     *Config
	tools      []string
}

// NewServer creates an MCP server and registers the MiniSafe tools
func NewServer(controller *view.Controller, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	s := &Server{
		mcpServer:  mcpserver.NewMCPServer(config.Name, config.Version, mcpserver.WithToolCapabilities(false)),
		controller: controller,
		config:     config,
	}

	for _, t := range s.toolset() {
		if t.mutating && config.ReadOnly {
			continue
		}
		s.addTool(t.tool, t.handler)
	}
	return s
}

func (s *Server) addTool(tool mcpproto.Tool, handler mcpserver.ToolHandlerFunc) {
	s.tools = append(s.tools, tool.Name)
	s.mcpServer.AddTool(tool, func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		s.config.Logger.Info("tool called", "tool", tool.Name)
		return handler(ctx, req)
	})
}

// Tools returns the names of the registered tools in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Handler returns a streamable HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

// Start serves MCP over streamable HTTP on the given address
func (s *Server) Start(addr string) error {
	s.config.Logger.Info("starting MCP server", "addr", addr, "tools", len(s.tools), "read_only", s.config.ReadOnly)
	return http.ListenAndServe(addr, s.Handler())
}

// ServeStdio serves MCP over stdin and stdout until the input closes
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for advanced usage)
func (s *Server) GetMCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
