package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewStdioServer exposes the same tool catalog over the MCP stdio transport.
// Dispatch goes through Gateway.Call so both transports share one error
// convention.
func NewStdioServer(g *Gateway) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		g.deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("perctx: personal context tools for locations, food preferences, and key-value preferences."),
		server.WithRecovery(),
	)

	for _, tool := range g.Tools() {
		s.AddTool(tool, stdioHandler(g, tool.Name))
	}
	return s
}

func stdioHandler(g *Gateway, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return g.Call(ctx, name, req.GetArguments()), nil
	}
}
