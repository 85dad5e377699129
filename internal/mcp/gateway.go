// Package mcp exposes the platform as MCP tools: a JSON-RPC-over-HTTP
// endpoint plus a stdio transport, dispatching a fixed tool catalog to the
// in-process services and to downstream gateway clients built per call from
// the caller's forwarded credentials.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/preference"
)

// ServerName identifies the MCP server to clients.
const ServerName = "perctx"

// ToolHandler executes one tool call. The returned value is JSON-serialized
// into the tool result's text content; a returned error becomes in-band
// isError content, never a protocol fault.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// group is one catalog of related tools with their handlers.
type group struct {
	name     string
	tools    []mcp.Tool
	handlers map[string]ToolHandler
}

func newGroup(name string) *group {
	return &group{name: name, handlers: make(map[string]ToolHandler)}
}

func (g *group) add(tool mcp.Tool, h ToolHandler) {
	g.tools = append(g.tools, tool)
	g.handlers[tool.Name] = h
}

// Deps wires the gateway to the in-process services and the downstream
// endpoints.
type Deps struct {
	Locations  *location.Registry
	Food       *foodpref.Resolver
	Prefs      *preference.Service
	GatewayURL string
	GraphQLURL string
	Version    string
}

// Gateway is the tool-dispatch layer. The name-to-handler map is computed
// once from the static catalogs at construction; there is no prefix matching
// at call time, so tool names cannot collide across groups by ordering
// accident.
type Gateway struct {
	deps     Deps
	tools    []mcp.Tool
	handlers map[string]ToolHandler
}

func NewGateway(deps Deps) (*Gateway, error) {
	g := &Gateway{
		deps:     deps,
		handlers: make(map[string]ToolHandler),
	}

	groups := []*group{
		locationGroup(deps),
		foodPrefGroup(deps),
		preferenceGroup(deps),
		userGroup(deps),
		githubGroup(deps),
		graphqlGroup(deps),
	}
	for _, grp := range groups {
		for _, tool := range grp.tools {
			if _, dup := g.handlers[tool.Name]; dup {
				return nil, fmt.Errorf("duplicate tool name %q in group %s", tool.Name, grp.name)
			}
			g.handlers[tool.Name] = grp.handlers[tool.Name]
			g.tools = append(g.tools, tool)
		}
	}
	return g, nil
}

// Tools returns the full static catalog in registration order.
func (g *Gateway) Tools() []mcp.Tool {
	return g.tools
}

// Call invokes a tool by name and wraps the outcome in the uniform tool
// envelope. Business errors, including an unknown tool name, come back as
// isError content carrying the message, the tool name, and the original
// arguments; the calling agent reasons about failures as data, not as
// transport faults.
func (g *Gateway) Call(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	handler, ok := g.handlers[name]
	if !ok {
		return toolError(fmt.Sprintf("unknown tool: %s", name), name, args)
	}

	result, err := handler(ctx, args)
	if err != nil {
		return toolError(err.Error(), name, args)
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("serializing result: %v", err), name, args)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(text)}},
	}
}

func toolError(message, tool string, args map[string]any) *mcp.CallToolResult {
	payload, err := json.MarshalIndent(map[string]any{
		"error":     message,
		"tool":      tool,
		"arguments": args,
	}, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": %q, "tool": %q}`, message, tool))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

// authHeaderKey carries the caller's forwarded Authorization value through
// the per-call context.
type authHeaderKey struct{}

// WithAuthHeader stores the forwarded Authorization header on the context.
func WithAuthHeader(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	return context.WithValue(ctx, authHeaderKey{}, header)
}

// AuthHeader returns the forwarded Authorization header, "" if none.
func AuthHeader(ctx context.Context) string {
	v, _ := ctx.Value(authHeaderKey{}).(string)
	return v
}
