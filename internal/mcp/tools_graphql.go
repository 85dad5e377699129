package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/graphql"
)

// graphqlGroup exposes three generic tools against the downstream GraphQL
// API instead of one tool per operation; callers discover the surface via
// get_schema and compose their own queries.
func graphqlGroup(deps Deps) *group {
	g := newGroup("graphql")

	client := func(ctx context.Context) *graphql.Client {
		return graphql.NewClient(deps.GraphQLURL, AuthHeader(ctx))
	}

	g.add(mcp.NewTool("query_user_context",
		mcp.WithDescription("Execute a GraphQL query to fetch user context data. "+
			"Call get_schema first to discover available queries, arguments, and types. "+
			"Domains: users, preferences, locations, food_preferences."),
		mcp.WithString("query", mcp.Description("The GraphQL query to execute (GraphQL query language syntax)"), mcp.Required()),
		mcp.WithObject("variables", mcp.Description("Optional variables for the GraphQL query")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		query, err := strArg(args, "query")
		if err != nil {
			return nil, err
		}
		if ContainsMutation(query) {
			return nil, apperr.Validation("mutations are not allowed here, use mutate_user_context")
		}
		return client(ctx).Execute(ctx, query, mapArg(args, "variables"))
	})

	g.add(mcp.NewTool("mutate_user_context",
		mcp.WithDescription("Execute a GraphQL mutation to modify user context data. "+
			"Call get_schema first to discover mutations, arguments, and enum values. "+
			"Enums are unquoted identifiers (locationType: home, not \"home\"); "+
			"input objects use braces (coordinates: { lat: 40.7, lng: -74.0 })."),
		mcp.WithString("mutation", mcp.Description("The GraphQL mutation to execute (GraphQL mutation language syntax)"), mcp.Required()),
		mcp.WithObject("variables", mcp.Description("Optional variables for the GraphQL mutation")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		mutation, err := strArg(args, "mutation")
		if err != nil {
			return nil, err
		}
		return client(ctx).Execute(ctx, mutation, mapArg(args, "variables"))
	})

	g.add(mcp.NewTool("get_schema",
		mcp.WithDescription("Get the GraphQL schema via introspection: all queries and mutations with their "+
			"arguments, all types and enums with their values, and field nullability. "+
			"Call this before composing queries or mutations."),
		mcp.WithString("query", mcp.Description("Optional custom introspection query; must target __schema or __type")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		query := optStrArg(args, "query")
		if query == "" {
			query = graphql.IntrospectionQuery
		}
		if err := ValidateIntrospectionQuery(query); err != nil {
			return nil, err
		}
		return client(ctx).Execute(ctx, query, nil)
	})

	return g
}
