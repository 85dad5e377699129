package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/gateway"
)

// userGroup proxies account management to the downstream gateway service.
// These tools exist for development and testing; production deployments
// should restrict them behind proper authorization.
func userGroup(deps Deps) *group {
	g := newGroup("user")

	client := func(ctx context.Context) *gateway.Client {
		return gateway.NewClient(deps.GatewayURL, AuthHeader(ctx))
	}

	g.add(mcp.NewTool("create_user",
		mcp.WithDescription("Create a new user account (DEV/TEST ONLY)"),
		mcp.WithString("email", mcp.Description("User email address (must be unique)"), mcp.Required()),
		mcp.WithString("firstName", mcp.Description("User first name (optional)")),
		mcp.WithString("lastName", mcp.Description("User last name (optional)")),
		mcp.WithBoolean("isActive", mcp.Description("Whether the user account is active (default: true)")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		email, err := strArg(args, "email")
		if err != nil {
			return nil, err
		}
		return client(ctx).CreateUser(ctx, gateway.CreateUserRequest{
			Email:     email,
			FirstName: optStrArg(args, "firstName"),
			LastName:  optStrArg(args, "lastName"),
			IsActive:  boolArg(args, "isActive", true),
		})
	})

	g.add(mcp.NewTool("get_user",
		mcp.WithDescription("Get user details by ID (DEV/TEST ONLY)"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		id, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return client(ctx).GetUser(ctx, id)
	})

	g.add(mcp.NewTool("get_user_by_email",
		mcp.WithDescription("Get user details by email address (DEV/TEST ONLY)"),
		mcp.WithString("email", mcp.Description("User email address"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		email, err := strArg(args, "email")
		if err != nil {
			return nil, err
		}
		return client(ctx).GetUserByEmail(ctx, email)
	})

	g.add(mcp.NewTool("update_user",
		mcp.WithDescription("Update user information (DEV/TEST ONLY)"),
		mcp.WithString("userId", mcp.Description("The user ID to update"), mcp.Required()),
		mcp.WithString("firstName", mcp.Description("Updated first name (optional)")),
		mcp.WithString("lastName", mcp.Description("Updated last name (optional)")),
		mcp.WithBoolean("isActive", mcp.Description("Updated active status (optional)")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		id, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		var req gateway.UpdateUserRequest
		if v, ok := args["firstName"].(string); ok {
			req.FirstName = &v
		}
		if v, ok := args["lastName"].(string); ok {
			req.LastName = &v
		}
		if v, ok := args["isActive"].(bool); ok {
			req.IsActive = &v
		}
		return client(ctx).UpdateUser(ctx, id, req)
	})

	g.add(mcp.NewTool("deactivate_user",
		mcp.WithDescription("Deactivate a user account (DEV/TEST ONLY)"),
		mcp.WithString("userId", mcp.Description("The user ID to deactivate"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		id, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return client(ctx).DeactivateUser(ctx, id)
	})

	g.add(mcp.NewTool("list_users",
		mcp.WithDescription("List all users (DEV/TEST ONLY)"),
		mcp.WithBoolean("isActive", mcp.Description("Filter by active status (optional)")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		return client(ctx).ListUsers(ctx)
	})

	g.add(mcp.NewTool("record_user_login",
		mcp.WithDescription("Record a login timestamp for a user"),
		mcp.WithString("userId", mcp.Description("The user ID that logged in"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		id, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return client(ctx).RecordUserLogin(ctx, id)
	})

	return g
}
