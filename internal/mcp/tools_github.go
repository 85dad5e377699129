package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/gateway"
)

func githubGroup(deps Deps) *group {
	g := newGroup("github")

	client := func(ctx context.Context) *gateway.Client {
		return gateway.NewClient(deps.GatewayURL, AuthHeader(ctx))
	}

	g.add(mcp.NewTool("get_github_repo",
		mcp.WithDescription("Get detailed information about a specific GitHub repository"),
		mcp.WithString("owner", mcp.Description("The username or organization that owns the repository"), mcp.Required()),
		mcp.WithString("repo", mcp.Description("The repository name"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "owner")
		if err != nil {
			return nil, err
		}
		repo, err := strArg(args, "repo")
		if err != nil {
			return nil, err
		}
		return client(ctx).GetGitHubRepo(ctx, owner, repo)
	})

	g.add(mcp.NewTool("get_user_repos",
		mcp.WithDescription("Get all repositories for a GitHub user or organization"),
		mcp.WithString("username", mcp.Description("The GitHub username or organization name"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		username, err := strArg(args, "username")
		if err != nil {
			return nil, err
		}
		return client(ctx).GetUserRepos(ctx, username)
	})

	return g
}
