package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/apperr"
)

func preferenceGroup(deps Deps) *group {
	g := newGroup("preference")
	svc := deps.Prefs

	g.add(mcp.NewTool("get_user_preferences",
		mcp.WithDescription("Get all preferences for a specific user"),
		mcp.WithString("userId", mcp.Description("The user ID to get preferences for"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return svc.List(owner)
	})

	g.add(mcp.NewTool("get_preference",
		mcp.WithDescription("Get a specific preference value for a user"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("key", mcp.Description("The preference key to retrieve"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndPlainKey(args)
		if err != nil {
			return nil, err
		}
		return svc.Get(owner, key)
	})

	g.add(mcp.NewTool("set_preference",
		mcp.WithDescription("Set or update a preference for a user"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("key", mcp.Description("The preference key"), mcp.Required()),
		mcp.WithObject("value", mcp.Description("The preference value (string, number, boolean, array, or object)")),
		mcp.WithString("type", mcp.Description("The type of the preference value"),
			mcp.Enum("string", "number", "boolean", "array", "object")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndPlainKey(args)
		if err != nil {
			return nil, err
		}
		data, err := rawValue(args)
		if err != nil {
			return nil, err
		}
		return svc.Create(owner, key, data, optStrArg(args, "type"))
	})

	g.add(mcp.NewTool("update_preference",
		mcp.WithDescription("Update an existing preference for a user"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("key", mcp.Description("The preference key to update"), mcp.Required()),
		mcp.WithObject("value", mcp.Description("The new preference value")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndPlainKey(args)
		if err != nil {
			return nil, err
		}
		data, err := rawValue(args)
		if err != nil {
			return nil, err
		}
		return svc.Update(owner, key, data)
	})

	g.add(mcp.NewTool("delete_preference",
		mcp.WithDescription("Delete a preference for a user"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("key", mcp.Description("The preference key to delete"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndPlainKey(args)
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(owner, key); err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "key": key}, nil
	})

	g.add(mcp.NewTool("list_preference_keys",
		mcp.WithDescription("List all preference keys for a user (returns just the keys)"),
		mcp.WithString("userId", mcp.Description("The user ID to list preference keys for"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		keys, err := svc.ListKeys(owner)
		if err != nil {
			return nil, err
		}
		return map[string]any{"userId": owner, "keys": keys, "count": len(keys)}, nil
	})

	return g
}

func ownerAndPlainKey(args map[string]any) (string, string, error) {
	owner, err := strArg(args, "userId")
	if err != nil {
		return "", "", err
	}
	key, err := strArg(args, "key")
	if err != nil {
		return "", "", err
	}
	return owner, key, nil
}

// rawValue re-serializes the "value" argument so any JSON shape survives the
// trip into the store unmodified.
func rawValue(args map[string]any) (json.RawMessage, error) {
	v, ok := args["value"]
	if !ok {
		return nil, apperr.Validation("value is required")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Validation("value is not serializable: %v", err)
	}
	return raw, nil
}
