package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
)

var levelEnum = []string{"love", "like", "neutral", "dislike", "hate"}

var preferenceItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"category": map[string]any{
			"type":        "string",
			"description": "Food category",
			"enum":        enumStrings(foodpref.Categories),
		},
		"level": map[string]any{
			"type":        "string",
			"description": "Preference level",
			"enum":        levelEnum,
		},
	},
	"required": []string{"category", "level"},
}

func foodPrefGroup(deps Deps) *group {
	g := newGroup("food_preferences")
	res := deps.Food

	g.add(mcp.NewTool("get_default_food_preferences",
		mcp.WithDescription("Get a user's default food preferences across all categories"),
		mcp.WithString("userId", mcp.Description("The user ID to get food preferences for"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return res.GetDefault(owner)
	})

	g.add(mcp.NewTool("set_default_food_preferences",
		mcp.WithDescription("Replace a user's default food preferences with a new set"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithArray("preferences", mcp.Description("Preference entries, one per category"),
			mcp.Items(preferenceItems), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, prefs, err := ownerAndPreferences(args)
		if err != nil {
			return nil, err
		}
		return res.SetDefault(owner, prefs)
	})

	g.add(mcp.NewTool("update_default_food_preference",
		mcp.WithDescription("Update the preference level for a single food category in the default set"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("category", mcp.Description("Food category to update"),
			mcp.Enum(enumStrings(foodpref.Categories)...), mcp.Required()),
		mcp.WithString("level", mcp.Description("New preference level"),
			mcp.Enum(levelEnum...), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, category, level, err := ownerCategoryLevel(args)
		if err != nil {
			return nil, err
		}
		return res.UpdateDefaultOne(owner, category, level)
	})

	g.add(mcp.NewTool("get_location_food_preferences",
		mcp.WithDescription("Get the food preference overrides stored for a specific location"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndKey(args)
		if err != nil {
			return nil, err
		}
		set, found, err := res.GetLocationOverride(owner, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return map[string]any{"locationKey": key, "hasOverrides": false}, nil
		}
		return map[string]any{"locationKey": key, "hasOverrides": true, "preferences": set.Preferences, "updatedAt": set.UpdatedAt}, nil
	})

	g.add(mcp.NewTool("set_location_food_preferences",
		mcp.WithDescription("Replace the food preference overrides for a specific location"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key (the location must exist)"), mcp.Required()),
		mcp.WithArray("preferences", mcp.Description("Override entries for this location"),
			mcp.Items(preferenceItems), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, prefs, err := ownerAndPreferences(args)
		if err != nil {
			return nil, err
		}
		keyStr, err := strArg(args, "locationKey")
		if err != nil {
			return nil, err
		}
		return res.SetLocationOverride(owner, location.Key(keyStr), prefs)
	})

	g.add(mcp.NewTool("update_location_food_preference",
		mcp.WithDescription("Update the override level for a single food category at a location"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key"), mcp.Required()),
		mcp.WithString("category", mcp.Description("Food category to override"),
			mcp.Enum(enumStrings(foodpref.Categories)...), mcp.Required()),
		mcp.WithString("level", mcp.Description("Override preference level"),
			mcp.Enum(levelEnum...), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, category, level, err := ownerCategoryLevel(args)
		if err != nil {
			return nil, err
		}
		keyStr, err := strArg(args, "locationKey")
		if err != nil {
			return nil, err
		}
		return res.UpdateLocationOverrideOne(owner, location.Key(keyStr), category, level)
	})

	g.add(mcp.NewTool("delete_location_food_preferences",
		mcp.WithDescription("Remove all food preference overrides for a location, reverting it to the default set"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndKey(args)
		if err != nil {
			return nil, err
		}
		if err := res.DeleteLocationOverride(owner, key); err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "locationKey": key}, nil
	})

	g.add(mcp.NewTool("get_effective_food_preferences",
		mcp.WithDescription("Get the effective food preferences for a user at a location: defaults with location overrides applied"),
		mcp.WithString("userId", mcp.Description("The user ID"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("Optional location key; omit for the default set")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return res.GetEffective(owner, location.Key(optStrArg(args, "locationKey")))
	})

	return g
}

func ownerAndPreferences(args map[string]any) (string, []foodpref.Preference, error) {
	owner, err := strArg(args, "userId")
	if err != nil {
		return "", nil, err
	}
	var in struct {
		Preferences []foodpref.Preference `json:"preferences"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", nil, err
	}
	return owner, in.Preferences, nil
}

func ownerCategoryLevel(args map[string]any) (string, foodpref.Category, foodpref.Level, error) {
	owner, err := strArg(args, "userId")
	if err != nil {
		return "", "", "", err
	}
	category, err := strArg(args, "category")
	if err != nil {
		return "", "", "", err
	}
	level, err := strArg(args, "level")
	if err != nil {
		return "", "", "", err
	}
	return owner, foodpref.Category(category), foodpref.Level(level), nil
}
