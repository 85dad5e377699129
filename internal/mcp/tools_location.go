package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/location"
)

var coordinatesProps = map[string]any{
	"lat": map[string]any{
		"type":        "number",
		"description": "Latitude coordinate",
		"minimum":     -90,
		"maximum":     90,
	},
	"lng": map[string]any{
		"type":        "number",
		"description": "Longitude coordinate",
		"minimum":     -180,
		"maximum":     180,
	},
}

var categoryEnum = []string{"residence", "workplace", "fitness", "education", "social", "travel", "other"}

var featureItems = map[string]any{
	"type": "string",
	"enum": []string{"food_preferences", "delivery_support", "scheduling", "budget_tracking", "restaurant_favorites", "quick_access"},
}

func locationGroup(deps Deps) *group {
	g := newGroup("location")
	reg := deps.Locations

	g.add(mcp.NewTool("get_user_locations",
		mcp.WithDescription("Get all locations for a specific user, with optional filtering by type"),
		mcp.WithString("userId", mcp.Description("The user ID to get locations for"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Filter by location type: system, custom, or all"),
			mcp.Enum("system", "custom", "all")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		switch optStrArg(args, "type") {
		case "system":
			return reg.ListSystem(owner)
		case "custom":
			return reg.ListCustom(owner)
		default:
			return reg.ListAll(owner)
		}
	})

	g.add(mcp.NewTool("get_location",
		mcp.WithDescription("Get a specific location by its key"),
		mcp.WithString("userId", mcp.Description("The user ID who owns the location"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key (e.g. home, work, user_defined.moms_house)"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndKey(args)
		if err != nil {
			return nil, err
		}
		return reg.Get(owner, key)
	})

	g.add(mcp.NewTool("create_system_location",
		mcp.WithDescription("Create a system location (home, work, gym, school)"),
		mcp.WithString("userId", mcp.Description("The user ID to create the location for"), mcp.Required()),
		mcp.WithString("locationType", mcp.Description("The type of system location to create"),
			mcp.Enum(enumStrings(location.SystemTypes)...), mcp.Required()),
		mcp.WithString("address", mcp.Description("The full address of the location"), mcp.Required()),
		mcp.WithObject("coordinates", mcp.Description("Geographic coordinates"),
			mcp.Properties(coordinatesProps), mcp.Required()),
		mcp.WithString("nickname", mcp.Description("Optional custom nickname for the location")),
		mcp.WithString("notes", mcp.Description("Optional notes about the location")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		var in struct {
			LocationType string               `json:"locationType"`
			Address      string               `json:"address"`
			Coordinates  location.Coordinates `json:"coordinates"`
			Nickname     string               `json:"nickname"`
			Notes        string               `json:"notes"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return reg.CreateSystem(owner, location.CreateSystemInput{
			Type:        location.SystemType(in.LocationType),
			Address:     in.Address,
			Coordinates: in.Coordinates,
			Nickname:    in.Nickname,
			Notes:       in.Notes,
		})
	})

	g.add(mcp.NewTool("create_custom_location",
		mcp.WithDescription("Create a user-defined custom location"),
		mcp.WithString("userId", mcp.Description("The user ID to create the location for"), mcp.Required()),
		mcp.WithString("locationName", mcp.Description("Unique name for this custom location (e.g. moms_house, vacation_home)"), mcp.Required()),
		mcp.WithString("address", mcp.Description("The full address of the location"), mcp.Required()),
		mcp.WithObject("coordinates", mcp.Description("Geographic coordinates"),
			mcp.Properties(coordinatesProps), mcp.Required()),
		mcp.WithString("nickname", mcp.Description("Display name for the location"), mcp.Required()),
		mcp.WithString("category", mcp.Description("Location category"),
			mcp.Enum(categoryEnum...), mcp.Required()),
		mcp.WithArray("features", mcp.Description("Features available at this location"),
			mcp.Items(featureItems), mcp.Required()),
		mcp.WithString("parentCategory", mcp.Description("Optional parent category for inheritance"),
			mcp.Enum(categoryEnum...)),
		mcp.WithString("notes", mcp.Description("Optional notes about the location")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		var in struct {
			LocationName   string               `json:"locationName"`
			Address        string               `json:"address"`
			Coordinates    location.Coordinates `json:"coordinates"`
			Nickname       string               `json:"nickname"`
			Category       string               `json:"category"`
			Features       []location.Feature   `json:"features"`
			ParentCategory string               `json:"parentCategory"`
			Notes          string               `json:"notes"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return reg.CreateCustom(owner, location.CreateCustomInput{
			Name:           in.LocationName,
			Address:        in.Address,
			Coordinates:    in.Coordinates,
			Nickname:       in.Nickname,
			Category:       location.Category(in.Category),
			Features:       in.Features,
			ParentCategory: location.Category(in.ParentCategory),
			Notes:          in.Notes,
		})
	})

	g.add(mcp.NewTool("update_location",
		mcp.WithDescription("Update an existing location"),
		mcp.WithString("userId", mcp.Description("The user ID who owns the location"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key to update"), mcp.Required()),
		mcp.WithString("address", mcp.Description("Updated address")),
		mcp.WithObject("coordinates", mcp.Description("Updated coordinates"),
			mcp.Properties(coordinatesProps)),
		mcp.WithString("nickname", mcp.Description("Updated nickname")),
		mcp.WithString("category", mcp.Description("Updated category"), mcp.Enum(categoryEnum...)),
		mcp.WithArray("features", mcp.Description("Updated feature list"), mcp.Items(featureItems)),
		mcp.WithString("notes", mcp.Description("Updated notes")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndKey(args)
		if err != nil {
			return nil, err
		}
		in, err := updateInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		return reg.Update(owner, key, in)
	})

	g.add(mcp.NewTool("delete_location",
		mcp.WithDescription("Delete a location"),
		mcp.WithString("userId", mcp.Description("The user ID who owns the location"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key to delete"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndKey(args)
		if err != nil {
			return nil, err
		}
		if err := reg.Delete(owner, key); err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "locationKey": key}, nil
	})

	g.add(mcp.NewTool("get_available_system_locations",
		mcp.WithDescription("Get system location types that haven't been created yet for a user"),
		mcp.WithString("userId", mcp.Description("The user ID to check available locations for"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, err := strArg(args, "userId")
		if err != nil {
			return nil, err
		}
		return reg.AvailableSystemTypes(owner)
	})

	g.add(mcp.NewTool("mark_location_as_used",
		mcp.WithDescription("Mark a location as recently used (updates last used timestamp)"),
		mcp.WithString("userId", mcp.Description("The user ID who owns the location"), mcp.Required()),
		mcp.WithString("locationKey", mcp.Description("The location key to mark as used"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		owner, key, err := ownerAndKey(args)
		if err != nil {
			return nil, err
		}
		if err := reg.MarkUsed(owner, key); err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "locationKey": key}, nil
	})

	return g
}

func ownerAndKey(args map[string]any) (string, location.Key, error) {
	owner, err := strArg(args, "userId")
	if err != nil {
		return "", "", err
	}
	keyStr, err := strArg(args, "locationKey")
	if err != nil {
		return "", "", err
	}
	return owner, location.Key(keyStr), nil
}

// updateInputFromArgs maps only the arguments the caller actually supplied
// onto pointer fields, so absent means "leave unchanged".
func updateInputFromArgs(args map[string]any) (location.UpdateInput, error) {
	var in location.UpdateInput
	if v, ok := args["address"].(string); ok {
		in.Address = &v
	}
	if raw, ok := args["coordinates"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return in, apperr.Validation("coordinates must be an object with lat and lng")
		}
		var c location.Coordinates
		if err := decodeArgs(m, &c); err != nil {
			return in, err
		}
		in.Coordinates = &c
	}
	if v, ok := args["nickname"].(string); ok {
		in.Nickname = &v
	}
	if v, ok := args["category"].(string); ok {
		c := location.Category(v)
		in.Category = &c
	}
	if raw, ok := args["features"].([]any); ok {
		features := make([]location.Feature, 0, len(raw))
		for _, f := range raw {
			s, ok := f.(string)
			if !ok {
				return in, apperr.Validation("features must be an array of strings")
			}
			features = append(features, location.Feature(s))
		}
		in.Features = features
	}
	if v, ok := args["parentCategory"].(string); ok {
		c := location.Category(v)
		in.ParentCategory = &c
	}
	if v, ok := args["notes"].(string); ok {
		in.Notes = &v
	}
	return in, nil
}
