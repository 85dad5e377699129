package mcp

import (
	"encoding/json"

	"github.com/perctx/perctx/internal/apperr"
)

// decodeArgs maps loosely-typed tool arguments onto a typed struct via a
// JSON round trip. Unknown fields are ignored, mirroring how the wire
// schema treats extra properties.
func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return apperr.Validation("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Validation("invalid arguments: %v", err)
	}
	return nil
}

func strArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", apperr.Validation("%s is required", name)
	}
	return v, nil
}

func optStrArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

func boolArg(args map[string]any, name string, def bool) bool {
	v, ok := args[name].(bool)
	if !ok {
		return def
	}
	return v
}

func mapArg(args map[string]any, name string) map[string]any {
	v, _ := args[name].(map[string]any)
	return v
}

// enumStrings widens a typed string slice for mcp.Enum.
func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
