package mcp

import (
	"regexp"
	"strings"

	"github.com/perctx/perctx/internal/apperr"
)

// maxIntrospectionQueryLength caps schema-discovery queries. Introspection
// needs no more than this; anything longer is suspect.
const maxIntrospectionQueryLength = 5000

var (
	mutationBlockRe = regexp.MustCompile(`(?i)\bmutation\b[^{]*\{`)

	// First top-level selection after an optional operation header:
	// "{ user(" , "query Foo { user" etc.
	topLevelFieldRe = regexp.MustCompile(`(?is)^\s*(?:query(?:\s+\w+)?\s*(?:\([^)]*\))?\s*)?\{\s*(\w+)`)
)

// ValidateIntrospectionQuery classifies a submitted query string before it is
// allowed to reach the GraphQL engine through the schema-discovery tool.
// It is a textual allow-list, not a GraphQL parse: conservative and
// auditable, which is all a discovery tool needs. Every failure is the same
// class of rejection.
func ValidateIntrospectionQuery(query string) error {
	if len(query) > maxIntrospectionQueryLength {
		return apperr.Validation("query exceeds maximum length of %d characters", maxIntrospectionQueryLength)
	}
	if !containsIntrospectionMarker(query) {
		return apperr.Validation("query must be an introspection query (__schema or __type)")
	}
	if mutationBlockRe.MatchString(query) {
		return apperr.Validation("mutations are not allowed through the schema tool")
	}
	if m := topLevelFieldRe.FindStringSubmatch(query); m != nil {
		if field := m[1]; field != "__schema" && field != "__type" {
			return apperr.Validation("top-level field %q is not an introspection field", field)
		}
	}
	return nil
}

// ContainsMutation reports whether the string carries a mutation block. The
// generic query tool uses this to refuse mutation-via-query escapes; writes
// must go through the mutation tool, which is separately auditable.
func ContainsMutation(query string) bool {
	return mutationBlockRe.MatchString(query)
}

func containsIntrospectionMarker(query string) bool {
	return strings.Contains(query, "__schema") || strings.Contains(query, "__type")
}
