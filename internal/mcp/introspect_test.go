package mcp

import (
	"strings"
	"testing"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/graphql"
)

func TestValidateIntrospectionQueryAcceptsCanonical(t *testing.T) {
	if err := ValidateIntrospectionQuery(graphql.IntrospectionQuery); err != nil {
		t.Fatalf("canonical introspection query rejected: %v", err)
	}
}

func TestValidateIntrospectionQueryAcceptsTypeQuery(t *testing.T) {
	q := `query { __type(name: "Query") { fields { name } } }`
	if err := ValidateIntrospectionQuery(q); err != nil {
		t.Fatalf("__type query rejected: %v", err)
	}
}

func TestValidateIntrospectionQueryRejectsOversized(t *testing.T) {
	q := "query { __schema { types { name " + strings.Repeat("x", 6000) + " } } }"
	err := ValidateIntrospectionQuery(q)
	if err == nil {
		t.Fatal("expected oversized query to be rejected")
	}
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateIntrospectionQueryRejectsMutation(t *testing.T) {
	q := `mutation { deleteUser(id: "1") { id } } query { __schema { types { name } } }`
	if err := ValidateIntrospectionQuery(q); err == nil {
		t.Fatal("expected mutation-carrying query to be rejected")
	}
}

func TestValidateIntrospectionQueryRejectsNonIntrospection(t *testing.T) {
	for _, q := range []string{
		`{ user(id: "1") { email } }`,
		`query { users { id } }`,
	} {
		if err := ValidateIntrospectionQuery(q); err == nil {
			t.Fatalf("expected non-introspection query to be rejected: %s", q)
		}
	}
}

func TestValidateIntrospectionQueryRejectsSmuggledMarker(t *testing.T) {
	// The marker appears, but the top-level selection is a data field.
	q := `query { user(id: "1") { email } __schema { types { name } } }`
	if err := ValidateIntrospectionQuery(q); err == nil {
		t.Fatal("expected query with non-introspection top-level field to be rejected")
	}
}

func TestContainsMutation(t *testing.T) {
	if !ContainsMutation(`mutation { createUser(email: "a@b.c") { id } }`) {
		t.Fatal("expected mutation to be detected")
	}
	if ContainsMutation(`query { user(id: "1") { email } }`) {
		t.Fatal("plain query flagged as mutation")
	}
}
