// Package graphql is the HTTP client for the downstream GraphQL gateway.
// Like the REST gateway client, it is constructed per call with the caller's
// forwarded Authorization header.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perctx/perctx/internal/apperr"
)

const defaultTimeout = 15 * time.Second

// Client executes queries and mutations against a GraphQL endpoint.
type Client struct {
	endpoint   string
	authHeader string
	httpClient *http.Client
}

func NewClient(endpoint, authHeader string) *Client {
	return &Client{
		endpoint:   endpoint,
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute posts a query or mutation and returns the data payload. GraphQL
// field errors are folded into a single Upstream error; the tool layer
// surfaces them as in-band content.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshaling graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("graphql request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, apperr.Upstream("reading graphql response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Upstream("graphql gateway returned HTTP %d", resp.StatusCode)
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.Upstream("decoding graphql response: %v", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, apperr.Upstream("graphql errors: %s", strings.Join(msgs, "; "))
	}
	return out.Data, nil
}

// IntrospectionQuery is the canonical schema-discovery query sent by the
// get_schema tool when the caller does not supply one.
const IntrospectionQuery = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    types {
      kind
      name
      description
      fields(includeDeprecated: false) {
        name
        description
        args {
          name
          description
          type { ...TypeRef }
          defaultValue
        }
        type { ...TypeRef }
      }
      inputFields {
        name
        description
        type { ...TypeRef }
        defaultValue
      }
      enumValues(includeDeprecated: false) {
        name
        description
      }
    }
  }
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType { kind name }
    }
  }
}`
