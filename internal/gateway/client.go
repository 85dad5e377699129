// Package gateway is the HTTP client for the downstream REST gateway, which
// fronts the user service and the GitHub import service. A client is built
// per call with the caller's forwarded Authorization header; no connection
// state is shared across tool calls.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/perctx/perctx/internal/apperr"
)

const defaultTimeout = 10 * time.Second

// Client communicates with the REST gateway.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a gateway client. authHeader is the caller's forwarded
// Authorization value; empty means unauthenticated (the gateway decides).
func NewClient(baseURL, authHeader string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// HealthCheck probes the gateway's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	var out json.RawMessage
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// --- Users ---

// User payloads are passed through opaquely; the tool layer serializes the
// gateway's response as-is for the calling agent.

type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	IsActive  bool   `json:"isActive"`
}

// UpdateUserRequest uses pointers so fields the caller never set stay out of
// the PUT body instead of zeroing the user's record.
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/users", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (json.RawMessage, error) {
	var out json.RawMessage
	path := "/api/users/email/" + url.PathEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeactivateUser(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/deactivate", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListUsers(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RecordUserLogin(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(id)+"/login", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- GitHub ---

func (c *Client) GetGitHubRepo(ctx context.Context, owner, repo string) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/api/github/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserRepos(ctx context.Context, username string) (json.RawMessage, error) {
	var out json.RawMessage
	path := "/api/github/users/" + url.PathEscape(username) + "/repos"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream("gateway request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return apperr.Upstream("reading gateway response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Upstream("gateway returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperr.Upstream("decoding gateway response: %v", err)
		}
	}
	return nil
}
