package mcp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/preference"
	"github.com/perctx/perctx/internal/store"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	locations := location.NewRegistry(s)
	g, err := NewGateway(Deps{
		Locations: locations,
		Food:      foodpref.NewResolver(s, locations),
		Prefs:     preference.NewService(s),
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("building gateway: %v", err)
	}
	return g
}

func rpc(t *testing.T, srv *httptest.Server, body string) (*http.Response, rpcResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("posting request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out rpcResponse
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp, out
}

func callTool(t *testing.T, srv *httptest.Server, name string, args map[string]any) toolResultView {
	t.Helper()
	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":` + string(params) + `}`
	resp, out := rpc(t, srv, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tools/call returned HTTP %d", resp.StatusCode)
	}
	if out.Error != nil {
		t.Fatalf("tools/call returned protocol error: %+v", out.Error)
	}

	raw, _ := json.Marshal(out.Result)
	var view toolResultView
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if len(view.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	return view
}

type toolResultView struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func (v toolResultView) text() string { return v.Content[0].Text }

func TestInitializeEchoesProtocolVersion(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	resp, out := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP %d", resp.StatusCode)
	}
	result := out.Result.(map[string]any)
	if got := result["protocolVersion"]; got != "2025-03-26" {
		t.Fatalf("protocolVersion = %v, want echo of client version", got)
	}

	_, out = rpc(t, srv, `{"jsonrpc":"2.0","id":2,"method":"initialize"}`)
	result = out.Result.(map[string]any)
	if got := result["protocolVersion"]; got != defaultProtocolVersion {
		t.Fatalf("protocolVersion = %v, want default %s", got, defaultProtocolVersion)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	resp, out := rpc(t, srv, `{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	if resp.StatusCode != http.StatusOK || out.Error != nil {
		t.Fatalf("ping failed: HTTP %d, error %+v", resp.StatusCode, out.Error)
	}
}

func TestNotificationsGetNoContent(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	// No id on purpose: notifications are exempt from the id requirement.
	resp, _ := rpc(t, srv, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("notification returned HTTP %d, want 204", resp.StatusCode)
	}
}

func TestInvalidRequestsRejected(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{"missing id", `{"jsonrpc":"2.0","method":"tools/list"}`},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tools/list"}`},
		{"missing method", `{"jsonrpc":"2.0","id":1}`},
		{"malformed json", `{"jsonrpc":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := rpc(t, srv, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("HTTP %d, want 400", resp.StatusCode)
			}
			if out.Error == nil || out.Error.Code != codeInvalidRequest {
				t.Fatalf("error = %+v, want code %d", out.Error, codeInvalidRequest)
			}
		})
	}
}

func TestUnknownMethodIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	resp, out := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HTTP %d, want 200", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want code %d", out.Error, codeMethodNotFound)
	}
}

func TestToolsListCarriesFullCatalog(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	_, out := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	raw, _ := json.Marshal(out.Result)
	var result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decoding tools/list result: %v", err)
	}

	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"get_user_locations", "create_system_location", "create_custom_location",
		"get_default_food_preferences", "get_effective_food_preferences",
		"set_preference", "list_preference_keys",
		"create_user", "get_github_repo",
		"query_user_context", "mutate_user_context", "get_schema",
	} {
		if !names[want] {
			t.Errorf("catalog missing tool %s", want)
		}
	}
}

func TestUnknownToolFailsInBand(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	view := callTool(t, srv, "launch_rocket", map[string]any{"target": "moon"})
	if !view.IsError {
		t.Fatal("unknown tool should produce isError result")
	}

	var payload struct {
		Error     string         `json:"error"`
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(view.text()), &payload); err != nil {
		t.Fatalf("error payload is not JSON: %v", err)
	}
	if !strings.Contains(payload.Error, "unknown tool") {
		t.Errorf("error = %q, want unknown tool message", payload.Error)
	}
	if payload.Tool != "launch_rocket" {
		t.Errorf("tool = %q, want launch_rocket", payload.Tool)
	}
	if payload.Arguments["target"] != "moon" {
		t.Errorf("arguments not echoed back: %v", payload.Arguments)
	}
}

func TestLocationToolRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	view := callTool(t, srv, "create_system_location", map[string]any{
		"userId":       "u1",
		"locationType": "home",
		"address":      "1 Main St",
		"coordinates":  map[string]any{"lat": 40.7, "lng": -74.0},
	})
	if view.IsError {
		t.Fatalf("create_system_location failed: %s", view.text())
	}

	view = callTool(t, srv, "get_location", map[string]any{"userId": "u1", "locationKey": "home"})
	if view.IsError {
		t.Fatalf("get_location failed: %s", view.text())
	}
	var loc struct {
		LocationKey string `json:"locationKey"`
		Nickname    string `json:"nickname"`
		Address     string `json:"address"`
	}
	if err := json.Unmarshal([]byte(view.text()), &loc); err != nil {
		t.Fatalf("decoding location: %v", err)
	}
	if loc.LocationKey != "home" || loc.Address != "1 Main St" {
		t.Fatalf("unexpected location: %+v", loc)
	}

	// Duplicate creation surfaces as tool-level error, not protocol error.
	view = callTool(t, srv, "create_system_location", map[string]any{
		"userId":       "u1",
		"locationType": "home",
		"address":      "2 Elm St",
		"coordinates":  map[string]any{"lat": 40.7, "lng": -74.0},
	})
	if !view.IsError {
		t.Fatal("duplicate system location should fail in-band")
	}
}

func TestFoodPreferenceToolDefaults(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	view := callTool(t, srv, "get_default_food_preferences", map[string]any{"userId": "u1"})
	if view.IsError {
		t.Fatalf("get_food_preferences failed: %s", view.text())
	}
	var set struct {
		Preferences []struct {
			Category string `json:"category"`
			Level    string `json:"level"`
		} `json:"preferences"`
	}
	if err := json.Unmarshal([]byte(view.text()), &set); err != nil {
		t.Fatalf("decoding set: %v", err)
	}
	if len(set.Preferences) != len(foodpref.Categories) {
		t.Fatalf("got %d preferences, want %d", len(set.Preferences), len(foodpref.Categories))
	}
	for _, p := range set.Preferences {
		if p.Level != "neutral" {
			t.Fatalf("default level for %s = %s, want neutral", p.Category, p.Level)
		}
	}
}

func TestGetSchemaRejectsMutationQuery(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	view := callTool(t, srv, "get_schema", map[string]any{
		"query": `mutation { deleteUser(id: "1") { id } }`,
	})
	if !view.IsError {
		t.Fatal("mutation-bearing introspection query should fail in-band")
	}
}

func TestMissingRequiredArgumentFailsInBand(t *testing.T) {
	srv := httptest.NewServer(newTestGateway(t))
	defer srv.Close()

	view := callTool(t, srv, "get_location", map[string]any{"userId": "u1"})
	if !view.IsError {
		t.Fatal("missing locationKey should fail in-band")
	}
	if !strings.Contains(view.text(), "locationKey") {
		t.Errorf("error should name the missing argument: %s", view.text())
	}
}

func TestUserToolsProxyToGateway(t *testing.T) {
	type call struct {
		Method string
		Path   string
		Body   map[string]any
	}
	var calls []call
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{r.Method, r.URL.Path, body})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","email":"ada@example.com"}`))
	}))
	defer downstream.Close()

	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	locations := location.NewRegistry(s)
	g, err := NewGateway(Deps{
		Locations:  locations,
		Food:       foodpref.NewResolver(s, locations),
		Prefs:      preference.NewService(s),
		GatewayURL: downstream.URL,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("building gateway: %v", err)
	}
	srv := httptest.NewServer(g)
	defer srv.Close()

	view := callTool(t, srv, "create_user", map[string]any{
		"email":     "ada@example.com",
		"firstName": "Ada",
	})
	if view.IsError {
		t.Fatalf("create_user failed: %s", view.text())
	}
	if len(calls) != 1 || calls[0].Method != http.MethodPost || calls[0].Path != "/api/users" {
		t.Fatalf("unexpected downstream call: %+v", calls)
	}
	created := calls[0].Body
	if created["email"] != "ada@example.com" || created["firstName"] != "Ada" {
		t.Errorf("create body = %v", created)
	}
	if created["isActive"] != true {
		t.Errorf("isActive should default to true, body = %v", created)
	}

	view = callTool(t, srv, "update_user", map[string]any{
		"userId":   "u1",
		"lastName": "Lovelace",
	})
	if view.IsError {
		t.Fatalf("update_user failed: %s", view.text())
	}
	if len(calls) != 2 || calls[1].Method != http.MethodPut || calls[1].Path != "/api/users/u1" {
		t.Fatalf("unexpected downstream call: %+v", calls[1:])
	}
	updated := calls[1].Body
	if updated["lastName"] != "Lovelace" {
		t.Errorf("update body = %v", updated)
	}
	for _, field := range []string{"firstName", "email", "isActive"} {
		if _, present := updated[field]; present {
			t.Errorf("unset field %s should be omitted from the update body, got %v", field, updated)
		}
	}
}
