package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/perctx/perctx/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"success":false,"error":"not_found","message":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestStatsRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /stats": `{"success":true,"data":{"totalRequests":42,"uptimeSeconds":7}}`,
	})

	client := ts.client()
	snap, err := client.stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.TotalRequests != 42 {
		t.Errorf("totalRequests = %d, want 42", snap.TotalRequests)
	}
	if snap.UptimeSeconds != 7 {
		t.Errorf("uptimeSeconds = %d, want 7", snap.UptimeSeconds)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want 'Bearer test-token'", ts.requests[0].Auth)
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"success":true,"data":{"status":"ok"}}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestAPIClient_ServerStopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"success":false,"error":"unauthorized","message":"invalid token"}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/stats")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("write error: %v", err)
	}

	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error reading removed PID file")
	}
}

func TestPIDFile_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	path := pidFilePath(dir)

	if err := writePIDFile(path); err != nil {
		t.Fatalf("write error: %v", err)
	}
	t.Cleanup(func() { removePIDFile(path) })

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected PID file to exist: %v", err)
	}
}

func TestParseDurationOr(t *testing.T) {
	tests := []struct {
		value    string
		fallback time.Duration
		want     time.Duration
	}{
		{"10m", time.Hour, 10 * time.Minute},
		{"90s", time.Hour, 90 * time.Second},
		{"", time.Hour, time.Hour},
		{"bogus", 24 * time.Hour, 24 * time.Hour},
	}
	for _, tt := range tests {
		got := parseDurationOr(tt.value, tt.fallback)
		if got != tt.want {
			t.Errorf("parseDurationOr(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
		}
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Downstream.GatewayURL = "http://localhost:3000"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}
