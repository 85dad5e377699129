package config

import (
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *memBackend) SetString(key, val string) error { b.strings[key] = val; return nil }

func (b *memBackend) SetInt(key string, val int) error { b.ints[key] = val; return nil }

func (b *memBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Downstream.GatewayURL != "http://localhost:3000" {
		t.Errorf("GatewayURL = %q", cfg.Downstream.GatewayURL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Maintenance.SweepInterval != "10m" {
		t.Errorf("SweepInterval = %q, want 10m", cfg.Maintenance.SweepInterval)
	}
}

func TestBackendValuesApplied(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.strings["downstream.gateway_url"] = "http://gw.internal:8080"
	b.strings["log.level"] = "debug"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Downstream.GatewayURL != "http://gw.internal:8080" {
		t.Errorf("GatewayURL = %q", cfg.Downstream.GatewayURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 5000
	t.Setenv("PERCTX_SERVER_PORT", "6000")
	t.Setenv("PERCTX_GRAPHQL_URL", "http://graphql.internal/graphql")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want env override 6000", cfg.Server.Port)
	}
	if cfg.Downstream.GraphQLURL != "http://graphql.internal/graphql" {
		t.Errorf("GraphQLURL = %q", cfg.Downstream.GraphQLURL)
	}
}

func TestInvalidIntEnvKeepsDefault(t *testing.T) {
	t.Setenv("PERCTX_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want default 4000", cfg.Server.Port)
	}
}

type memKeychain struct {
	values map[string]string
}

func (m *memKeychain) Get(service, account string) (string, error) {
	return m.values[service+"/"+account], nil
}

func (m *memKeychain) Set(service, account, value string) error {
	m.values[service+"/"+account] = value
	return nil
}

func TestGetAPITokenGeneratesOnce(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	kc := &memKeychain{values: map[string]string{}}

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" {
		t.Fatal("generated token is empty")
	}

	second, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != first {
		t.Errorf("token changed between calls: %q vs %q", first, second)
	}
}

func TestGetAPITokenEnvWins(t *testing.T) {
	t.Setenv(TokenEnvVar, "env-token")
	kc := &memKeychain{values: map[string]string{"perctx/api_token": "stored-token"}}

	tok, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "env-token" {
		t.Errorf("token = %q, want env-token", tok)
	}
}
