package config

import (
	"strings"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Downstream  DownstreamConfig
	Log         LogConfig
	Maintenance MaintenanceConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

// DownstreamConfig points at the services the MCP tools proxy to. Empty URLs
// disable the corresponding tool groups' network calls (they fail upstream).
type DownstreamConfig struct {
	GatewayURL string
	GraphQLURL string
}

type LogConfig struct {
	Level string
}

type MaintenanceConfig struct {
	SweepInterval string
	StatsMaxAge   string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Downstream: DownstreamConfig{
			GatewayURL: "http://localhost:3000",
			GraphQLURL: "http://localhost:3000/graphql",
		},
		Log: LogConfig{
			Level: "info",
		},
		Maintenance: MaintenanceConfig{
			SweepInterval: "10m",
			StatsMaxAge:   "24h",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.perctx.app) and the API
// token lives in macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/perctx/config.json
// and the token lives in a secrets file under $XDG_DATA_HOME.
//
// Environment variables (PERCTX_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// keychain abstracts platform secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// NewKeychain returns the platform secret store.
func NewKeychain() keychain {
	return keychainStore{}
}

type keychainStore struct{}

func (keychainStore) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainStore) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
