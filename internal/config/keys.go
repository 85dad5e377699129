package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PERCTX_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PERCTX_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "downstream.gateway_url", typ: kString, env: "PERCTX_GATEWAY_URL",
		apply:   func(cfg *Config, v any) { cfg.Downstream.GatewayURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Downstream.GatewayURL },
	},
	{
		key: "downstream.graphql_url", typ: kString, env: "PERCTX_GRAPHQL_URL",
		apply:   func(cfg *Config, v any) { cfg.Downstream.GraphQLURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Downstream.GraphQLURL },
	},
	{
		key: "log.level", typ: kString, env: "PERCTX_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "maintenance.sweep_interval", typ: kString, env: "PERCTX_MAINTENANCE_SWEEP_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Maintenance.SweepInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Maintenance.SweepInterval },
	},
	{
		key: "maintenance.stats_max_age", typ: kString, env: "PERCTX_MAINTENANCE_STATS_MAX_AGE",
		apply:   func(cfg *Config, v any) { cfg.Maintenance.StatsMaxAge = v.(string) },
		extract: func(cfg Config) any { return cfg.Maintenance.StatsMaxAge },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
