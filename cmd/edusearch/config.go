// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/edusearch/internal/cache"
	"github.com/pdiddy/edusearch/internal/secrets"
	"github.com/pdiddy/edusearch/internal/store"
	"github.com/pdiddy/edusearch/pkg/types"
)

// setDefaults registers every key so that EDUSEARCH_* variables reach
// Unmarshal even when no config file sets them.
func setDefaults() {
	viper.SetDefault("search.timeout", 20*time.Second)
	viper.SetDefault("search.user_agent", "edusearch/"+version)
	viper.SetDefault("search.source_timeout", 15*time.Second)
	viper.SetDefault("search.scrape_timeout", 45*time.Second)
	viper.SetDefault("search.enable_pbs", true)
	viper.SetDefault("search.enable_ck12", true)
	viper.SetDefault("search.enable_khan_academy", false)
	viper.SetDefault("search.browser_bin", "")
	viper.SetDefault("search.breaker_failures", 5)
	viper.SetDefault("search.breaker_cooldown", 30*time.Second)

	viper.SetDefault("store.driver", store.DriverSQLite)
	viper.SetDefault("store.dsn", "")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.empty_query_mode", string(types.EmptyQueryBrowse))
	viper.SetDefault("server.allowed_origins", []string{})
	viper.SetDefault("server.jwt_secret", "")

	viper.SetDefault("cache.ttl", 5*time.Minute)
	viper.SetDefault("cache.size", cache.DefaultMemorySize)
	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("cache.redis_password", "")

	viper.SetDefault("log.environment", "development")
	viper.SetDefault("log.level", "info")
}

// loadConfig decodes viper settings and fills credentials from secret
// files where the configuration leaves them blank.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.Server.JWTSecret = loadedSecrets.Or(secrets.JWTSecret, cfg.Server.JWTSecret)
	cfg.Cache.RedisPassword = loadedSecrets.Or(secrets.RedisPassword, cfg.Cache.RedisPassword)
	if cfg.Store.Driver == store.DriverPostgres {
		cfg.Store.DSN = loadedSecrets.Or(secrets.DatabaseURL, cfg.Store.DSN)
	}

	switch cfg.Server.EmptyQueryMode {
	case types.EmptyQueryBrowse, types.EmptyQueryReject:
	default:
		return cfg, fmt.Errorf("server.empty_query_mode must be %q or %q, got %q",
			types.EmptyQueryBrowse, types.EmptyQueryReject, cfg.Server.EmptyQueryMode)
	}
	return cfg, nil
}
