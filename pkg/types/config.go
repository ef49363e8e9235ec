// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent to providers (e.g. "edusearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the source backends and the aggregator.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SourceTimeout bounds each REST backend's fetch (default 15s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout" mapstructure:"source_timeout"`

	// ScrapeTimeout bounds the browser-driven backend's fetch (default 45s).
	ScrapeTimeout time.Duration `json:"scrape_timeout" yaml:"scrape_timeout" mapstructure:"scrape_timeout"`

	EnablePBS         bool `json:"enable_pbs" yaml:"enable_pbs" mapstructure:"enable_pbs"`
	EnableCK12        bool `json:"enable_ck12" yaml:"enable_ck12" mapstructure:"enable_ck12"`
	EnableKhanAcademy bool `json:"enable_khan_academy" yaml:"enable_khan_academy" mapstructure:"enable_khan_academy"`

	// BrowserBin is an optional path to a Chromium binary for scraping.
	// Empty lets the launcher download or locate one.
	BrowserBin string `json:"browser_bin,omitempty" yaml:"browser_bin,omitempty" mapstructure:"browser_bin"`

	// BreakerFailures is the number of consecutive failures that opens a
	// backend's circuit breaker (default 5).
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures" mapstructure:"breaker_failures"`

	// BreakerCooldown is how long an open breaker rejects calls (default 30s).
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// StoreConfig selects the SQL backend for stored results.
type StoreConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is a file path for sqlite3 or a connection string for postgres.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// EmptyQueryMode decides how a blank search query is treated.
type EmptyQueryMode string

const (
	// EmptyQueryBrowse returns the caller's stored history.
	EmptyQueryBrowse EmptyQueryMode = "browse"
	// EmptyQueryReject answers with a validation error.
	EmptyQueryReject EmptyQueryMode = "reject"
)

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string         `json:"addr" yaml:"addr" mapstructure:"addr"`
	EmptyQueryMode EmptyQueryMode `json:"empty_query_mode" yaml:"empty_query_mode" mapstructure:"empty_query_mode"`
	AllowedOrigins []string       `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// JWTSecret signs and verifies bearer tokens (HS256).
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
}

// CacheConfig controls the per-source candidate cache.
type CacheConfig struct {
	// TTL is how long fetched candidates are reused. Zero disables caching.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Size bounds the in-process cache's entry count (default 1024).
	Size int `json:"size" yaml:"size" mapstructure:"size"`

	// RedisAddr selects a Redis cache; empty uses an in-process cache.
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Environment is "development" (console output) or "production" (JSON).
	Environment string `json:"environment" yaml:"environment" mapstructure:"environment"`
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
}

// Config groups every component's settings.
type Config struct {
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Cache  CacheConfig  `json:"cache" yaml:"cache" mapstructure:"cache"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}
