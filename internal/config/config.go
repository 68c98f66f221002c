// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case so that env vars map 1:1 (GRIDELO_K_FACTOR -> k_factor).
// - Provide New(ctx) to build a Config with defaults; Load layers file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// StartSeason is the first season folded into the ratings.
	StartSeason int `koanf:"start_season" validate:"gte=1950"`

	// ModernCutoffSeason is the first season served by the modern provider;
	// older seasons go to the legacy provider.
	ModernCutoffSeason int `koanf:"modern_cutoff_season" validate:"gte=1950"`

	// InitialRating is assigned to a competitor on first appearance.
	InitialRating float64 `koanf:"initial_rating"`

	// KFactor is the maximum rating exchange per event.
	KFactor float64 `koanf:"k_factor" validate:"gt=0"`

	// Schedule is a cron spec with a seconds field; empty disables the scheduler.
	Schedule string `koanf:"schedule"`

	// RunOnStart enqueues one run when the service starts.
	RunOnStart bool `koanf:"run_on_start"`

	// TriggerQueueSize bounds the number of pending run triggers.
	TriggerQueueSize int `koanf:"trigger_queue_size" validate:"gte=1"`

	// StoreDriver selects the rating store: sqlite, postgres or memory.
	StoreDriver string `koanf:"store_driver" validate:"oneof=sqlite postgres memory"`

	// StoreDSN is the database DSN (file path for sqlite).
	StoreDSN string `koanf:"store_dsn" validate:"required_unless=StoreDriver memory"`

	// StoreBatchSize bounds rows per upsert statement.
	StoreBatchSize int `koanf:"store_batch_size" validate:"gte=1"`

	// CacheDriver selects the upstream response cache: memory, redis or none.
	CacheDriver string `koanf:"cache_driver" validate:"oneof=memory redis none"`

	// CacheTTL is how long upstream payloads are reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RedisAddr, RedisPassword and RedisDB configure the redis cache.
	RedisAddr     string `koanf:"redis_addr" validate:"required_if=CacheDriver redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`

	// LegacyBaseURL is the Ergast-format API root.
	LegacyBaseURL string `koanf:"legacy_base_url" validate:"required,url"`

	// ModernBaseURL is the OpenF1 API root.
	ModernBaseURL string `koanf:"modern_base_url" validate:"required,url"`

	// HTTPTimeout bounds a single upstream request.
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`

	// HTTPRetries is the number of extra attempts on retryable upstream failures.
	HTTPRetries int `koanf:"http_retries" validate:"gte=0,lte=10"`

	// RateLimit and RateBurst pace upstream requests (requests per second).
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
	RateBurst int     `koanf:"rate_burst" validate:"gte=1"`

	// AliasesFile points at the YAML competitor alias table; empty disables aliases.
	AliasesFile string `koanf:"aliases_file"`

	// SuspectThreshold is the name similarity (0-1) above which two competitors
	// are reported as a possible identity split.
	SuspectThreshold float64 `koanf:"suspect_threshold" validate:"gte=0,lte=1"`

	// MaxRankingLimit caps GET /ratings?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit" validate:"gte=1"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		StartSeason:        2018,
		ModernCutoffSeason: 2023,
		InitialRating:      1500,
		KFactor:            24,
		Schedule:           "0 0 10 * * MON",
		RunOnStart:         true,
		TriggerQueueSize:   1,
		StoreDriver:        "sqlite",
		StoreDSN:           "gridelo.db",
		StoreBatchSize:     100,
		CacheDriver:        "memory",
		CacheTTL:           24 * time.Hour,
		RedisAddr:          "localhost:6379",
		LegacyBaseURL:      "https://api.jolpi.ca/ergast/f1",
		ModernBaseURL:      "https://api.openf1.org/v1",
		HTTPTimeout:        20 * time.Second,
		HTTPRetries:        2,
		RateLimit:          3,
		RateBurst:          1,
		SuspectThreshold:   0.85,
		MaxRankingLimit:    500,
	}
}
