// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults; Load(ctx) layers
//     file and environment sources on top.
//   - External errors must be wrapped via this package's sentinel errors.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TopN sets how many entries the leaderboard view carries.
	TopN int `koanf:"top_n"`

	// CacheTTLSeconds bounds how stale a cached leaderboard may get.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// NotifierBuffer sets the per-subscriber notification buffer size.
	NotifierBuffer int `koanf:"notifier_buffer"`

	// StoreBackend selects the event store: memory or postgres.
	StoreBackend string `koanf:"store_backend"`

	// StoreDSN is the postgres connection string; ignored for memory.
	StoreDSN string `koanf:"store_dsn"`

	// Actions maps action kinds to their point values.
	Actions map[string]int64 `koanf:"actions"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		TopN:            10,
		CacheTTLSeconds: 300,
		NotifierBuffer:  16,
		StoreBackend:    "memory",
		StoreDSN:        "host=localhost user=tally password=tally dbname=tally port=5432 sslmode=disable",
		Actions: map[string]int64{
			"quest_complete": 50,
			"achievement":    25,
			"daily_login":    5,
		},
	}
}
