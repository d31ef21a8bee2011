// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars on
//   top of them.
// - All monetary values are integer smallest units; all rates are basis
//   points (10000 = 100%).
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or pretty.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EntryFee is the per-game wager in smallest units.
	EntryFee int64 `koanf:"entry_fee"`

	// RandomnessFee is what the local provider quotes per request.
	RandomnessFee int64 `koanf:"randomness_fee"`

	// PoolShareBP is the entry-fee share credited to the season pool.
	PoolShareBP int64 `koanf:"pool_share_bp"`

	// MaxThreshold bounds the hidden explosion threshold.
	MaxThreshold int `koanf:"max_threshold"`

	// GrowthRateBP is the per-band multiplier growth.
	GrowthRateBP int64 `koanf:"growth_rate_bp"`

	// MaxTableBands bounds the precomputed multiplier table.
	MaxTableBands int `koanf:"max_table_bands"`

	// StaleTimeout is how long a pending game waits before it becomes
	// cancellable.
	StaleTimeout time.Duration `koanf:"stale_timeout"`

	// SeasonDuration is the length of each competition period.
	SeasonDuration time.Duration `koanf:"season_duration"`

	// LeaderboardSize bounds the per-season leaderboard.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// CallerIncentiveBP rewards whoever triggers prize distribution.
	CallerIncentiveBP int64 `koanf:"caller_incentive_bp"`

	// SessionMinDuration and SessionMaxDuration bound session lifetimes.
	SessionMinDuration time.Duration `koanf:"session_min_duration"`
	SessionMaxDuration time.Duration `koanf:"session_max_duration"`

	// FulfillmentQueueSize bounds the randomness fulfillment queue.
	FulfillmentQueueSize int `koanf:"fulfillment_queue_size"`

	// FulfillmentWorkers sets the resolver pool size.
	FulfillmentWorkers int `koanf:"fulfillment_workers"`

	// ReplayCacheSize bounds the resolved-request-id cache.
	ReplayCacheSize int `koanf:"replay_cache_size"`

	// WalletMode selects the balance backend: memory or http.
	WalletMode string `koanf:"wallet_mode"`

	// WalletURL is the external balance service base URL (http mode).
	WalletURL string `koanf:"wallet_url"`

	// StartingBalance seeds in-memory accounts (memory mode only).
	StartingBalance int64 `koanf:"starting_balance"`

	// AdminToken guards privileged operations (rollover, finalize).
	AdminToken string `koanf:"admin_token"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9090",
		EntryFee:             100,
		RandomnessFee:        5,
		PoolShareBP:          9000,
		MaxThreshold:         15,
		GrowthRateBP:         250,
		MaxTableBands:        64,
		StaleTimeout:         time.Hour,
		SeasonDuration:       7 * 24 * time.Hour,
		LeaderboardSize:      10,
		CallerIncentiveBP:    100,
		SessionMinDuration:   5 * time.Minute,
		SessionMaxDuration:   24 * time.Hour,
		FulfillmentQueueSize: 4096,
		FulfillmentWorkers:   4,
		ReplayCacheSize:      50000,
		WalletMode:           "memory",
		StartingBalance:      10000,
		AdminToken:           "",
	}
}
