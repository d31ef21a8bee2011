package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BANDRUSH_CONFIG is set
//  3. env (prefix BANDRUSH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("BANDRUSH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: BANDRUSH_ADDR, BANDRUSH_ENTRY_FEE, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("BANDRUSH_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "bandrush_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.EntryFee <= 0:
		return fmt.Errorf("entry_fee must be positive: %w", ErrInvalidConfig)
	case c.PoolShareBP <= 0 || c.PoolShareBP > 10000:
		return fmt.Errorf("pool_share_bp must be in (0, 10000]: %w", ErrInvalidConfig)
	case c.MaxThreshold < 1:
		return fmt.Errorf("max_threshold must be at least 1: %w", ErrInvalidConfig)
	case c.LeaderboardSize < 1:
		return fmt.Errorf("leaderboard_size must be at least 1: %w", ErrInvalidConfig)
	case c.SessionMinDuration >= c.SessionMaxDuration:
		return fmt.Errorf("session duration window inverted: %w", ErrInvalidConfig)
	case c.WalletMode != "memory" && c.WalletMode != "http":
		return fmt.Errorf("wallet_mode must be memory or http: %w", ErrInvalidConfig)
	case c.WalletMode == "http" && c.WalletURL == "":
		return fmt.Errorf("wallet_url required in http mode: %w", ErrInvalidConfig)
	}
	return nil
}
