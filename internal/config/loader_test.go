package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kyral/bandrush/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EntryFee, convey.ShouldEqual, 100)
				convey.So(cfg.RandomnessFee, convey.ShouldEqual, 5)
				convey.So(cfg.PoolShareBP, convey.ShouldEqual, 9000)
				convey.So(cfg.SeasonDuration, convey.ShouldEqual, 7*24*time.Hour)
				convey.So(cfg.WalletMode, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BANDRUSH_ADDR", ":8088")
			_ = os.Setenv("BANDRUSH_ENTRY_FEE", "250")
			_ = os.Setenv("BANDRUSH_STALE_TIMEOUT", "30m")
			_ = os.Setenv("BANDRUSH_LOG_LEVEL", "debug")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
				convey.So(cfg.EntryFee, convey.ShouldEqual, 250)
				convey.So(cfg.StaleTimeout, convey.ShouldEqual, 30*time.Minute)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":7000"
entry_fee: 500
leaderboard_size: 25
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BANDRUSH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
				convey.So(cfg.EntryFee, convey.ShouldEqual, 500)
				convey.So(cfg.LeaderboardSize, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":7000"
entry_fee: 500
leaderboard_size: 25
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BANDRUSH_CONFIG", tmpFile)
			_ = os.Setenv("BANDRUSH_ADDR", ":7001")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7001")        // Overridden by env
				convey.So(cfg.EntryFee, convey.ShouldEqual, 500)        // From file
				convey.So(cfg.LeaderboardSize, convey.ShouldEqual, 25)  // From file
				convey.So(cfg.RandomnessFee, convey.ShouldEqual, 5)     // From defaults
				convey.So(cfg.WalletMode, convey.ShouldEqual, "memory") // From defaults
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("BANDRUSH_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BANDRUSH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderValidation(t *testing.T) {
	convey.Convey("Given config validation rules", t, func() {
		ctx := context.Background()

		rejections := []struct {
			name  string
			key   string
			value string
		}{
			{"empty addr", "BANDRUSH_ADDR", ""},
			{"zero entry fee", "BANDRUSH_ENTRY_FEE", "0"},
			{"pool share over 10000", "BANDRUSH_POOL_SHARE_BP", "10001"},
			{"zero max threshold", "BANDRUSH_MAX_THRESHOLD", "0"},
			{"zero leaderboard size", "BANDRUSH_LEADERBOARD_SIZE", "0"},
			{"inverted session window", "BANDRUSH_SESSION_MIN_DURATION", "48h"},
			{"unknown wallet mode", "BANDRUSH_WALLET_MODE", "postgres"},
			{"http wallet without url", "BANDRUSH_WALLET_MODE", "http"},
		}

		for _, tc := range rejections {
			tc := tc
			convey.Convey("When loading config with "+tc.name, func() {
				clearConfigEnvVars()
				_ = os.Setenv(tc.key, tc.value)
				defer clearConfigEnvVars()

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should return a validation error", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(cfg, convey.ShouldBeNil)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"BANDRUSH_CONFIG",
		"BANDRUSH_ADDR",
		"BANDRUSH_ENTRY_FEE",
		"BANDRUSH_STALE_TIMEOUT",
		"BANDRUSH_LOG_LEVEL",
		"BANDRUSH_POOL_SHARE_BP",
		"BANDRUSH_MAX_THRESHOLD",
		"BANDRUSH_LEADERBOARD_SIZE",
		"BANDRUSH_SESSION_MIN_DURATION",
		"BANDRUSH_WALLET_MODE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "bandrush-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
