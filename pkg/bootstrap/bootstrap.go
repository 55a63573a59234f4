// Package bootstrap wires configuration and logging for embedders and the
// debug tools. Config comes from an optional YAML file plus TRACEMATCH_*
// environment overrides.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	shared "github.com/tracematch/sync-engine/pkg"
)

// Config holds standard configuration for the sync core.
type Config struct {
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Retention RetentionConfig `mapstructure:"retention"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type TelemetryConfig struct {
	BaseURL    string `mapstructure:"base_url"`    // empty = production API
	APIKey     string `mapstructure:"api_key"`     // static credential
	FixtureDir string `mapstructure:"fixture_dir"` // non-empty = local fixture mode
}

type SyncConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollCeiling    time.Duration `mapstructure:"poll_ceiling"`
	PreferencesDir string        `mapstructure:"preferences_dir"`
}

type RetentionConfig struct {
	Days int `mapstructure:"days"` // 0 = use preference store
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from the given file (optional) and the
// environment. A missing file is not an error; the defaults stand.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sync.batch_size", shared.DefaultBatchSize)
	v.SetDefault("sync.poll_interval", shared.DefaultPollInterval)
	v.SetDefault("sync.poll_ceiling", shared.DefaultPollCeiling)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("TRACEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Sync.BatchSize < 1 {
		cfg.Sync.BatchSize = shared.DefaultBatchSize
	}
	return &cfg, nil
}

// NewLogger builds the standard JSON logger at the configured level.
func NewLogger(cfg LoggingConfig, service string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", service)
}
