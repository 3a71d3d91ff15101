package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Defaults used when a field is left empty.
const (
	DefaultSchedule         = "@every 30s"
	DefaultRoundTimeout     = 20 * time.Second
	DefaultMinSamples       = 3
	DefaultQuoteFilter      = "USD"
	DefaultTrimMinSamples   = 4
	DefaultStdDevMultiplier = "1"
	DefaultThreshold        = "0.1"
	DefaultRegisteringBatch = 20
	DefaultSteadyBatch      = 100
	DefaultExpiration       = 64 * time.Second
	DefaultGasLimit         = 5_500_000
	DefaultRedisKey         = "oracle:feeds"
	DefaultPostgresTable    = "published_feeds"
)

// LoadEnv loads a dotenv file into the process environment. A missing file
// is not an error; variables already set are left untouched.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(filepath.Clean(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment references in raw YAML, decodes it and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Round.Schedule == "" {
		cfg.Round.Schedule = DefaultSchedule
	}
	if cfg.Round.Timeout == 0 {
		cfg.Round.Timeout = Duration(DefaultRoundTimeout)
	}

	if cfg.Aggregation.MinSamples == 0 {
		cfg.Aggregation.MinSamples = DefaultMinSamples
	}
	if cfg.Aggregation.QuoteFilter == "" {
		cfg.Aggregation.QuoteFilter = DefaultQuoteFilter
	}
	if cfg.Aggregation.TrimMinSamples == 0 {
		cfg.Aggregation.TrimMinSamples = DefaultTrimMinSamples
	}
	if cfg.Aggregation.StdDevMultiplier == "" {
		cfg.Aggregation.StdDevMultiplier = DefaultStdDevMultiplier
	}

	if cfg.Gate.Threshold == "" {
		cfg.Gate.Threshold = DefaultThreshold
	}

	if cfg.Selector.RegisteringBatch == 0 {
		cfg.Selector.RegisteringBatch = DefaultRegisteringBatch
	}
	if cfg.Selector.SteadyBatch == 0 {
		cfg.Selector.SteadyBatch = DefaultSteadyBatch
	}

	if cfg.State.Type == "" {
		cfg.State.Type = "memory"
	}
	if cfg.State.Redis.Key == "" {
		cfg.State.Redis.Key = DefaultRedisKey
	}
	if cfg.State.Postgres.Table == "" {
		cfg.State.Postgres.Table = DefaultPostgresTable
	}

	if len(cfg.Publisher.Types) == 0 {
		cfg.Publisher.Types = []string{"log"}
	}
	if cfg.Publisher.Expiration == 0 {
		cfg.Publisher.Expiration = Duration(DefaultExpiration)
	}
	if cfg.Publisher.Calldata.GasLimit == 0 {
		cfg.Publisher.Calldata.GasLimit = DefaultGasLimit
	}
	if cfg.Publisher.Calldata.Output == "" {
		cfg.Publisher.Calldata.Output = "stdout"
	}

	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = ":8081"
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.File.Path != "" {
		if cfg.Logging.File.MaxSize == 0 {
			cfg.Logging.File.MaxSize = 100
		}
		if cfg.Logging.File.MaxBackups == 0 {
			cfg.Logging.File.MaxBackups = 3
		}
		if cfg.Logging.File.MaxAge == 0 {
			cfg.Logging.File.MaxAge = 28
		}
	}
}

// ThresholdValue parses the gate threshold.
func (g GateConfig) ThresholdValue() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(g.Threshold)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidThreshold, g.Threshold)
	}
	return v, nil
}

// StdDevMultiplierValue parses the trim band multiplier.
func (a AggregationConfig) StdDevMultiplierValue() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(a.StdDevMultiplier)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidStdDevMultiplier, a.StdDevMultiplier)
	}
	return v, nil
}

// EnabledSources returns the sources with enabled set.
func (c *Config) EnabledSources() []SourceConfig {
	enabled := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}
