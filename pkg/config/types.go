package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Round       RoundConfig       `yaml:"round"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Gate        GateConfig        `yaml:"gate"`
	Selector    SelectorConfig    `yaml:"selector"`
	State       StateConfig       `yaml:"state"`
	Publisher   PublisherConfig   `yaml:"publisher"`
	Sources     []SourceConfig    `yaml:"sources"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RoundConfig controls when rounds run and how long fetches may take
type RoundConfig struct {
	Schedule string   `yaml:"schedule"` // cron spec, e.g. "@every 30s"
	Timeout  Duration `yaml:"timeout"`  // fan-out barrier bound
}

// AggregationConfig configures the trimmed-median aggregator
type AggregationConfig struct {
	MinSamples       int    `yaml:"min_samples"`
	QuoteFilter      string `yaml:"quote_filter"`
	TrimMinSamples   int    `yaml:"trim_min_samples"`
	StdDevMultiplier string `yaml:"stddev_multiplier"`
	NormalizeQuotes  bool   `yaml:"normalize_quotes"`
}

// GateConfig configures the update gate
type GateConfig struct {
	Threshold         string `yaml:"threshold"`
	BoundaryExclusive bool   `yaml:"boundary_exclusive"`
}

// SelectorConfig bounds how many updates go out per round
type SelectorConfig struct {
	RegisteringBatch int `yaml:"registering_batch"`
	SteadyBatch      int `yaml:"steady_batch"`
}

// StateConfig selects where previously published values are read from
type StateConfig struct {
	Type     string         `yaml:"type"` // memory, redis, postgres
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures the Redis state store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// PostgresConfig configures the PostgreSQL state store
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// PublisherConfig configures the downstream publishers
type PublisherConfig struct {
	Types      []string       `yaml:"type"` // log, calldata, store
	Calldata   CalldataConfig `yaml:"calldata"`
	Expiration Duration       `yaml:"expiration"`
	DryRun     bool           `yaml:"dry_run"`
}

// CalldataConfig configures the ABI calldata publisher
type CalldataConfig struct {
	Output   string `yaml:"output"` // stdout or file path
	Contract string `yaml:"contract"`
	GasLimit uint64 `yaml:"gas_limit"`
}

// SourceConfig configures a price source
type SourceConfig struct {
	Type    string                 `yaml:"type"`
	Name    string                 `yaml:"name"`
	Enabled bool                   `yaml:"enabled"`
	Config  map[string]interface{} `yaml:"config"`
}

// ServerConfig configures the status API
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	Output string        `yaml:"output"`
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig configures log file rotation
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
