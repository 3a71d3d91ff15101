package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

var (
	validStateTypes     = []string{"memory", "redis", "postgres"}
	validPublisherTypes = []string{"log", "calldata", "store"}
	validSourceTypes    = []string{"cex"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"json", "text"}
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := validateRoundConfig(&cfg.Round); err != nil {
		return fmt.Errorf("round config: %w", err)
	}
	if err := validateAggregationConfig(&cfg.Aggregation); err != nil {
		return fmt.Errorf("aggregation config: %w", err)
	}
	if err := validateGateConfig(&cfg.Gate); err != nil {
		return fmt.Errorf("gate config: %w", err)
	}
	if cfg.Selector.RegisteringBatch < 1 || cfg.Selector.SteadyBatch < 1 {
		return fmt.Errorf("selector config: %w", ErrInvalidBatchSize)
	}
	if err := validateStateConfig(&cfg.State); err != nil {
		return fmt.Errorf("state config: %w", err)
	}
	if err := validatePublisherConfig(&cfg.Publisher); err != nil {
		return fmt.Errorf("publisher config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		return ErrNoSourcesConfigured
	}
	for i, source := range cfg.Sources {
		if err := validateSourceConfig(&source); err != nil {
			return fmt.Errorf("source %d (%s.%s): %w", i, source.Type, source.Name, err)
		}
	}
	if len(cfg.EnabledSources()) == 0 {
		return ErrNoSourcesEnabled
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateRoundConfig(cfg *RoundConfig) error {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, cfg.Schedule, err)
	}
	if cfg.Timeout.ToDuration() <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

func validateAggregationConfig(cfg *AggregationConfig) error {
	if cfg.MinSamples < 1 {
		return ErrInvalidMinSamples
	}
	if cfg.TrimMinSamples < 1 {
		return ErrInvalidTrimMinSamples
	}
	k, err := cfg.StdDevMultiplierValue()
	if err != nil {
		return err
	}
	if !k.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidStdDevMultiplier, k)
	}
	return nil
}

func validateGateConfig(cfg *GateConfig) error {
	t, err := cfg.ThresholdValue()
	if err != nil {
		return err
	}
	if !t.IsPositive() || t.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidThreshold, t)
	}
	return nil
}

func validateStateConfig(cfg *StateConfig) error {
	switch strings.ToLower(cfg.Type) {
	case "memory":
	case "redis":
		if cfg.Redis.Addr == "" {
			return ErrRedisAddrRequired
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return ErrPostgresDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidStateType, cfg.Type, strings.Join(validStateTypes, ", "))
	}
	return nil
}

func validatePublisherConfig(cfg *PublisherConfig) error {
	for _, t := range cfg.Types {
		if !contains(validPublisherTypes, strings.ToLower(t)) {
			return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidPublisherType, t, strings.Join(validPublisherTypes, ", "))
		}
	}
	if cfg.Calldata.Contract != "" && !common.IsHexAddress(cfg.Calldata.Contract) {
		return fmt.Errorf("%w: %s", ErrInvalidContract, cfg.Calldata.Contract)
	}
	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	if cfg.Type == "" {
		return ErrSourceTypeRequired
	}
	if !contains(validSourceTypes, strings.ToLower(cfg.Type)) {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidSourceType, cfg.Type, strings.Join(validSourceTypes, ", "))
	}
	if cfg.Name == "" {
		return ErrSourceNameRequired
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	if !contains(validLogLevels, strings.ToLower(cfg.Level)) {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLogLevels, ", "))
	}
	if !contains(validLogFormats, strings.ToLower(cfg.Format)) {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
