// Package config provides configuration loading and validation for oracle-push.
package config

import "errors"

var (
	// ErrInvalidSchedule indicates that round.schedule is not a valid cron spec.
	ErrInvalidSchedule = errors.New("invalid round schedule")
	// ErrInvalidTimeout indicates that round.timeout is not positive.
	ErrInvalidTimeout = errors.New("round timeout must be positive")
	// ErrInvalidMinSamples indicates that aggregation.min_samples is below 1.
	ErrInvalidMinSamples = errors.New("aggregation min_samples must be >= 1")
	// ErrInvalidTrimMinSamples indicates that aggregation.trim_min_samples is below 1.
	ErrInvalidTrimMinSamples = errors.New("aggregation trim_min_samples must be >= 1")
	// ErrInvalidStdDevMultiplier indicates a non-positive or unparseable multiplier.
	ErrInvalidStdDevMultiplier = errors.New("aggregation stddev_multiplier must be a positive decimal")
	// ErrInvalidThreshold indicates that gate.threshold is not in (0,1].
	ErrInvalidThreshold = errors.New("gate threshold must be a decimal in (0,1]")
	// ErrInvalidBatchSize indicates a non-positive selector batch size.
	ErrInvalidBatchSize = errors.New("selector batch sizes must be positive")
	// ErrInvalidStateType indicates that state.type is unknown.
	ErrInvalidStateType = errors.New("invalid state type")
	// ErrRedisAddrRequired indicates that state.redis.addr must be specified.
	ErrRedisAddrRequired = errors.New("state.redis.addr must be specified")
	// ErrPostgresDSNRequired indicates that state.postgres.dsn must be specified.
	ErrPostgresDSNRequired = errors.New("state.postgres.dsn must be specified")
	// ErrInvalidPublisherType indicates that a publisher type is unknown.
	ErrInvalidPublisherType = errors.New("invalid publisher type")
	// ErrInvalidContract indicates that publisher.calldata.contract is not a hex address.
	ErrInvalidContract = errors.New("invalid calldata contract address")
	// ErrNoSourcesConfigured indicates that no price sources are configured.
	ErrNoSourcesConfigured = errors.New("at least one price source must be configured")
	// ErrNoSourcesEnabled indicates that no sources are enabled.
	ErrNoSourcesEnabled = errors.New("no sources enabled")
	// ErrSourceTypeRequired indicates that source type is required.
	ErrSourceTypeRequired = errors.New("source type is required")
	// ErrInvalidSourceType indicates that the source type is unknown.
	ErrInvalidSourceType = errors.New("invalid source type")
	// ErrSourceNameRequired indicates that source name is required.
	ErrSourceNameRequired = errors.New("source name is required")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
