// Package round runs price rounds: fetch every source, aggregate, gate,
// select and publish.
package round

import "errors"

var (
	// ErrNoSamples indicates no source produced a single sample.
	ErrNoSamples = errors.New("no samples collected")
	// ErrStateUnavailable indicates the published state could not be read.
	ErrStateUnavailable = errors.New("published feed state unavailable")
	// ErrEntropyUnavailable indicates no shuffle seed could be obtained.
	ErrEntropyUnavailable = errors.New("entropy unavailable")
	// ErrAggregation indicates the aggregator failed as a whole.
	ErrAggregation = errors.New("aggregation failed")
	// ErrPublish indicates the batch could not be published.
	ErrPublish = errors.New("publish failed")
	// ErrInProgress indicates a round is already running.
	ErrInProgress = errors.New("round already in progress")
	// ErrMissingDependency indicates the runner was built without a collaborator.
	ErrMissingDependency = errors.New("missing round dependency")
	// ErrInvalidSchedule indicates a cron spec could not be parsed.
	ErrInvalidSchedule = errors.New("invalid round schedule")
)
