package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
	"github.com/StrathCole/oracle-push/pkg/feeder/publisher"
	"github.com/StrathCole/oracle-push/pkg/feeder/selector"
	"github.com/StrathCole/oracle-push/pkg/feeder/store"
	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/metrics"
	"github.com/StrathCole/oracle-push/pkg/server/aggregator"
	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

// DefaultTimeout bounds the fetch phase of a round.
const DefaultTimeout = 20 * time.Second

// Config holds round settings.
type Config struct {
	// Timeout bounds the fetch barrier. Sources still running when it
	// expires count as failed.
	Timeout time.Duration
	// NormalizeQuotes folds stablecoin quotes and wrapped bases together.
	NormalizeQuotes bool
}

// Deps are the collaborators a round drives.
type Deps struct {
	Sources    []sources.NormalizedSampleSource
	Aggregator aggregator.Aggregator
	Gate       *gate.Gate
	Selector   *selector.Selector
	State      store.StateReader
	Entropy    selector.EntropySource
	Publisher  publisher.Publisher
	Logger     *logging.Logger
}

// SourceReport is the fetch outcome of one source.
type SourceReport struct {
	Source   string        `json:"source"`
	Samples  int           `json:"samples"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	err      error
}

// Err returns the fetch error, if any.
func (r SourceReport) Err() error {
	return r.err
}

// Result summarizes one round.
type Result struct {
	Round       uint64                      `json:"round"`
	StartedAt   time.Time                   `json:"started_at"`
	FinishedAt  time.Time                   `json:"finished_at"`
	Registering bool                        `json:"registering"`
	Sources     []SourceReport              `json:"sources"`
	Values      []aggregator.ConsensusValue `json:"values"`
	Excluded    int                         `json:"excluded"`
	Candidates  int                         `json:"candidates"`
	Skipped     int                         `json:"skipped"`
	Selected    []gate.Update               `json:"selected"`
	Missing     []feed.ID                   `json:"missing"`
	Rejected    int                         `json:"rejected"`
	Published   bool                        `json:"published"`
	Error       string                      `json:"error,omitempty"`
}

// Duration returns how long the round took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Runner executes rounds. Rounds never overlap.
type Runner struct {
	cfg  Config
	deps Deps

	running sync.Mutex
	counter atomic.Uint64

	mu        sync.RWMutex
	last      *Result
	listeners []func(*Result)

	now func() time.Time
}

// NewRunner validates deps and creates a runner.
func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	switch {
	case deps.Aggregator == nil:
		return nil, fmt.Errorf("%w: aggregator", ErrMissingDependency)
	case deps.Gate == nil:
		return nil, fmt.Errorf("%w: gate", ErrMissingDependency)
	case deps.Selector == nil:
		return nil, fmt.Errorf("%w: selector", ErrMissingDependency)
	case deps.State == nil:
		return nil, fmt.Errorf("%w: state", ErrMissingDependency)
	case deps.Publisher == nil:
		return nil, fmt.Errorf("%w: publisher", ErrMissingDependency)
	}
	if deps.Entropy == nil {
		deps.Entropy = selector.CryptoEntropy{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNoopLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Runner{cfg: cfg, deps: deps, now: time.Now}, nil
}

// OnResult registers fn to be called after every round, including failed
// ones. Listeners run synchronously and must not block.
func (r *Runner) OnResult(fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Last returns the most recent round result, or nil before the first round.
func (r *Runner) Last() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run executes one round. A non-nil Result is returned whenever the round
// got as far as starting, even on error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.running.TryLock() {
		return nil, ErrInProgress
	}
	defer r.running.Unlock()

	res := &Result{Round: r.counter.Add(1), StartedAt: r.now()}
	logger := r.deps.Logger.With("round", res.Round)

	err := r.execute(ctx, res, logger)
	res.FinishedAt = r.now()

	if err != nil {
		res.Error = err.Error()
		metrics.RecordRoundFailure(res.Duration())
		logger.Error("Round failed", "error", err, "duration", res.Duration().String())
	} else {
		metrics.RecordRound(metrics.RoundStats{
			Registering: res.Registering,
			Candidates:  res.Candidates,
			Published:   len(res.Selected),
			Skipped:     res.Skipped,
			Missing:     len(res.Missing),
		}, res.Duration())
		logger.Info("Round complete",
			"registering", res.Registering,
			"values", len(res.Values),
			"candidates", res.Candidates,
			"published", len(res.Selected),
			"skipped", res.Skipped,
			"missing", len(res.Missing),
			"duration", res.Duration().String(),
		)
	}

	r.mu.Lock()
	r.last = res
	listeners := make([]func(*Result), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(res)
	}
	return res, err
}

func (r *Runner) execute(ctx context.Context, res *Result, logger *logging.Logger) error {
	snapshot, err := r.deps.State.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	acc := aggregator.NewAccumulator(r.cfg.NormalizeQuotes)
	res.Sources = r.collect(ctx, acc, logger)
	if acc.SampleCount() == 0 {
		return ErrNoSamples
	}

	agg, err := r.deps.Aggregator.Aggregate(acc)
	if err != nil {
		if errors.Is(err, aggregator.ErrNoSourcePrices) {
			return ErrNoSamples
		}
		return fmt.Errorf("%w: %v", ErrAggregation, err)
	}
	res.Values = agg.Values
	res.Excluded = len(agg.Exclusions)

	decision := r.deps.Gate.Evaluate(agg.Values, snapshot)
	res.Registering = decision.Registering
	res.Candidates = len(decision.Candidates)
	res.Skipped = len(decision.Skipped)
	res.Missing = decision.Missing
	res.Rejected = len(decision.Rejected)

	var seed [selector.SeedSize]byte
	if r.deps.Selector.NeedsShuffle(len(decision.Candidates), decision.Registering) {
		seed, err = r.deps.Entropy.Seed(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
		}
	}
	res.Selected = r.deps.Selector.Select(decision.Candidates, decision.Registering, seed)

	batch := publisher.Batch{
		Round:       res.Round,
		Registering: decision.Registering,
		Updates:     res.Selected,
		Missing:     decision.Missing,
		CreatedAt:   res.StartedAt,
	}
	if batch.Empty() {
		logger.Debug("Nothing to publish")
		return nil
	}
	if err := r.deps.Publisher.Publish(ctx, batch); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	res.Published = true
	return nil
}

type fetchOutcome struct {
	samples  []sources.Sample
	err      error
	duration time.Duration
}

// collect fetches every source concurrently and waits for all of them. The
// accumulator is filled afterwards in source order so results do not depend
// on completion order.
func (r *Runner) collect(ctx context.Context, acc *aggregator.Accumulator, logger *logging.Logger) []SourceReport {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	outcomes := make([]fetchOutcome, len(r.deps.Sources))
	var wg sync.WaitGroup
	for i, src := range r.deps.Sources {
		wg.Add(1)
		go func(i int, src sources.NormalizedSampleSource) {
			defer wg.Done()
			start := time.Now()
			samples, err := fetchBounded(fetchCtx, src)
			outcomes[i] = fetchOutcome{samples: samples, err: err, duration: time.Since(start)}
		}(i, src)
	}
	wg.Wait()

	reports := make([]SourceReport, len(outcomes))
	for i, o := range outcomes {
		name := r.deps.Sources[i].Name()
		reports[i] = SourceReport{Source: name, Duration: o.duration, err: o.err}
		if o.err != nil {
			reports[i].Error = o.err.Error()
			logger.Warn("Source failed", "source", name, "error", o.err)
			continue
		}
		reports[i].Samples = len(o.samples)
		acc.Add(o.samples...)
	}
	return reports
}

// fetchBounded returns when the source does or when ctx expires, whichever
// comes first, so a source that ignores cancellation cannot stall the round.
func fetchBounded(ctx context.Context, src sources.NormalizedSampleSource) ([]sources.Sample, error) {
	type reply struct {
		samples []sources.Sample
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		samples, err := src.FetchSamples(ctx)
		done <- reply{samples, err}
	}()
	select {
	case rep := <-done:
		return rep.samples, rep.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", src.Name(), ctx.Err())
	}
}
