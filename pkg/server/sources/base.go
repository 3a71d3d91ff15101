package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/metrics"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultRetries      = 1
	defaultRetryBackoff = 250 * time.Millisecond
	maxRetryBackoff     = 5 * time.Second
)

// BaseSource provides the fetch, retry, rate limiting and record bookkeeping
// shared by all exchange adapters.
type BaseSource struct {
	name       string
	sourcetype SourceType
	apiURL     string
	fetcher    Fetcher
	limiter    *rate.Limiter
	retries    int
	backoff    time.Duration
	pairs      map[string]Pair // native symbol -> canonical pair; nil ingests everything
	logger     *logging.Logger

	lastUpdate time.Time
	healthy    bool
	mu         sync.RWMutex
}

// NewBaseSource builds the shared adapter state from a free-form source config.
//
// Recognized keys: api_url, timeout, rate_limit (requests per second), burst,
// retries, retry_backoff, pairs (canonical -> native symbol allowlist),
// logger (*logging.Logger) and fetcher (Fetcher).
func NewBaseSource(name string, sourcetype SourceType, defaultURL string, config map[string]interface{}) (*BaseSource, error) {
	if config == nil {
		config = map[string]interface{}{}
	}

	apiURL := defaultURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	timeout, err := getDurationFromMap(config, "timeout", defaultFetchTimeout)
	if err != nil {
		return nil, err
	}
	backoff, err := getDurationFromMap(config, "retry_backoff", defaultRetryBackoff)
	if err != nil {
		return nil, err
	}

	fetcher, ok := config["fetcher"].(Fetcher)
	if !ok {
		fetcher = NewHTTPFetcher(timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps := getFloatFromMap(config, "rate_limit", 0); rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), getIntFromMap(config, "burst", 1))
	}

	retries := getIntFromMap(config, "retries", defaultRetries)
	if retries < 0 {
		return nil, fmt.Errorf("%w: retries must be >= 0", ErrInvalidConfig)
	}

	var pairs map[string]Pair
	if _, ok := config["pairs"]; ok {
		mapped, err := ParsePairsFromMap(config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pairs: %w", err)
		}
		pairs = make(map[string]Pair, len(mapped))
		for unified, native := range mapped {
			pair, err := ParsePair(unified)
			if err != nil {
				return nil, fmt.Errorf("failed to parse pairs: %w", err)
			}
			if prev, dup := pairs[native]; dup {
				return nil, fmt.Errorf("%w: %s is mapped by both %s and %s", ErrInvalidConfig, native, prev, pair)
			}
			pairs[native] = pair
		}
	}

	return &BaseSource{
		name:       name,
		sourcetype: sourcetype,
		apiURL:     apiURL,
		fetcher:    fetcher,
		limiter:    limiter,
		retries:    retries,
		backoff:    backoff,
		pairs:      pairs,
		logger:     GetLoggerFromConfig(config).With("source", name),
	}, nil
}

// Name returns the source name
func (b *BaseSource) Name() string {
	return b.name
}

// Type returns the source type
func (b *BaseSource) Type() SourceType {
	return b.sourcetype
}

// APIURL returns the endpoint the source polls.
func (b *BaseSource) APIURL() string {
	return b.apiURL
}

// Logger returns the logger
func (b *BaseSource) Logger() *logging.Logger {
	return b.logger
}

// IsHealthy reports whether the last fetch succeeded.
func (b *BaseSource) IsHealthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthy
}

// LastUpdate returns the time of the last successful fetch.
func (b *BaseSource) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

func (b *BaseSource) setHealthy(healthy bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthy = healthy
	if healthy {
		b.lastUpdate = time.Now()
	}
}

// Collect fetches url, parses the body and records the outcome.
// Transport failures come back as *FetchError, shape mismatches as *ParseError.
func (b *BaseSource) Collect(ctx context.Context, url string, parse func([]byte) ([]Sample, error)) ([]Sample, error) {
	var body []byte
	err := b.RetryWithBackoff(ctx, "fetch", func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		var fetchErr error
		body, fetchErr = b.fetcher.Fetch(ctx, url)
		return fetchErr
	})
	if err != nil {
		err = b.fetchFailure(url, err)
		b.setHealthy(false)
		metrics.RecordSourceFetch(b.name, 0, err)
		return nil, err
	}

	samples, err := parse(body)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			err = b.ParseFailure(err)
		}
		b.setHealthy(false)
		metrics.RecordSourceFetch(b.name, 0, err)
		return nil, err
	}

	b.setHealthy(true)
	metrics.RecordSourceFetch(b.name, len(samples), nil)
	b.logger.Debug("Fetched samples", "count", len(samples))
	return samples, nil
}

// ParseFailure wraps err as a ParseError of this source.
func (b *BaseSource) ParseFailure(err error) error {
	return &ParseError{Source: b.name, Err: err}
}

func (b *BaseSource) fetchFailure(url string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		out := *fe
		out.Source = b.name
		if out.URL == "" {
			out.URL = url
		}
		return &out
	}
	return &FetchError{Source: b.name, URL: url, Err: err}
}

// RetryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// or the configured retries are exhausted. The delay doubles per attempt.
func (b *BaseSource) RetryWithBackoff(ctx context.Context, op string, fn func() error) error {
	delay := b.backoff
	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == b.retries {
			break
		}

		b.logger.Debug("Retrying after backoff",
			"op", op,
			"attempt", attempt+1,
			"backoff", delay,
			"error", lastErr,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
		delay *= 2
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
	return lastErr
}

// retryable reports whether another attempt could change the outcome.
// Client errors other than 429 are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode >= 400 && fe.StatusCode < 500 {
		return fe.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// ResolvePair maps a native exchange symbol to its canonical pair. With a
// pairs allowlist only listed symbols resolve; otherwise split decides.
func (b *BaseSource) ResolvePair(native string, split SymbolSplitter) (Pair, bool) {
	if b.pairs != nil {
		pair, ok := b.pairs[native]
		return pair, ok
	}
	return split(native)
}

// NewBatch starts collecting samples for one payload.
func (b *BaseSource) NewBatch(capacity int) *Batch {
	return &Batch{source: b, samples: make([]Sample, 0, capacity)}
}

// Batch accumulates the samples parsed from one payload and accounts for
// skipped records. Malformed records are dropped, never defaulted.
type Batch struct {
	source  *BaseSource
	samples []Sample
	skipped int
}

// AddRaw parses raw and appends a sample, skipping the record on failure.
func (bt *Batch) AddRaw(pair Pair, raw, native string) {
	price, err := ParsePrice(raw)
	if err != nil {
		bt.Skip(native, err)
		return
	}
	bt.AddPrice(pair, price, native)
}

// AddPrice appends a sample for an already decoded price.
func (bt *Batch) AddPrice(pair Pair, price decimal.Decimal, native string) {
	sample, err := NewSample(bt.source.name, pair, price)
	if err != nil {
		bt.Skip(native, err)
		return
	}
	bt.samples = append(bt.samples, sample)
}

// Skip records a malformed record.
func (bt *Batch) Skip(native string, err error) {
	bt.skipped++
	metrics.RecordSkippedRecord(bt.source.name)
	bt.source.logger.Debug("Skipping malformed record", "symbol", native, "error", err)
}

// Skipped returns how many records were dropped.
func (bt *Batch) Skipped() int {
	return bt.skipped
}

// Samples returns the collected samples.
func (bt *Batch) Samples() []Sample {
	return bt.samples
}
