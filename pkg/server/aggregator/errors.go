// Package aggregator reduces per-exchange samples into one consensus price
// per pair.
package aggregator

import "errors"

var (
	// ErrNoSourcePrices indicates that no samples were accumulated.
	ErrNoSourcePrices = errors.New("no source prices provided")
	// ErrEmptySet indicates a statistic was requested over no values.
	ErrEmptySet = errors.New("empty value set")
	// ErrNegativeSqrt indicates a square root of a negative value.
	ErrNegativeSqrt = errors.New("square root of negative value")
	// ErrInsufficientSamples indicates a pair has too few samples to aggregate.
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrQuoteNotAllowed indicates a pair's quote does not pass the quote filter.
	ErrQuoteNotAllowed = errors.New("quote currency not allowed")
	// ErrEmptyTrimResult indicates outlier trimming removed every sample.
	ErrEmptyTrimResult = errors.New("outlier trimming removed all samples")
)
