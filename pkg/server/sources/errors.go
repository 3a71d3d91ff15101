// Package sources provides the normalized sample contract, shared adapter plumbing and the source registry.
package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every FetchError.
	ErrFetch = errors.New("fetch failed")
	// ErrParse matches every ParseError.
	ErrParse = errors.New("parse failed")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrRateLimitExceeded indicates that a rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrAPIError indicates an error reported inside an otherwise valid response.
	ErrAPIError = errors.New("API error")
	// ErrInvalidResponse indicates a response whose top-level shape is wrong.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidSymbol indicates an invalid symbol.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrEmptyPrice indicates that a ticker carried no price.
	ErrEmptyPrice = errors.New("empty price")
	// ErrInvalidPrice indicates that a price string is not a decimal.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrNonPositivePrice indicates a zero or negative price.
	ErrNonPositivePrice = errors.New("price must be positive")
	// ErrInvalidConfig indicates that the source configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownSource indicates that no factory is registered for a source.
	ErrUnknownSource = errors.New("unknown source")
	// ErrNoPairsConfiguredHelper indicates that no pairs are configured.
	ErrNoPairsConfiguredHelper = errors.New("no pairs configured")
	// ErrInvalidSymbolFormat indicates that the symbol format is invalid.
	ErrInvalidSymbolFormat = errors.New("symbol must be in BASE/QUOTE format")
	// ErrEmptyBaseCurrency indicates that the symbol BASE currency cannot be empty.
	ErrEmptyBaseCurrency = errors.New("symbol BASE currency cannot be empty")
	// ErrEmptyQuoteCurrency indicates that the symbol QUOTE currency cannot be empty.
	ErrEmptyQuoteCurrency = errors.New("symbol QUOTE currency cannot be empty")
)

// FetchError reports an exchange that could not be reached or answered non-2xx.
// It is isolated to one source and never aborts a round.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetch %s: HTTP %d: %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: fetch %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetch) true for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError reports a payload whose top-level shape does not match the exchange schema.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
