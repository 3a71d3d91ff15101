package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SourceType represents the type of price source
type SourceType string

const (
	SourceTypeCEX SourceType = "cex"
)

// Pair is a base/quote trading pair. Equality is exact and case-sensitive on both fields.
type Pair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewPair creates a pair from its two currency symbols.
func NewPair(base, quote string) (Pair, error) {
	if base == "" {
		return Pair{}, fmt.Errorf("%w: %q", ErrEmptyBaseCurrency, base+"/"+quote)
	}
	if quote == "" {
		return Pair{}, fmt.Errorf("%w: %q", ErrEmptyQuoteCurrency, base+"/"+quote)
	}
	if strings.ContainsAny(base, "/\x00") || strings.ContainsAny(quote, "/\x00") {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, base+"/"+quote)
	}
	return Pair{Base: base, Quote: quote}, nil
}

// ParsePair parses a canonical "BASE/QUOTE" string.
func ParsePair(symbol string) (Pair, error) {
	if err := ValidateSymbolFormat(symbol); err != nil {
		return Pair{}, err
	}
	base, quote, _ := strings.Cut(symbol, "/")
	return NewPair(strings.TrimSpace(base), strings.TrimSpace(quote))
}

// String returns the canonical "BASE/QUOTE" form.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Sample is one exchange's ticker reduced to a price for a pair.
type Sample struct {
	Source string          `json:"source"`
	Pair   Pair            `json:"pair"`
	Price  decimal.Decimal `json:"price"`
}

// NewSample builds a sample. Prices must be strictly positive; a zero price
// is always a parsing artifact and is never substituted silently.
func NewSample(source string, pair Pair, price decimal.Decimal) (Sample, error) {
	if !price.IsPositive() {
		return Sample{}, fmt.Errorf("%w: %s", ErrNonPositivePrice, price)
	}
	return Sample{Source: source, Pair: pair, Price: price}, nil
}

// ParsePrice parses a raw decimal price string as returned by exchange APIs.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrEmptyPrice
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNonPositivePrice, raw)
	}
	return price, nil
}

// NormalizedSampleSource is the single capability the aggregator depends on:
// produce normalized samples for whatever pairs an exchange lists.
type NormalizedSampleSource interface {
	// Name returns the unique name of this source
	Name() string

	// FetchSamples fetches one payload and returns the samples parsed from it
	FetchSamples(ctx context.Context) ([]Sample, error)
}

// PayloadParser is implemented by adapters whose parsing can be exercised
// without a network round trip.
type PayloadParser interface {
	Parse(body []byte) ([]Sample, error)
}

// SourceFactory is a function that creates a new source instance
type SourceFactory func(config map[string]interface{}) (NormalizedSampleSource, error)
