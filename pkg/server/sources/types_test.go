package sources

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPair(t *testing.T) {
	p, err := NewPair("BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", p.String())

	// Equality is exact, including case.
	lower, err := NewPair("btc", "USD")
	require.NoError(t, err)
	assert.NotEqual(t, p, lower)

	_, err = NewPair("", "USD")
	assert.ErrorIs(t, err, ErrEmptyBaseCurrency)
	_, err = NewPair("BTC", "")
	assert.ErrorIs(t, err, ErrEmptyQuoteCurrency)
	_, err = NewPair("BT/C", "USD")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
	_, err = NewPair("BTC\x00", "USD")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestParsePair(t *testing.T) {
	p, err := ParsePair("ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, Pair{Base: "ETH", Quote: "USDT"}, p)

	_, err = ParsePair("ETHUSDT")
	assert.ErrorIs(t, err, ErrInvalidSymbolFormat)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{raw: "50000.12", want: "50000.12"},
		{raw: " 0.00000123 ", want: "0.00000123"},
		{raw: "1e-3", want: "0.001"},
		{raw: "", wantErr: ErrEmptyPrice},
		{raw: "   ", wantErr: ErrEmptyPrice},
		{raw: "abc", wantErr: ErrInvalidPrice},
		{raw: "0", wantErr: ErrNonPositivePrice},
		{raw: "0.000", wantErr: ErrNonPositivePrice},
		{raw: "-1", wantErr: ErrNonPositivePrice},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNewSampleRejectsNonPositive(t *testing.T) {
	pair := Pair{Base: "BTC", Quote: "USD"}

	_, err := NewSample("test", pair, decimal.Zero)
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = NewSample("test", pair, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	s, err := NewSample("test", pair, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "test", s.Source)
	assert.Equal(t, pair, s.Pair)
}

func TestErrorTaxonomy(t *testing.T) {
	fe := &FetchError{Source: "x", URL: "http://x", StatusCode: 429, Err: ErrRateLimitExceeded}
	assert.True(t, errors.Is(fe, ErrFetch))
	assert.True(t, errors.Is(fe, ErrRateLimitExceeded))
	assert.False(t, errors.Is(fe, ErrParse))
	assert.Contains(t, fe.Error(), "HTTP 429")

	pe := &ParseError{Source: "x", Err: ErrInvalidResponse}
	assert.True(t, errors.Is(pe, ErrParse))
	assert.True(t, errors.Is(pe, ErrInvalidResponse))
	assert.False(t, errors.Is(pe, ErrFetch))
}
