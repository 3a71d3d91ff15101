package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

func pair(t *testing.T, symbol string) sources.Pair {
	t.Helper()
	p, err := sources.ParsePair(symbol)
	require.NoError(t, err)
	return p
}

func samples(t *testing.T, symbol string, prices ...string) []sources.Sample {
	t.Helper()
	p := pair(t, symbol)
	out := make([]sources.Sample, 0, len(prices))
	for i, raw := range prices {
		s, err := sources.NewSample(string(rune('a'+i)), p, decimal.RequireFromString(raw))
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func newAggregator(cfg TrimmedMedianConfig) *TrimmedMedianAggregator {
	return NewTrimmedMedianAggregator(cfg, logging.NewNoopLogger())
}

func TestTrimmedMedian_Reduce(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		prices   []string
		cfg      TrimmedMedianConfig
		want     string
		retained int
		wantErr  error
	}{
		{
			name:     "three samples below trim threshold",
			symbol:   "BTC/USD",
			prices:   []string{"50000", "50010", "80000"},
			cfg:      DefaultTrimmedMedianConfig(),
			want:     "50010",
			retained: 3,
		},
		{
			name:   "three samples trimmed when threshold lowered",
			symbol: "BTC/USD",
			prices: []string{"50000", "50010", "80000"},
			cfg: TrimmedMedianConfig{
				MinSamples:       3,
				QuoteFilter:      "USD",
				TrimMinSamples:   3,
				StdDevMultiplier: decimal.NewFromInt(1),
			},
			want:     "50005",
			retained: 2,
		},
		{
			name:     "four samples one outlier",
			symbol:   "ETH/USDT",
			prices:   []string{"100", "101", "99", "200"},
			cfg:      DefaultTrimmedMedianConfig(),
			want:     "100",
			retained: 3,
		},
		{
			name:     "identical prices skip trimming",
			symbol:   "LUNC/USD",
			prices:   []string{"0.0001", "0.0001", "0.0001", "0.0001"},
			cfg:      DefaultTrimmedMedianConfig(),
			want:     "0.0001",
			retained: 4,
		},
		{
			name:    "bimodal prices trim to nothing",
			symbol:  "BTC/USD",
			prices:  []string{"1", "1", "100", "100"},
			cfg:     DefaultTrimmedMedianConfig(),
			wantErr: ErrEmptyTrimResult,
		},
		{
			name:    "two samples are insufficient",
			symbol:  "BTC/USD",
			prices:  []string{"50000", "50010"},
			cfg:     DefaultTrimmedMedianConfig(),
			wantErr: ErrInsufficientSamples,
		},
		{
			name:    "quote without USD",
			symbol:  "BTC/EUR",
			prices:  []string{"1", "2", "3"},
			cfg:     DefaultTrimmedMedianConfig(),
			wantErr: ErrQuoteNotAllowed,
		},
		{
			name:   "empty quote filter admits any quote",
			symbol: "BTC/EUR",
			prices: []string{"1", "2", "3"},
			cfg: TrimmedMedianConfig{
				MinSamples:     3,
				TrimMinSamples: 4,
			},
			want:     "2",
			retained: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newAggregator(tt.cfg)
			got, err := agg.Reduce(pair(t, tt.symbol), decs(tt.prices...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Price.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got.Price, tt.want)
			assert.Equal(t, tt.retained, got.SampleCount)
			assert.Equal(t, len(tt.prices), got.Total)
		})
	}
}

func TestTrimmedMedian_BoundaryIsExclusive(t *testing.T) {
	// median 2, σ ≈ 0.707; with k = 0.5 only the two centre prices are
	// strictly inside the band.
	agg := newAggregator(TrimmedMedianConfig{
		MinSamples:       3,
		TrimMinSamples:   4,
		StdDevMultiplier: decimal.RequireFromString("0.5"),
	})
	got, err := agg.Reduce(pair(t, "X/USD"), decs("1", "2", "2", "3"))
	require.NoError(t, err)
	assert.Equal(t, 2, got.SampleCount)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(2)))
}

func TestTrimmedMedian_SampleCountIsTrimmedCount(t *testing.T) {
	agg := newAggregator(TrimmedMedianConfig{
		MinSamples:     3,
		QuoteFilter:    "USD",
		TrimMinSamples: 3,
	})
	got, err := agg.Reduce(pair(t, "BTC/USD"), decs("50000", "50010", "80000"))
	require.NoError(t, err)
	assert.Equal(t, 2, got.SampleCount)
	assert.Equal(t, 3, got.Total)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(50005)))
}

func TestTrimmedMedian_Aggregate(t *testing.T) {
	acc := NewAccumulator(false)
	acc.Add(samples(t, "BTC/USD", "50000", "50010", "80000")...)
	acc.Add(samples(t, "ETH/USD", "3000", "3001")...)
	acc.Add(samples(t, "ETH/BTC", "0.05", "0.05", "0.05")...)
	acc.Add(samples(t, "ATOM/USDT", "10", "10.1", "9.9", "20")...)

	agg := newAggregator(DefaultTrimmedMedianConfig())
	res, err := agg.Aggregate(acc)
	require.NoError(t, err)

	require.Len(t, res.Values, 2)
	assert.Equal(t, "ATOM/USDT", res.Values[0].Pair.String())
	assert.True(t, res.Values[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "BTC/USD", res.Values[1].Pair.String())
	assert.True(t, res.Values[1].Price.Equal(decimal.NewFromInt(50010)))

	require.Len(t, res.Exclusions, 2)
	assert.Equal(t, "ETH/BTC", res.Exclusions[0].Pair.String())
	assert.Equal(t, ReasonQuoteNotAllowed, res.Exclusions[0].ReasonLabel())
	assert.Equal(t, "ETH/USD", res.Exclusions[1].Pair.String())
	assert.Equal(t, ReasonInsufficientSamples, res.Exclusions[1].ReasonLabel())
}

func TestTrimmedMedian_AggregateIsIdempotent(t *testing.T) {
	acc := NewAccumulator(false)
	acc.Add(samples(t, "BTC/USD", "50000", "50010", "80000", "49990", "50020")...)

	agg := newAggregator(DefaultTrimmedMedianConfig())
	first, err := agg.Aggregate(acc)
	require.NoError(t, err)
	second, err := agg.Aggregate(acc)
	require.NoError(t, err)

	require.Len(t, first.Values, 1)
	require.Len(t, second.Values, 1)
	assert.True(t, first.Values[0].Price.Equal(second.Values[0].Price))
	assert.Equal(t, first.Values[0].SampleCount, second.Values[0].SampleCount)
}

func TestTrimmedMedian_AggregateEmpty(t *testing.T) {
	agg := newAggregator(DefaultTrimmedMedianConfig())

	_, err := agg.Aggregate(NewAccumulator(false))
	assert.ErrorIs(t, err, ErrNoSourcePrices)

	_, err = agg.Aggregate(nil)
	assert.ErrorIs(t, err, ErrNoSourcePrices)
}

func TestNewTrimmedMedianAggregator_Defaults(t *testing.T) {
	agg := NewTrimmedMedianAggregator(TrimmedMedianConfig{}, nil)
	assert.Equal(t, 3, agg.cfg.MinSamples)
	assert.Equal(t, 4, agg.cfg.TrimMinSamples)
	assert.True(t, agg.cfg.StdDevMultiplier.Equal(decimal.NewFromInt(1)))
	assert.Empty(t, agg.cfg.QuoteFilter)
}
