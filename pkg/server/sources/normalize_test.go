package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitters(t *testing.T) {
	tests := []struct {
		name   string
		split  SymbolSplitter
		native string
		want   Pair
		ok     bool
	}{
		{"underscore", SplitDelimited("_"), "BTC_USDT", Pair{"BTC", "USDT"}, true},
		{"dash lower", SplitDelimited("-"), "eth-usd", Pair{"ETH", "USD"}, true},
		{"slash", SplitDelimited("/"), "BTC/USD", Pair{"BTC", "USD"}, true},
		{"no delimiter", SplitDelimited("-"), "BTCUSD", Pair{}, false},
		{"empty side", SplitDelimited("-"), "BTC-", Pair{}, false},
		{"reversed", SplitReversed("_"), "USDT_BTC", Pair{"BTC", "USDT"}, true},
		{"concat usdt", SplitConcatenated(KnownQuotes), "BTCUSDT", Pair{"BTC", "USDT"}, true},
		{"concat longest wins", SplitConcatenated(KnownQuotes), "ETHFDUSD", Pair{"ETH", "FDUSD"}, true},
		{"concat usd", SplitConcatenated(KnownQuotes), "btcusd", Pair{"BTC", "USD"}, true},
		{"concat btc quote", SplitConcatenated(KnownQuotes), "ETHBTC", Pair{"ETH", "BTC"}, true},
		{"concat quote only", SplitConcatenated(KnownQuotes), "USDT", Pair{}, false},
		{"concat unknown", SplitConcatenated(KnownQuotes), "ABCXYZ", Pair{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.split(tt.native)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePair(t *testing.T) {
	assert.Equal(t, Pair{"BTC", "USD"}, NormalizePair(Pair{"BTC", "USDT"}))
	assert.Equal(t, Pair{"BTC", "USD"}, NormalizePair(Pair{"WBTC", "USDC"}))
	assert.Equal(t, Pair{"ETH", "EUR"}, NormalizePair(Pair{"ETH", "EUR"}))
}
