package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_GroupsByPair(t *testing.T) {
	acc := NewAccumulator(false)
	acc.Add(samples(t, "BTC/USD", "2", "1")...)
	acc.Add(samples(t, "ATOM/USD", "9")...)
	acc.Add(samples(t, "BTC/USD", "3")...)

	assert.Equal(t, 2, acc.Len())
	assert.Equal(t, 4, acc.SampleCount())

	pairs := acc.Pairs()
	assert.Equal(t, "ATOM/USD", pairs[0].String())
	assert.Equal(t, "BTC/USD", pairs[1].String())

	prices := acc.Prices(pair(t, "BTC/USD"))
	assert.Equal(t, []string{"2", "1", "3"}, []string{prices[0].String(), prices[1].String(), prices[2].String()})
	assert.Equal(t, []string{"a", "b"}, acc.Sources(pair(t, "BTC/USD")))
}

func TestAccumulator_PricesIsACopy(t *testing.T) {
	acc := NewAccumulator(false)
	acc.Add(samples(t, "BTC/USD", "1")...)

	prices := acc.Prices(pair(t, "BTC/USD"))
	prices[0] = prices[0].Add(prices[0])

	assert.Equal(t, "1", acc.Prices(pair(t, "BTC/USD"))[0].String())
}

func TestAccumulator_Normalize(t *testing.T) {
	plain := NewAccumulator(false)
	plain.Add(samples(t, "BTC/USDT", "1")...)
	plain.Add(samples(t, "BTC/USD", "2")...)
	assert.Equal(t, 2, plain.Len())

	folded := NewAccumulator(true)
	folded.Add(samples(t, "BTC/USDT", "1")...)
	folded.Add(samples(t, "WBTC/USD", "2")...)
	assert.Equal(t, 1, folded.Len())
	assert.Len(t, folded.Prices(pair(t, "BTC/USD")), 2)
}
