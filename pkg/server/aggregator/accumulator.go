package aggregator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

// Accumulator groups sample prices by pair. It is not safe for concurrent
// use; the round collects samples first and fills the accumulator after all
// fetches have finished.
type Accumulator struct {
	normalize bool
	groups    map[sources.Pair][]decimal.Decimal
	sources   map[sources.Pair]map[string]struct{}
	samples   int
}

// NewAccumulator creates an empty accumulator. When normalize is set,
// stablecoin quotes are folded onto their fiat equivalent before grouping.
func NewAccumulator(normalize bool) *Accumulator {
	return &Accumulator{
		normalize: normalize,
		groups:    make(map[sources.Pair][]decimal.Decimal),
		sources:   make(map[sources.Pair]map[string]struct{}),
	}
}

// Add appends samples in the order given.
func (a *Accumulator) Add(samples ...sources.Sample) {
	for _, s := range samples {
		pair := s.Pair
		if a.normalize {
			pair = sources.NormalizePair(pair)
		}
		a.groups[pair] = append(a.groups[pair], s.Price)
		if a.sources[pair] == nil {
			a.sources[pair] = make(map[string]struct{})
		}
		a.sources[pair][s.Source] = struct{}{}
		a.samples++
	}
}

// Pairs returns every accumulated pair sorted by canonical name.
func (a *Accumulator) Pairs() []sources.Pair {
	pairs := make([]sources.Pair, 0, len(a.groups))
	for p := range a.groups {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].String() < pairs[j].String()
	})
	return pairs
}

// Prices returns a copy of the prices collected for pair, in insertion order.
func (a *Accumulator) Prices(pair sources.Pair) []decimal.Decimal {
	prices := a.groups[pair]
	out := make([]decimal.Decimal, len(prices))
	copy(out, prices)
	return out
}

// Sources returns the sorted names of the sources that contributed to pair.
func (a *Accumulator) Sources(pair sources.Pair) []string {
	names := make([]string, 0, len(a.sources[pair]))
	for n := range a.sources[pair] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct pairs.
func (a *Accumulator) Len() int {
	return len(a.groups)
}

// SampleCount returns the total number of samples added.
func (a *Accumulator) SampleCount() int {
	return a.samples
}
