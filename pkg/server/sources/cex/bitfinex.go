package cex

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const bitfinexAPIURL = "https://api-pub.bitfinex.com/v2/tickers?symbols=ALL"

// Trading ticker layout:
// [SYMBOL, BID, BID_SIZE, ASK, ASK_SIZE, DAILY_CHANGE, DAILY_CHANGE_RELATIVE, LAST_PRICE, VOLUME, HIGH, LOW]
const bitfinexLastPriceIndex = "7"

// bitfinexCurrencies maps Bitfinex currency codes to common tickers.
var bitfinexCurrencies = map[string]string{
	"UST": "USDT",
	"UDC": "USDC",
}

// BitfinexSource fetches tickers from Bitfinex public v2 API.
type BitfinexSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*BitfinexSource)(nil)

// NewBitfinexSource creates a new Bitfinex REST source.
func NewBitfinexSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("bitfinex", sources.SourceTypeCEX, bitfinexAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &BitfinexSource{BaseSource: base}, nil
}

// FetchSamples fetches all tickers.
func (s *BitfinexSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts the positional array-of-arrays payload. Funding tickers
// ("fUSD") have a different layout and are ignored.
func (s *BitfinexSource) Parse(body []byte) ([]sources.Sample, error) {
	if !gjson.ValidBytes(body) {
		return nil, s.ParseFailure(fmt.Errorf("%w: malformed JSON", sources.ErrInvalidResponse))
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, s.ParseFailure(fmt.Errorf("%w: expected array, got %s", sources.ErrInvalidResponse, root.Type))
	}

	tickers := root.Array()
	batch := s.NewBatch(len(tickers))
	for i, ticker := range tickers {
		symbol := ticker.Get("0")
		if !ticker.IsArray() || symbol.Type != gjson.String {
			batch.Skip(fmt.Sprintf("#%d", i), sources.ErrInvalidSymbol)
			continue
		}
		native := symbol.String()
		if strings.HasPrefix(native, "f") {
			continue
		}

		pair, ok := s.ResolvePair(native, splitBitfinex)
		if !ok {
			continue
		}

		last := ticker.Get(bitfinexLastPriceIndex)
		if last.Type != gjson.Number {
			batch.Skip(native, sources.ErrEmptyPrice)
			continue
		}
		batch.AddRaw(pair, last.Raw, native)
	}
	return batch.Samples(), nil
}

// splitBitfinex handles "tBTCUSD" and the colon form used for longer
// codes, "tAVAX:USD".
func splitBitfinex(native string) (sources.Pair, bool) {
	symbol, ok := strings.CutPrefix(native, "t")
	if !ok {
		return sources.Pair{}, false
	}

	var base, quote string
	if b, q, found := strings.Cut(symbol, ":"); found {
		base, quote = b, q
	} else if len(symbol) == 6 {
		base, quote = symbol[:3], symbol[3:]
	} else {
		return sources.Pair{}, false
	}

	if alias, ok := bitfinexCurrencies[base]; ok {
		base = alias
	}
	if alias, ok := bitfinexCurrencies[quote]; ok {
		quote = alias
	}

	pair, err := sources.NewPair(base, quote)
	return pair, err == nil
}
