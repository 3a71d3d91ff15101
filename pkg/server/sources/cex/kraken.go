package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const krakenAPIURL = "https://api.kraken.com/0/public/Ticker"

// krakenAssets maps Kraken asset codes to common tickers.
var krakenAssets = map[string]string{
	"XBT": "BTC",
	"XDG": "DOGE",
}

var krakenConcatenated = sources.SplitConcatenated(append([]string{"ZUSD", "ZEUR", "ZGBP", "ZJPY", "ZCAD", "XXBT"}, sources.KnownQuotes...))

// KrakenSource fetches tickers from Kraken REST API.
type KrakenSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*KrakenSource)(nil)

// KrakenTickerData represents ticker data for a single pair from Kraken.
type KrakenTickerData struct {
	A []string `json:"a"` // Ask [price, whole lot volume, lot volume]
	B []string `json:"b"` // Bid [price, whole lot volume, lot volume]
	C []string `json:"c"` // Last trade [price, lot volume]
	V []string `json:"v"` // Volume [today, last 24 hours]
	P []string `json:"p"` // Volume weighted average price [today, last 24 hours]
	T []int    `json:"t"` // Number of trades [today, last 24 hours]
	L []string `json:"l"` // Low [today, last 24 hours]
	H []string `json:"h"` // High [today, last 24 hours]
	O string   `json:"o"` // Today's opening price
}

// KrakenResponse represents the response from Kraken API.
type KrakenResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// NewKrakenSource creates a new Kraken REST source.
func NewKrakenSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("kraken", sources.SourceTypeCEX, krakenAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &KrakenSource{BaseSource: base}, nil
}

// FetchSamples fetches all tickers.
func (s *KrakenSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a Ticker payload. The price is the last trade, c[0].
func (s *KrakenSource) Parse(body []byte) ([]sources.Sample, error) {
	var resp KrakenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}
	if len(resp.Error) > 0 {
		return nil, s.ParseFailure(fmt.Errorf("%w: %s", sources.ErrAPIError, strings.Join(resp.Error, "; ")))
	}

	batch := s.NewBatch(len(resp.Result))
	decodeKeyed(batch, resp.Result, func(symbol string, t KrakenTickerData) {
		pair, ok := s.ResolvePair(symbol, splitKraken)
		if !ok {
			return
		}
		if len(t.C) == 0 {
			batch.Skip(symbol, sources.ErrEmptyPrice)
			return
		}
		batch.AddRaw(pair, t.C[0], symbol)
	})
	return batch.Samples(), nil
}

// splitKraken handles both the legacy eight-character names ("XXBTZUSD",
// "XETHZUSD") and the newer concatenated ones ("SOLUSD", "XBTUSDT").
func splitKraken(native string) (sources.Pair, bool) {
	symbol := strings.ToUpper(native)

	var base, quote string
	if len(symbol) == 8 && isKrakenClass(symbol[0]) && isKrakenClass(symbol[4]) {
		base, quote = symbol[1:4], symbol[5:8]
	} else {
		p, ok := krakenConcatenated(symbol)
		if !ok {
			return sources.Pair{}, false
		}
		base, quote = p.Base, p.Quote
		if len(quote) == 4 && isKrakenClass(quote[0]) {
			quote = quote[1:]
		}
	}

	if alias, ok := krakenAssets[base]; ok {
		base = alias
	}
	if alias, ok := krakenAssets[quote]; ok {
		quote = alias
	}

	pair, err := sources.NewPair(base, quote)
	return pair, err == nil
}

func isKrakenClass(c byte) bool {
	return c == 'X' || c == 'Z'
}
