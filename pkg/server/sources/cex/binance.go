package cex

import (
	"context"
	"encoding/json"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

// binance.us serves US clients; set api_url for binance.com.
const binanceAPIURL = "https://api.binance.us/api/v3/ticker/price"

var binanceSymbols = sources.SplitConcatenated(sources.KnownQuotes)

// BinanceSource fetches last prices from Binance REST API.
type BinanceSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*BinanceSource)(nil)

// BinanceTicker represents a ticker price response from Binance.
type BinanceTicker struct {
	Symbol string `json:"symbol"` // e.g., "BTCUSDT"
	Price  string `json:"price"`  // Current price
}

// NewBinanceSource creates a new Binance REST source.
func NewBinanceSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("binance", sources.SourceTypeCEX, binanceAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &BinanceSource{BaseSource: base}, nil
}

// FetchSamples fetches all ticker prices.
func (s *BinanceSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a ticker/price payload. Symbols are concatenated ("BTCUSDT")
// and split on the longest known quote suffix.
func (s *BinanceSource) Parse(body []byte) ([]sources.Sample, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}

	batch := s.NewBatch(len(records))
	decodeEach(batch, records, func(t BinanceTicker) {
		pair, ok := s.ResolvePair(t.Symbol, binanceSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.Price, t.Symbol)
	})
	return batch.Samples(), nil
}
