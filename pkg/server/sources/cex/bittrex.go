package cex

import (
	"context"
	"encoding/json"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const bittrexAPIURL = "https://api.bittrex.com/v3/markets/tickers"

var bittrexSymbols = sources.SplitDelimited("-")

// BittrexSource fetches market tickers from Bittrex v3 API.
type BittrexSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*BittrexSource)(nil)

// BittrexTicker represents one market. Bid and ask may be empty.
type BittrexTicker struct {
	Symbol        string `json:"symbol"` // e.g., "BTC-USD"
	LastTradeRate string `json:"lastTradeRate"`
	BidRate       string `json:"bidRate"`
	AskRate       string `json:"askRate"`
}

// NewBittrexSource creates a new Bittrex REST source.
func NewBittrexSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("bittrex", sources.SourceTypeCEX, bittrexAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &BittrexSource{BaseSource: base}, nil
}

// FetchSamples fetches all market tickers.
func (s *BittrexSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a markets/tickers payload.
func (s *BittrexSource) Parse(body []byte) ([]sources.Sample, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}

	batch := s.NewBatch(len(records))
	decodeEach(batch, records, func(t BittrexTicker) {
		pair, ok := s.ResolvePair(t.Symbol, bittrexSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.LastTradeRate, t.Symbol)
	})
	return batch.Samples(), nil
}
