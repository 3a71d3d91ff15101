package cex

import (
	"context"
	"encoding/json"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const gateioAPIURL = "https://api.gateio.ws/api/v4/spot/tickers"

var gateioSymbols = sources.SplitDelimited("_")

// GateioSource fetches spot tickers from Gate.io REST API.
type GateioSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*GateioSource)(nil)

// GateioTicker represents a ticker response from Gate.io.
// Ask and bid may be empty strings for illiquid markets.
type GateioTicker struct {
	CurrencyPair     string `json:"currency_pair"`
	Last             string `json:"last"`
	LowestAsk        string `json:"lowest_ask"`
	HighestBid       string `json:"highest_bid"`
	ChangePercentage string `json:"change_percentage"`
	BaseVolume       string `json:"base_volume"`
	QuoteVolume      string `json:"quote_volume"`
	High24h          string `json:"high_24h"`
	Low24h           string `json:"low_24h"`
}

// NewGateioSource creates a new Gate.io REST source.
func NewGateioSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("gateio", sources.SourceTypeCEX, gateioAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &GateioSource{BaseSource: base}, nil
}

// FetchSamples fetches all spot tickers.
func (s *GateioSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a tickers payload. Symbols look like "BTC_USDT".
func (s *GateioSource) Parse(body []byte) ([]sources.Sample, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}

	batch := s.NewBatch(len(records))
	decodeEach(batch, records, func(t GateioTicker) {
		pair, ok := s.ResolvePair(t.CurrencyPair, gateioSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.Last, t.CurrencyPair)
	})
	return batch.Samples(), nil
}
