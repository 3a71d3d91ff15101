package cex

import (
	"context"
	"encoding/json"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const poloniexAPIURL = "https://poloniex.com/public?command=returnTicker"

// Poloniex names markets quote first: "USDT_BTC" is BTC priced in USDT.
var poloniexSymbols = sources.SplitReversed("_")

// PoloniexSource fetches the legacy returnTicker table from Poloniex.
type PoloniexSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*PoloniexSource)(nil)

// PoloniexTicker is one market of returnTicker.
type PoloniexTicker struct {
	ID            int64     `json:"id"`
	Last          flexPrice `json:"last"`
	LowestAsk     flexPrice `json:"lowestAsk"`
	HighestBid    flexPrice `json:"highestBid"`
	PercentChange flexPrice `json:"percentChange"`
	BaseVolume    flexPrice `json:"baseVolume"`
	QuoteVolume   flexPrice `json:"quoteVolume"`
	IsFrozen      flexPrice `json:"isFrozen"`
}

// NewPoloniexSource creates a new Poloniex REST source.
func NewPoloniexSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("poloniex", sources.SourceTypeCEX, poloniexAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &PoloniexSource{BaseSource: base}, nil
}

// FetchSamples fetches the ticker table.
func (s *PoloniexSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a returnTicker payload keyed by market name.
func (s *PoloniexSource) Parse(body []byte) ([]sources.Sample, error) {
	var records map[string]json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}

	batch := s.NewBatch(len(records))
	decodeKeyed(batch, records, func(market string, t PoloniexTicker) {
		pair, ok := s.ResolvePair(market, poloniexSymbols)
		if !ok {
			return
		}
		if t.IsFrozen == "1" {
			return
		}
		batch.AddRaw(pair, string(t.Last), market)
	})
	return batch.Samples(), nil
}
