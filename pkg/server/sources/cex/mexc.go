package cex

import (
	"context"
	"encoding/json"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const mexcAPIURL = "https://api.mexc.com/api/v3/ticker/price"

var mexcSymbols = sources.SplitConcatenated(sources.KnownQuotes)

// MEXCSource fetches last prices from MEXC REST API.
type MEXCSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*MEXCSource)(nil)

// MEXCTicker represents a ticker price from MEXC.
type MEXCTicker struct {
	Symbol string `json:"symbol"` // e.g., "ETHUSDT"
	Price  string `json:"price"`
}

// NewMEXCSource creates a new MEXC REST source.
func NewMEXCSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("mexc", sources.SourceTypeCEX, mexcAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &MEXCSource{BaseSource: base}, nil
}

// FetchSamples fetches all ticker prices.
func (s *MEXCSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a ticker/price payload.
func (s *MEXCSource) Parse(body []byte) ([]sources.Sample, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}

	batch := s.NewBatch(len(records))
	decodeEach(batch, records, func(t MEXCTicker) {
		pair, ok := s.ResolvePair(t.Symbol, mexcSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.Price, t.Symbol)
	})
	return batch.Samples(), nil
}
