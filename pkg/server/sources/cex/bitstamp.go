package cex

import (
	"context"
	"encoding/json"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const bitstampAPIURL = "https://www.bitstamp.net/api/v2/ticker/"

var bitstampSymbols = sources.SplitDelimited("/")

// BitstampSource fetches all tickers from Bitstamp v2 API.
type BitstampSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*BitstampSource)(nil)

// BitstampTicker is one market from the all-tickers endpoint.
type BitstampTicker struct {
	Pair      string `json:"pair"` // e.g., "BTC/USD"
	Last      string `json:"last"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Volume    string `json:"volume"`
	Timestamp string `json:"timestamp"`
}

// NewBitstampSource creates a new Bitstamp REST source.
func NewBitstampSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("bitstamp", sources.SourceTypeCEX, bitstampAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &BitstampSource{BaseSource: base}, nil
}

// FetchSamples fetches all tickers.
func (s *BitstampSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts the all-tickers payload.
func (s *BitstampSource) Parse(body []byte) ([]sources.Sample, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}

	batch := s.NewBatch(len(records))
	decodeEach(batch, records, func(t BitstampTicker) {
		pair, ok := s.ResolvePair(t.Pair, bitstampSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.Last, t.Pair)
	})
	return batch.Samples(), nil
}
