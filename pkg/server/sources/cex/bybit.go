package cex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const bybitAPIURL = "https://api.bybit.com/v5/market/tickers?category=spot"

var bybitSymbols = sources.SplitConcatenated(sources.KnownQuotes)

// BybitSource fetches spot tickers from Bybit v5 REST API.
type BybitSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*BybitSource)(nil)

// BybitTicker is one entry of result.list.
type BybitTicker struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Volume24h string `json:"volume24h"`
}

// BybitResponse represents the response from Bybit API.
type BybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string            `json:"category"`
		List     []json.RawMessage `json:"list"`
	} `json:"result"`
}

// NewBybitSource creates a new Bybit REST source.
func NewBybitSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("bybit", sources.SourceTypeCEX, bybitAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &BybitSource{BaseSource: base}, nil
}

// FetchSamples fetches all spot tickers.
func (s *BybitSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a tickers payload.
func (s *BybitSource) Parse(body []byte) ([]sources.Sample, error) {
	var resp BybitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}
	if resp.RetCode != 0 {
		return nil, s.ParseFailure(fmt.Errorf("%w: retCode=%d msg=%s", sources.ErrAPIError, resp.RetCode, resp.RetMsg))
	}

	batch := s.NewBatch(len(resp.Result.List))
	decodeEach(batch, resp.Result.List, func(t BybitTicker) {
		pair, ok := s.ResolvePair(t.Symbol, bybitSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.LastPrice, t.Symbol)
	})
	return batch.Samples(), nil
}
