package cex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const huobiAPIURL = "https://api.huobi.pro/market/tickers"

var huobiSymbols = sources.SplitConcatenated(sources.KnownQuotes)

// HuobiSource fetches market tickers from Huobi (HTX) REST API.
type HuobiSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*HuobiSource)(nil)

// HuobiTicker represents a ticker from Huobi API. Prices are JSON numbers.
type HuobiTicker struct {
	Symbol string    `json:"symbol"` // e.g., "btcusdt"
	Open   flexPrice `json:"open"`
	High   flexPrice `json:"high"`
	Low    flexPrice `json:"low"`
	Close  flexPrice `json:"close"` // Last price
	Amount flexPrice `json:"amount"`
	Vol    flexPrice `json:"vol"`
	Count  int64     `json:"count"`
}

// HuobiResponse represents the response from Huobi API.
type HuobiResponse struct {
	Status  string            `json:"status"` // "ok" or "error"
	ErrMsg  string            `json:"err-msg"`
	Ts      int64             `json:"ts"`
	Data    []json.RawMessage `json:"data"`
	ErrCode string            `json:"err-code"`
}

// NewHuobiSource creates a new Huobi REST source.
func NewHuobiSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("huobi", sources.SourceTypeCEX, huobiAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &HuobiSource{BaseSource: base}, nil
}

// FetchSamples fetches all market tickers.
func (s *HuobiSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a market/tickers payload. Symbols are lower-case and concatenated.
func (s *HuobiSource) Parse(body []byte) ([]sources.Sample, error) {
	var resp HuobiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}
	if resp.Status != "ok" {
		return nil, s.ParseFailure(fmt.Errorf("%w: status=%s code=%s msg=%s", sources.ErrAPIError, resp.Status, resp.ErrCode, resp.ErrMsg))
	}

	batch := s.NewBatch(len(resp.Data))
	decodeEach(batch, resp.Data, func(t HuobiTicker) {
		pair, ok := s.ResolvePair(t.Symbol, huobiSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, string(t.Close), t.Symbol)
	})
	return batch.Samples(), nil
}
