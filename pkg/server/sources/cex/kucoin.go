package cex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const kucoinAPIURL = "https://api.kucoin.com/api/v1/market/allTickers"

var kucoinSymbols = sources.SplitDelimited("-")

// KucoinSource fetches all tickers from KuCoin REST API.
type KucoinSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*KucoinSource)(nil)

// KucoinTicker represents a ticker from KuCoin API.
// Last is null for markets without trades.
type KucoinTicker struct {
	Symbol      string `json:"symbol"`      // e.g., "BTC-USDT"
	Buy         string `json:"buy"`         // Best bid price
	Sell        string `json:"sell"`        // Best ask price
	Last        string `json:"last"`        // Last traded price
	Vol         string `json:"vol"`         // 24h volume (base currency)
	VolValue    string `json:"volValue"`    // 24h volume (quote currency)
	ChangeRate  string `json:"changeRate"`  // 24h change rate
	ChangePrice string `json:"changePrice"` // 24h change
}

// KucoinResponse represents the allTickers response.
type KucoinResponse struct {
	Code string `json:"code"` // "200000" for success
	Msg  string `json:"msg"`
	Data struct {
		Time   int64             `json:"time"`
		Ticker []json.RawMessage `json:"ticker"`
	} `json:"data"`
}

// NewKucoinSource creates a new KuCoin REST source.
func NewKucoinSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("kucoin", sources.SourceTypeCEX, kucoinAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &KucoinSource{BaseSource: base}, nil
}

// FetchSamples fetches all tickers.
func (s *KucoinSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts an allTickers payload.
func (s *KucoinSource) Parse(body []byte) ([]sources.Sample, error) {
	var resp KucoinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}
	if resp.Code != "200000" {
		return nil, s.ParseFailure(fmt.Errorf("%w: code=%s msg=%s", sources.ErrAPIError, resp.Code, resp.Msg))
	}

	batch := s.NewBatch(len(resp.Data.Ticker))
	decodeEach(batch, resp.Data.Ticker, func(t KucoinTicker) {
		pair, ok := s.ResolvePair(t.Symbol, kucoinSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.Last, t.Symbol)
	})
	return batch.Samples(), nil
}
