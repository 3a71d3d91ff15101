package cex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const okxAPIURL = "https://www.okx.com/api/v5/market/tickers?instType=SPOT"

var okxSymbols = sources.SplitDelimited("-")

// OKXSource fetches spot tickers from OKX REST API.
type OKXSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*OKXSource)(nil)

// OKXTicker represents a ticker from OKX API.
type OKXTicker struct {
	InstID    string `json:"instId"`    // Instrument ID (e.g., "BTC-USDT")
	Last      string `json:"last"`      // Last traded price
	LastSz    string `json:"lastSz"`    // Last traded size
	AskPx     string `json:"askPx"`     // Best ask price
	BidPx     string `json:"bidPx"`     // Best bid price
	Vol24h    string `json:"vol24h"`    // 24h trading volume
	VolCcy24h string `json:"volCcy24h"` // 24h trading volume in quote currency
	Ts        string `json:"ts"`        // Ticker data generation time
}

// OKXResponse is the envelope of every OKX v5 response.
type OKXResponse struct {
	Code string            `json:"code"` // "0" on success
	Msg  string            `json:"msg"`
	Data []json.RawMessage `json:"data"`
}

// NewOKXSource creates a new OKX REST source.
func NewOKXSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("okx", sources.SourceTypeCEX, okxAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &OKXSource{BaseSource: base}, nil
}

// FetchSamples fetches all spot tickers.
func (s *OKXSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts a tickers payload.
func (s *OKXSource) Parse(body []byte) ([]sources.Sample, error) {
	var resp OKXResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}
	if resp.Code != "0" {
		return nil, s.ParseFailure(fmt.Errorf("%w: code=%s msg=%s", sources.ErrAPIError, resp.Code, resp.Msg))
	}

	batch := s.NewBatch(len(resp.Data))
	decodeEach(batch, resp.Data, func(t OKXTicker) {
		pair, ok := s.ResolvePair(t.InstID, okxSymbols)
		if !ok {
			return
		}
		batch.AddRaw(pair, t.Last, t.InstID)
	})
	return batch.Samples(), nil
}
