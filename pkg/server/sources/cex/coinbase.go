package cex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const coinbaseAPIURL = "https://api.coinbase.com/v2/exchange-rates?currency=USD"

// coinbaseInversePrecision is the number of fractional digits kept when
// inverting a rate; it matches the published fixed-point scale.
const coinbaseInversePrecision = 18

// CoinbaseSource derives prices from Coinbase exchange rates. Rates are
// quoted as units of asset per one unit of the base currency, so the price
// of an asset is 1/rate.
type CoinbaseSource struct {
	*sources.BaseSource
}

var _ sources.NormalizedSampleSource = (*CoinbaseSource)(nil)

// CoinbaseResponse represents the exchange-rates response.
type CoinbaseResponse struct {
	Data struct {
		Currency string                     `json:"currency"`
		Rates    map[string]json.RawMessage `json:"rates"`
	} `json:"data"`
}

// NewCoinbaseSource creates a new Coinbase exchange-rates source.
func NewCoinbaseSource(config map[string]interface{}) (sources.NormalizedSampleSource, error) {
	base, err := sources.NewBaseSource("coinbase", sources.SourceTypeCEX, coinbaseAPIURL, config)
	if err != nil {
		return nil, err
	}
	return &CoinbaseSource{BaseSource: base}, nil
}

// FetchSamples fetches the exchange-rate table.
func (s *CoinbaseSource) FetchSamples(ctx context.Context) ([]sources.Sample, error) {
	return s.Collect(ctx, s.APIURL(), s.Parse)
}

// Parse converts an exchange-rates payload. Each asset code becomes the base
// and data.currency the quote.
func (s *CoinbaseSource) Parse(body []byte) ([]sources.Sample, error) {
	var resp CoinbaseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.ParseFailure(invalidResponse(err))
	}
	if resp.Data.Currency == "" {
		return nil, s.ParseFailure(fmt.Errorf("%w: missing data.currency", sources.ErrInvalidResponse))
	}
	quote := resp.Data.Currency
	one := decimal.NewFromInt(1)

	batch := s.NewBatch(len(resp.Data.Rates))
	decodeKeyed(batch, resp.Data.Rates, func(asset string, raw flexPrice) {
		if asset == quote {
			return
		}
		pair, ok := s.ResolvePair(asset, func(native string) (sources.Pair, bool) {
			p, err := sources.NewPair(native, quote)
			return p, err == nil
		})
		if !ok {
			return
		}
		rate, err := sources.ParsePrice(string(raw))
		if err != nil {
			batch.Skip(asset, err)
			return
		}
		batch.AddPrice(pair, one.DivRound(rate, coinbaseInversePrecision), asset)
	})
	return batch.Samples(), nil
}
