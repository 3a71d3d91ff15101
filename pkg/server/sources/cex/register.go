package cex

import (
	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

func init() {
	// Register all CEX sources
	sources.Register("cex.binance", NewBinanceSource)
	sources.Register("cex.bitfinex", NewBitfinexSource)
	sources.Register("cex.bitstamp", NewBitstampSource)
	sources.Register("cex.bittrex", NewBittrexSource)
	sources.Register("cex.bybit", NewBybitSource)
	sources.Register("cex.coinbase", NewCoinbaseSource)
	sources.Register("cex.gateio", NewGateioSource)
	sources.Register("cex.huobi", NewHuobiSource)
	sources.Register("cex.kraken", NewKrakenSource)
	sources.Register("cex.kucoin", NewKucoinSource)
	sources.Register("cex.mexc", NewMEXCSource)
	sources.Register("cex.okx", NewOKXSource)
	sources.Register("cex.poloniex", NewPoloniexSource)
}
