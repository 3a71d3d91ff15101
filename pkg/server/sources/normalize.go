package sources

import (
	"sort"
	"strings"
)

// SymbolSplitter maps an exchange-native symbol to a canonical pair.
type SymbolSplitter func(native string) (Pair, bool)

// KnownQuotes are the quote currencies recognized when an exchange
// concatenates base and quote without a delimiter.
var KnownQuotes = []string{
	"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "USDP", "USDD", "DAI", "USD",
	"EUR", "GBP", "TRY", "BRL", "JPY", "AUD", "CAD", "CHF",
	"BTC", "ETH", "BNB",
}

// SplitDelimited splits symbols such as "BTC_USDT", "BTC-USDT" or "btc/usd".
func SplitDelimited(sep string) SymbolSplitter {
	return func(native string) (Pair, bool) {
		base, quote, ok := strings.Cut(native, sep)
		if !ok {
			return Pair{}, false
		}
		pair, err := NewPair(strings.ToUpper(base), strings.ToUpper(quote))
		return pair, err == nil
	}
}

// SplitReversed splits quote-first symbols such as Poloniex "USDT_BTC".
func SplitReversed(sep string) SymbolSplitter {
	return func(native string) (Pair, bool) {
		quote, base, ok := strings.Cut(native, sep)
		if !ok {
			return Pair{}, false
		}
		pair, err := NewPair(strings.ToUpper(base), strings.ToUpper(quote))
		return pair, err == nil
	}
}

// SplitConcatenated splits symbols such as "BTCUSDT" by matching the
// longest known quote suffix. The base must stay non-empty.
func SplitConcatenated(quotes []string) SymbolSplitter {
	ordered := append([]string(nil), quotes...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	return func(native string) (Pair, bool) {
		symbol := strings.ToUpper(native)
		for _, quote := range ordered {
			if len(symbol) > len(quote) && strings.HasSuffix(symbol, quote) {
				pair, err := NewPair(symbol[:len(symbol)-len(quote)], quote)
				return pair, err == nil
			}
		}
		return Pair{}, false
	}
}

// Symbol normalization folds equivalent trading pairs onto one canonical pair
// so that BTC/USDT, BTC/USDC and BTC/USD aggregate together.

// Stablecoin aliases - all considered equivalent to USD
var stablecoinAliases = map[string]string{
	"USDT":  "USD",
	"USDC":  "USD",
	"BUSD":  "USD",
	"FDUSD": "USD",
	"DAI":   "USD",
	"TUSD":  "USD",
	"USDD":  "USD",
	"USDP":  "USD",
}

// Base currency aliases
var baseCurrencyAliases = map[string]string{
	"WBTC":  "BTC",
	"WETH":  "ETH",
	"STETH": "ETH",
}

// NormalizePair converts a pair to its canonical oracle form
// Examples:
//   - BTC/USDT -> BTC/USD
//   - WBTC/USD -> BTC/USD
//   - ETH/EUR -> ETH/EUR (no change)
func NormalizePair(p Pair) Pair {
	base := strings.ToUpper(p.Base)
	quote := strings.ToUpper(p.Quote)

	if normalized, ok := baseCurrencyAliases[base]; ok {
		base = normalized
	}
	if normalized, ok := stablecoinAliases[quote]; ok {
		quote = normalized
	}

	return Pair{Base: base, Quote: quote}
}
