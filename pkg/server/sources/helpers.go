package sources

import (
	"fmt"
	"strings"
	"time"

	"github.com/StrathCole/oracle-push/pkg/logging"
)

// GetLoggerFromConfig extracts logger from config map or returns a default noop logger.
// If no logger is configured, returns a noop logger to prevent nil pointer dereferences.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok && logger != nil {
			return logger
		}
	}

	return logging.NewNoopLogger()
}

// ParsePairsFromMap extracts pair mappings from config where pairs is a map.
// Expected format: pairs: { "BTC/USDT": "BTCUSDT", "ETH/USD": "tETHUSD" }.
func ParsePairsFromMap(config map[string]interface{}) (map[string]string, error) {
	pairsRaw, ok := config["pairs"]
	if !ok {
		return nil, fmt.Errorf("%w: 'pairs' key", ErrInvalidConfig)
	}

	pairsMap, ok := pairsRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: pairs must be map[string]string", ErrInvalidConfig)
	}

	pairs := make(map[string]string, len(pairsMap))
	for unified, sourceRaw := range pairsMap {
		source, ok := sourceRaw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T", ErrInvalidConfig, unified, sourceRaw)
		}
		if err := ValidateSymbolFormat(unified); err != nil {
			return nil, fmt.Errorf("unified symbol: %w", err)
		}
		pairs[unified] = source
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w", ErrNoPairsConfiguredHelper)
	}

	return pairs, nil
}

// ValidateSymbolFormat checks if a symbol is in valid BASE/QUOTE format
// Valid formats:
//   - "BTC/USD", "ETH/USDT" (crypto pairs)
//   - "EUR/USD" (fiat pairs)
//
// Invalid formats:
//   - "BTC" (no quote currency)
//   - "BTCUSDT" (no separator)
//   - "" (empty).
func ValidateSymbolFormat(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w", ErrInvalidSymbolFormat)
	}

	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %s", ErrInvalidSymbolFormat, symbol)
	}

	base := strings.TrimSpace(parts[0])
	quote := strings.TrimSpace(parts[1])

	if base == "" {
		return fmt.Errorf("%w: %s", ErrEmptyBaseCurrency, symbol)
	}
	if quote == "" {
		return fmt.Errorf("%w: %s", ErrEmptyQuoteCurrency, symbol)
	}

	return nil
}

// Helper functions for extracting values from maps

func getIntFromMap(m map[string]interface{}, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case int64:
		return int(v)
	default:
		return defaultVal
	}
}

func getFloatFromMap(m map[string]interface{}, key string, defaultVal float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultVal
	}
}

func getDurationFromMap(m map[string]interface{}, key string, defaultVal time.Duration) (time.Duration, error) {
	switch v := m[key].(type) {
	case nil:
		return defaultVal, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		return d, nil
	case time.Duration:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a duration string", ErrInvalidConfig, key)
	}
}
