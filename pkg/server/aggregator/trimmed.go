package aggregator

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/metrics"
	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

const methodTrimmedMedian = "trimmed_median"

// Exclusion reasons reported in metrics and logs.
const (
	ReasonInsufficientSamples = "insufficient_samples"
	ReasonQuoteNotAllowed     = "quote_not_allowed"
	ReasonEmptyTrimResult     = "empty_trim_result"
)

// TrimmedMedianConfig controls filtering and outlier trimming.
type TrimmedMedianConfig struct {
	// MinSamples is the smallest sample count a pair needs to be aggregated.
	MinSamples int
	// QuoteFilter must be a substring of the quote; empty disables the filter.
	QuoteFilter string
	// TrimMinSamples is the smallest sample count at which trimming applies.
	TrimMinSamples int
	// StdDevMultiplier is the half-width of the retained band in standard
	// deviations.
	StdDevMultiplier decimal.Decimal
}

// DefaultTrimmedMedianConfig returns the production defaults.
func DefaultTrimmedMedianConfig() TrimmedMedianConfig {
	return TrimmedMedianConfig{
		MinSamples:       3,
		QuoteFilter:      "USD",
		TrimMinSamples:   4,
		StdDevMultiplier: decimal.NewFromInt(1),
	}
}

// ConsensusValue is the aggregated price of one pair.
type ConsensusValue struct {
	Pair  sources.Pair    `json:"pair"`
	Price decimal.Decimal `json:"price"`
	// SampleCount is the number of samples left after trimming.
	SampleCount int `json:"sample_count"`
	// Total is the number of samples collected for the pair.
	Total  int             `json:"total"`
	Mean   decimal.Decimal `json:"mean"`
	StdDev decimal.Decimal `json:"std_dev"`
}

// Exclusion records why a pair produced no value.
type Exclusion struct {
	Pair        sources.Pair
	SampleCount int
	Reason      error
}

// ReasonLabel returns the metric label for the exclusion.
func (e Exclusion) ReasonLabel() string {
	switch {
	case errors.Is(e.Reason, ErrInsufficientSamples):
		return ReasonInsufficientSamples
	case errors.Is(e.Reason, ErrQuoteNotAllowed):
		return ReasonQuoteNotAllowed
	case errors.Is(e.Reason, ErrEmptyTrimResult):
		return ReasonEmptyTrimResult
	default:
		return "other"
	}
}

// Result is the outcome of one aggregation pass. Values and Exclusions are
// both sorted by pair name.
type Result struct {
	Values     []ConsensusValue
	Exclusions []Exclusion
}

// TrimmedMedianAggregator takes the median of each pair after discarding
// prices that fall outside median ± k·σ.
type TrimmedMedianAggregator struct {
	cfg    TrimmedMedianConfig
	logger *logging.Logger
}

var _ Aggregator = (*TrimmedMedianAggregator)(nil)

// NewTrimmedMedianAggregator creates an aggregator. Zero fields in cfg fall
// back to the defaults, except QuoteFilter where empty means no filter.
func NewTrimmedMedianAggregator(cfg TrimmedMedianConfig, logger *logging.Logger) *TrimmedMedianAggregator {
	def := DefaultTrimmedMedianConfig()
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.TrimMinSamples <= 0 {
		cfg.TrimMinSamples = def.TrimMinSamples
	}
	if !cfg.StdDevMultiplier.IsPositive() {
		cfg.StdDevMultiplier = def.StdDevMultiplier
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &TrimmedMedianAggregator{cfg: cfg, logger: logger}
}

// Aggregate computes a consensus value for every accumulated pair.
func (a *TrimmedMedianAggregator) Aggregate(acc *Accumulator) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation(methodTrimmedMedian, time.Since(start))
	}()

	if acc == nil || acc.SampleCount() == 0 {
		return Result{}, ErrNoSourcePrices
	}

	var res Result
	for _, pair := range acc.Pairs() {
		prices := acc.Prices(pair)
		value, err := a.Reduce(pair, prices)
		if err != nil {
			ex := Exclusion{Pair: pair, SampleCount: len(prices), Reason: err}
			res.Exclusions = append(res.Exclusions, ex)
			metrics.RecordPairExclusion(ex.ReasonLabel())
			a.logger.Debug("Pair excluded", "pair", pair.String(), "samples", len(prices), "reason", ex.ReasonLabel())
			continue
		}
		res.Values = append(res.Values, value)
	}

	a.logger.Debug("Aggregation complete",
		"pairs", acc.Len(),
		"values", len(res.Values),
		"excluded", len(res.Exclusions),
	)
	return res, nil
}

// Reduce computes the consensus value of a single pair.
func (a *TrimmedMedianAggregator) Reduce(pair sources.Pair, prices []decimal.Decimal) (ConsensusValue, error) {
	if a.cfg.QuoteFilter != "" && !strings.Contains(pair.Quote, a.cfg.QuoteFilter) {
		return ConsensusValue{}, ErrQuoteNotAllowed
	}
	if len(prices) < a.cfg.MinSamples {
		return ConsensusValue{}, ErrInsufficientSamples
	}

	median, err := Median(prices)
	if err != nil {
		return ConsensusValue{}, err
	}
	mean, err := Mean(prices)
	if err != nil {
		return ConsensusValue{}, err
	}
	stddev, err := StdDev(prices)
	if err != nil {
		return ConsensusValue{}, err
	}

	value := ConsensusValue{
		Pair:        pair,
		Price:       median,
		SampleCount: len(prices),
		Total:       len(prices),
		Mean:        mean,
		StdDev:      stddev,
	}

	// Identical prices have no spread to trim against.
	if len(prices) < a.cfg.TrimMinSamples || stddev.IsZero() {
		return value, nil
	}

	band := stddev.Mul(a.cfg.StdDevMultiplier)
	lower := median.Sub(band)
	upper := median.Add(band)

	retained := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		if p.GreaterThan(lower) && p.LessThan(upper) {
			retained = append(retained, p)
			continue
		}
		a.logger.Debug("Rejected outlier",
			"pair", pair.String(),
			"price", p.String(),
			"median", median.String(),
			"band", band.String(),
		)
	}

	if rejected := len(prices) - len(retained); rejected > 0 {
		metrics.RecordOutlierRejection(pair.String(), rejected)
	}
	if len(retained) == 0 {
		return ConsensusValue{}, ErrEmptyTrimResult
	}

	trimmed, err := Median(retained)
	if err != nil {
		return ConsensusValue{}, err
	}
	value.Price = trimmed
	value.SampleCount = len(retained)
	return value, nil
}
