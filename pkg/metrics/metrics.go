// Package metrics provides Prometheus metrics for the push oracle.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFetchTotal counts adapter fetches by outcome.
	SourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_total",
			Help: "Total number of source fetches by outcome",
		},
		[]string{"source", "status"},
	)

	// SourceSamplesTotal counts normalized samples produced per source.
	SourceSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_samples_total",
			Help: "Total number of normalized samples produced by a source",
		},
		[]string{"source"},
	)

	// SourceSkippedRecordsTotal counts malformed ticker records that were skipped.
	SourceSkippedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_skipped_records_total",
			Help: "Total number of malformed ticker records skipped",
		},
		[]string{"source"},
	)

	// SourceLastUpdate is a gauge of the last successful fetch timestamp.
	SourceLastUpdate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_last_update_timestamp",
			Help: "Unix timestamp of last successful fetch from source",
		},
		[]string{"source"},
	)

	// PriceAggregationDuration is a histogram of price aggregation duration.
	PriceAggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_aggregation_duration_seconds",
			Help:    "Duration of price aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// OutlierRejectionsTotal is a counter of trimmed outlier prices.
	OutlierRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outlier_rejections_total",
			Help: "Total number of outlier prices rejected by trimming",
		},
		[]string{"pair"},
	)

	// PairExclusionsTotal counts pairs dropped from consensus.
	PairExclusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pair_exclusions_total",
			Help: "Total number of pairs excluded from consensus by reason",
		},
		[]string{"reason"},
	)

	// RoundDuration is a histogram of full round durations.
	RoundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "round_duration_seconds",
			Help:    "Duration of aggregation rounds",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// RoundFeeds is a gauge of feed counts in the last round.
	RoundFeeds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "round_feeds",
			Help: "Number of feeds in the last round by kind",
		},
		[]string{"kind"},
	)

	// RoundRegistering is 1 while the last round ran in registering mode.
	RoundRegistering = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "round_registering",
			Help: "Whether the last round ran in registering mode (1=yes, 0=no)",
		},
	)

	// RoundsTotal counts rounds by outcome.
	RoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rounds_total",
			Help: "Total number of rounds by outcome",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default Prometheus registry.
// Calling it more than once is a no-op.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			SourceFetchTotal,
			SourceSamplesTotal,
			SourceSkippedRecordsTotal,
			SourceLastUpdate,
			PriceAggregationDuration,
			OutlierRejectionsTotal,
			PairExclusionsTotal,
			RoundDuration,
			RoundFeeds,
			RoundRegistering,
			RoundsTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSourceFetch records the outcome of one adapter fetch.
func RecordSourceFetch(source string, samples int, err error) {
	if err != nil {
		SourceFetchTotal.WithLabelValues(source, "error").Inc()
		return
	}
	SourceFetchTotal.WithLabelValues(source, "success").Inc()
	SourceSamplesTotal.WithLabelValues(source).Add(float64(samples))
	SourceLastUpdate.WithLabelValues(source).SetToCurrentTime()
}

// RecordSkippedRecord records a malformed ticker record.
func RecordSkippedRecord(source string) {
	SourceSkippedRecordsTotal.WithLabelValues(source).Inc()
}

// RecordAggregation records a price aggregation operation.
func RecordAggregation(method string, duration time.Duration) {
	PriceAggregationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordOutlierRejection records trimmed outliers for a pair.
func RecordOutlierRejection(pair string, count int) {
	OutlierRejectionsTotal.WithLabelValues(pair).Add(float64(count))
}

// RecordPairExclusion records a pair dropped from consensus.
func RecordPairExclusion(reason string) {
	PairExclusionsTotal.WithLabelValues(reason).Inc()
}

// RoundStats is the per-round summary exported as gauges.
type RoundStats struct {
	Registering bool
	Candidates  int
	Published   int
	Skipped     int
	Missing     int
}

// RecordRound records a completed round.
func RecordRound(stats RoundStats, duration time.Duration) {
	RoundsTotal.WithLabelValues("success").Inc()
	RoundDuration.Observe(duration.Seconds())
	RoundFeeds.WithLabelValues("candidates").Set(float64(stats.Candidates))
	RoundFeeds.WithLabelValues("published").Set(float64(stats.Published))
	RoundFeeds.WithLabelValues("skipped").Set(float64(stats.Skipped))
	RoundFeeds.WithLabelValues("missing").Set(float64(stats.Missing))
	if stats.Registering {
		RoundRegistering.Set(1)
	} else {
		RoundRegistering.Set(0)
	}
}

// RecordRoundFailure records a round that ended with an error.
func RecordRoundFailure(duration time.Duration) {
	RoundsTotal.WithLabelValues("error").Inc()
	RoundDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
