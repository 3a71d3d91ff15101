package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls int32
	fn    func(call int32) ([]byte, error)
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	n := atomic.AddInt32(&f.calls, 1)
	return f.fn(n)
}

func parseLines(b *BaseSource) func([]byte) ([]Sample, error) {
	return func(body []byte) ([]Sample, error) {
		if string(body) == "broken" {
			return nil, ErrInvalidResponse
		}
		batch := b.NewBatch(2)
		batch.AddRaw(Pair{"BTC", "USD"}, "50000", "BTCUSD")
		batch.AddRaw(Pair{"ETH", "USD"}, "", "ETHUSD")
		return batch.Samples(), nil
	}
}

func TestNewBaseSourceConfig(t *testing.T) {
	b, err := NewBaseSource("test", SourceTypeCEX, "https://default", map[string]interface{}{
		"api_url":    "https://override",
		"rate_limit": 5,
		"burst":      2,
		"retries":    3,
		"timeout":    "2s",
		"pairs": map[string]interface{}{
			"BTC/USD": "XXBTZUSD",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "test", b.Name())
	assert.Equal(t, SourceTypeCEX, b.Type())
	assert.Equal(t, "https://override", b.APIURL())
	assert.Equal(t, 3, b.retries)

	pair, ok := b.ResolvePair("XXBTZUSD", SplitDelimited("/"))
	assert.True(t, ok)
	assert.Equal(t, Pair{"BTC", "USD"}, pair)

	// With an allowlist, unlisted symbols never resolve.
	_, ok = b.ResolvePair("BTC/USD", SplitDelimited("/"))
	assert.False(t, ok)

	_, err = NewBaseSource("test", SourceTypeCEX, "", map[string]interface{}{"timeout": "soon"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewBaseSource("test", SourceTypeCEX, "", map[string]interface{}{"pairs": map[string]interface{}{"BTCUSD": "x"}})
	assert.ErrorIs(t, err, ErrInvalidSymbolFormat)
}

func TestNewBaseSourceRejectsDuplicateNativeSymbol(t *testing.T) {
	for i := 0; i < 10; i++ {
		_, err := NewBaseSource("test", SourceTypeCEX, "", map[string]interface{}{
			"pairs": map[string]interface{}{
				"BTC/USD":  "XBTUSD",
				"WBTC/USD": "XBTUSD",
			},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestResolvePairWithoutAllowlist(t *testing.T) {
	b, err := NewBaseSource("test", SourceTypeCEX, "", nil)
	require.NoError(t, err)

	pair, ok := b.ResolvePair("BTC_USDT", SplitDelimited("_"))
	assert.True(t, ok)
	assert.Equal(t, Pair{"BTC", "USDT"}, pair)
}

func TestCollectSkipsMalformedRecords(t *testing.T) {
	f := &stubFetcher{fn: func(int32) ([]byte, error) { return []byte("ok"), nil }}
	b, err := NewBaseSource("test", SourceTypeCEX, "http://unused", map[string]interface{}{"fetcher": f})
	require.NoError(t, err)

	samples, err := b.Collect(context.Background(), b.APIURL(), parseLines(b))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "BTC/USD", samples[0].Pair.String())
	assert.Equal(t, "test", samples[0].Source)
	assert.True(t, b.IsHealthy())
	assert.False(t, b.LastUpdate().IsZero())
}

func TestCollectWrapsParseError(t *testing.T) {
	f := &stubFetcher{fn: func(int32) ([]byte, error) { return []byte("broken"), nil }}
	b, err := NewBaseSource("test", SourceTypeCEX, "http://unused", map[string]interface{}{"fetcher": f})
	require.NoError(t, err)

	_, err = b.Collect(context.Background(), b.APIURL(), parseLines(b))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "test", pe.Source)
	assert.False(t, b.IsHealthy())
}

func TestCollectRetriesTransientFailures(t *testing.T) {
	f := &stubFetcher{fn: func(call int32) ([]byte, error) {
		if call < 3 {
			return nil, &FetchError{StatusCode: 503, Err: ErrUnexpectedStatus}
		}
		return []byte("ok"), nil
	}}
	b, err := NewBaseSource("test", SourceTypeCEX, "http://unused", map[string]interface{}{
		"fetcher":       f,
		"retries":       2,
		"retry_backoff": "1ms",
	})
	require.NoError(t, err)

	samples, err := b.Collect(context.Background(), b.APIURL(), parseLines(b))
	require.NoError(t, err)
	assert.Len(t, samples, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.calls))
}

func TestCollectDoesNotRetryClientErrors(t *testing.T) {
	f := &stubFetcher{fn: func(int32) ([]byte, error) {
		return nil, &FetchError{URL: "http://unused", StatusCode: 404, Err: ErrUnexpectedStatus}
	}}
	b, err := NewBaseSource("test", SourceTypeCEX, "http://unused", map[string]interface{}{
		"fetcher":       f,
		"retries":       3,
		"retry_backoff": "1ms",
	})
	require.NoError(t, err)

	_, err = b.Collect(context.Background(), b.APIURL(), parseLines(b))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "test", fe.Source)
	assert.Equal(t, 404, fe.StatusCode)
}

func TestCollectWrapsTransportError(t *testing.T) {
	f := &stubFetcher{fn: func(int32) ([]byte, error) { return nil, errors.New("connection refused") }}
	b, err := NewBaseSource("test", SourceTypeCEX, "http://unused", map[string]interface{}{"fetcher": f, "retries": 0})
	require.NoError(t, err)

	_, err = b.Collect(context.Background(), b.APIURL(), parseLines(b))
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRetryStopsOnCancel(t *testing.T) {
	b, err := NewBaseSource("test", SourceTypeCEX, "", map[string]interface{}{"retries": 5, "retry_backoff": "1h"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err = b.RetryWithBackoff(ctx, "test", func() error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "oracle-push/")
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/limited", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)

	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))

	_, err = f.Fetch(context.Background(), srv.URL+"/limited")
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.ErrorIs(t, err, ErrFetch)

	_, err = f.Fetch(context.Background(), srv.URL+"/down")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
}

func TestRegistry(t *testing.T) {
	Register("test.stub", func(config map[string]interface{}) (NormalizedSampleSource, error) {
		return nil, ErrInvalidConfig
	})

	assert.Contains(t, List(), "test.stub")

	_, err := Create("test", "stub", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Create("test", "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownSource)
}
