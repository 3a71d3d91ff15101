package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSourceFetch(t *testing.T) {
	before := testutil.ToFloat64(SourceFetchTotal.WithLabelValues("test-src", "success"))
	RecordSourceFetch("test-src", 5, nil)
	RecordSourceFetch("test-src", 0, errors.New("down"))

	assert.Equal(t, before+1, testutil.ToFloat64(SourceFetchTotal.WithLabelValues("test-src", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SourceFetchTotal.WithLabelValues("test-src", "error")))
}

func TestRecordRound(t *testing.T) {
	RecordRound(RoundStats{Registering: true, Candidates: 25, Published: 20, Missing: 0}, time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(RoundRegistering))
	assert.Equal(t, float64(20), testutil.ToFloat64(RoundFeeds.WithLabelValues("published")))
	assert.Equal(t, float64(25), testutil.ToFloat64(RoundFeeds.WithLabelValues("candidates")))

	RecordRound(RoundStats{}, time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(RoundRegistering))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
