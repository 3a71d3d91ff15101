package round

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-push/pkg/feeder/selector"
	"github.com/StrathCole/oracle-push/pkg/feeder/store"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	r := newRunner(t, btcSources(t), store.NewMemoryStore(nil), &MockPublisher{}, selector.StaticEntropy{})

	_, err := NewScheduler(r, "every now and then", nil)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestScheduler_RunsRounds(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	r := newRunner(t, btcSources(t), store.NewMemoryStore(nil), pub, selector.StaticEntropy{})

	var rounds atomic.Int32
	r.OnResult(func(*Result) { rounds.Add(1) })

	s, err := NewScheduler(r, "@every 1s", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	assert.Eventually(t, func() bool { return rounds.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}
