package selector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

func candidates(t *testing.T, n int) []gate.Update {
	t.Helper()
	out := make([]gate.Update, n)
	for i := range out {
		id, err := feed.IDFromName(fmt.Sprintf("T%03d/USD", i))
		require.NoError(t, err)
		out[i] = gate.Update{ID: id}
	}
	// reverse so ordering is observable
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func names(updates []gate.Update) []string {
	out := make([]string, len(updates))
	for i, u := range updates {
		out[i] = u.ID.Name()
	}
	return out
}

func TestSelect_RegisteringKeepsInputOrder(t *testing.T) {
	s := New(Config{})
	in := candidates(t, 150)

	got := s.Select(in, true, [SeedSize]byte{})

	require.Len(t, got, 20)
	assert.Equal(t, names(in[:20]), names(got))
	assert.Equal(t, "T149/USD", got[0].ID.Name())
	assert.Equal(t, "T149/USD", in[0].ID.Name(), "input must not be reordered")
}

func TestSelect_RegisteringTruncatesInOrder(t *testing.T) {
	s := New(Config{RegisteringBatch: 2})

	got := s.Select(candidates(t, 3), true, [SeedSize]byte{})

	assert.Equal(t, []string{"T002/USD", "T001/USD"}, names(got))
}

func TestSelect_SteadyCapsAndIsDeterministic(t *testing.T) {
	s := New(Config{})
	in := candidates(t, 150)
	seed := [SeedSize]byte{1, 2, 3}

	first := s.Select(in, false, seed)
	second := s.Select(in, false, seed)
	require.Len(t, first, 100)
	assert.Equal(t, names(first), names(second))

	unique := make(map[string]struct{}, len(first))
	for _, n := range names(first) {
		unique[n] = struct{}{}
	}
	assert.Len(t, unique, 100)

	other := s.Select(in, false, [SeedSize]byte{9})
	assert.NotEqual(t, names(first), names(other))
}

func TestSelect_SteadyIndependentOfInputOrder(t *testing.T) {
	s := New(Config{})
	in := candidates(t, 30)
	reversed := make([]gate.Update, len(in))
	for i := range in {
		reversed[len(in)-1-i] = in[i]
	}
	seed := [SeedSize]byte{7}

	assert.Equal(t, names(s.Select(in, false, seed)), names(s.Select(reversed, false, seed)))
}

func TestSelect_UnderCap(t *testing.T) {
	s := New(Config{RegisteringBatch: 5, SteadyBatch: 10})

	assert.Len(t, s.Select(candidates(t, 3), true, [SeedSize]byte{}), 3)
	assert.Len(t, s.Select(candidates(t, 7), false, [SeedSize]byte{}), 7)
	assert.Len(t, s.Select(candidates(t, 7), true, [SeedSize]byte{}), 5)
	assert.Empty(t, s.Select(nil, false, [SeedSize]byte{}))
}

func TestNeedsShuffle(t *testing.T) {
	s := New(Config{})
	assert.False(t, s.NeedsShuffle(10, true))
	assert.False(t, s.NeedsShuffle(1, false))
	assert.True(t, s.NeedsShuffle(2, false))
}

func TestEntropy(t *testing.T) {
	a, err := CryptoEntropy{}.Seed(context.Background())
	require.NoError(t, err)
	b, err := CryptoEntropy{}.Seed(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	fixed := StaticEntropy{4, 2}
	seed, err := fixed.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [SeedSize]byte{4, 2}, seed)
}
