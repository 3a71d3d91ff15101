// Package selector caps a round's update candidates to one batch.
package selector

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"sort"

	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

// Default batch caps.
const (
	DefaultRegisteringBatch = 20
	DefaultSteadyBatch      = 100
)

// SeedSize is the length of a shuffle seed.
const SeedSize = 32

// ErrEntropy indicates the entropy source could not supply a seed.
var ErrEntropy = errors.New("entropy source failed")

// EntropySource supplies shuffle seeds.
type EntropySource interface {
	Seed(ctx context.Context) ([SeedSize]byte, error)
}

// CryptoEntropy reads seeds from the operating system CSPRNG.
type CryptoEntropy struct{}

var _ EntropySource = CryptoEntropy{}

// Seed implements EntropySource.
func (CryptoEntropy) Seed(_ context.Context) ([SeedSize]byte, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return seed, nil
}

// StaticEntropy always returns the same seed. Rounds become reproducible.
type StaticEntropy [SeedSize]byte

// Seed implements EntropySource.
func (s StaticEntropy) Seed(_ context.Context) ([SeedSize]byte, error) {
	return s, nil
}

// Config holds the batch caps.
type Config struct {
	RegisteringBatch int
	SteadyBatch      int
}

// Selector orders and truncates candidates.
type Selector struct {
	cfg Config
}

// New creates a selector, substituting defaults for non-positive caps.
func New(cfg Config) *Selector {
	if cfg.RegisteringBatch <= 0 {
		cfg.RegisteringBatch = DefaultRegisteringBatch
	}
	if cfg.SteadyBatch <= 0 {
		cfg.SteadyBatch = DefaultSteadyBatch
	}
	return &Selector{cfg: cfg}
}

// Limit returns the batch cap for the mode.
func (s *Selector) Limit(registering bool) int {
	if registering {
		return s.cfg.RegisteringBatch
	}
	return s.cfg.SteadyBatch
}

// NeedsShuffle reports whether Select consumes the seed for n candidates.
func (s *Selector) NeedsShuffle(n int, registering bool) bool {
	return !registering && n > 1
}

// Select returns at most Limit(registering) candidates. While registering the
// input order is kept. Otherwise candidates are sorted by feed name and then
// shuffled with a ChaCha8 stream keyed by seed, so the result depends only on
// the candidate set and the seed. The input is not modified.
func (s *Selector) Select(candidates []gate.Update, registering bool, seed [SeedSize]byte) []gate.Update {
	out := make([]gate.Update, len(candidates))
	copy(out, candidates)

	if s.NeedsShuffle(len(out), registering) {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ID.Name() < out[j].ID.Name()
		})
		rng := mrand.New(mrand.NewChaCha8(seed))
		rng.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}

	if limit := s.Limit(registering); len(out) > limit {
		out = out[:limit]
	}
	return out
}
