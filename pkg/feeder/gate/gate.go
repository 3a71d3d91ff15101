// Package gate decides which fresh consensus values warrant publication.
package gate

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/server/aggregator"
	"github.com/StrathCole/oracle-push/pkg/server/sources"
)

// DefaultThreshold is the diff ratio at or below which a value is considered changed.
var DefaultThreshold = decimal.RequireFromString("0.1")

// Config controls the change threshold.
type Config struct {
	Threshold decimal.Decimal
	// BoundaryExclusive excludes values whose ratio equals the threshold.
	BoundaryExclusive bool
}

// Update is a fresh value selected for publication.
type Update struct {
	ID      feed.ID         `json:"id"`
	Pair    sources.Pair    `json:"pair"`
	Value   decimal.Decimal `json:"value"`
	Encoded *big.Int        `json:"encoded"`
	// Previous is nil for feeds that are not yet known.
	Previous  *big.Int        `json:"previous,omitempty"`
	DiffRatio decimal.Decimal `json:"diff_ratio"`
}

// IsNew reports whether the feed has never been published.
func (u Update) IsNew() bool {
	return u.Previous == nil
}

// Rejection is a consensus value that could not be turned into an update.
type Rejection struct {
	Pair sources.Pair
	Err  error
}

// Decision is the outcome of gating one round.
type Decision struct {
	Registering bool
	// Candidates are sorted by feed name.
	Candidates []Update
	Skipped    []Update
	// Missing lists known feeds absent from this round. It is always empty
	// while registering.
	Missing    []feed.ID
	Rejected   []Rejection
	FreshCount int
	KnownCount int
}

// Gate compares fresh values against the published snapshot.
type Gate struct {
	cfg    Config
	logger *logging.Logger
}

// New creates a gate. A zero threshold selects DefaultThreshold.
func New(cfg Config, logger *logging.Logger) *Gate {
	if cfg.Threshold.IsZero() {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Gate{cfg: cfg, logger: logger}
}

// Registering reports whether feeds are still being onboarded: fewer known
// feeds than fresh ones, allowing one new feed without leaving steady state.
func Registering(known, fresh int) bool {
	return known+1 < fresh
}

// Changed reports whether ratio signals a significant change.
func (g *Gate) Changed(ratio decimal.Decimal) bool {
	if g.cfg.BoundaryExclusive {
		return ratio.LessThan(g.cfg.Threshold)
	}
	return ratio.LessThanOrEqual(g.cfg.Threshold)
}

// Evaluate gates values against snapshot. Values whose identifier or
// encoding is invalid are rejected individually and do not count as fresh.
func (g *Gate) Evaluate(values []aggregator.ConsensusValue, snapshot feed.State) Decision {
	fresh := make([]Update, 0, len(values))
	seen := make(map[feed.ID]struct{}, len(values))
	var d Decision

	for _, v := range values {
		id, err := feed.NewID(v.Pair)
		if err != nil {
			d.Rejected = append(d.Rejected, Rejection{Pair: v.Pair, Err: err})
			g.logger.Warn("Feed rejected", "pair", v.Pair.String(), "error", err)
			continue
		}
		encoded, err := feed.Encode(v.Price)
		if err != nil {
			d.Rejected = append(d.Rejected, Rejection{Pair: v.Pair, Err: err})
			g.logger.Warn("Feed rejected", "pair", v.Pair.String(), "error", err)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		u := Update{ID: id, Pair: v.Pair, Value: v.Price, Encoded: encoded, DiffRatio: decimal.Zero}
		if prev, ok := snapshot[id]; ok && prev != nil {
			u.Previous = prev
			u.DiffRatio = feed.DiffRatio(prev, encoded)
		}
		fresh = append(fresh, u)
	}

	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].ID.Name() < fresh[j].ID.Name()
	})

	d.FreshCount = len(fresh)
	d.KnownCount = len(snapshot)
	d.Registering = Registering(d.KnownCount, d.FreshCount)

	for _, u := range fresh {
		if d.Registering || u.IsNew() || g.Changed(u.DiffRatio) {
			d.Candidates = append(d.Candidates, u)
			continue
		}
		d.Skipped = append(d.Skipped, u)
	}

	if !d.Registering {
		for _, id := range snapshot.IDs() {
			if _, ok := seen[id]; !ok {
				d.Missing = append(d.Missing, id)
			}
		}
	}

	g.logger.Debug("Gate evaluated",
		"registering", d.Registering,
		"fresh", d.FreshCount,
		"known", d.KnownCount,
		"candidates", len(d.Candidates),
		"skipped", len(d.Skipped),
		"missing", len(d.Missing),
		"rejected", len(d.Rejected),
	)
	return d
}
