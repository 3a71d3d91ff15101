// Package store provides the published feed state that a round gates
// against, and mirrors published batches back into it.
package store

import (
	"context"
	"errors"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

var (
	// ErrUnknownType indicates an unsupported state store type.
	ErrUnknownType = errors.New("unknown state store type")
	// ErrCorruptValue indicates a stored value could not be decoded.
	ErrCorruptValue = errors.New("corrupt stored feed value")
)

// StateReader returns the last published value of every known feed.
type StateReader interface {
	Snapshot(ctx context.Context) (feed.State, error)
}

// Writer records a published batch: updated values and feeds marked stale.
type Writer interface {
	Record(ctx context.Context, updates []gate.Update, missing []feed.ID) error
}

// Store is a readable, writable state backend.
type Store interface {
	StateReader
	Writer
	// Stale returns feeds currently marked stale, sorted by name.
	Stale(ctx context.Context) ([]feed.ID, error)
	Close() error
}
