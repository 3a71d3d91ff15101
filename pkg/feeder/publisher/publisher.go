// Package publisher hands selected feed updates to downstream collaborators.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

var (
	// ErrUnknownType indicates an unsupported publisher type.
	ErrUnknownType = errors.New("unknown publisher type")
	// ErrEncode indicates a payload could not be encoded.
	ErrEncode = errors.New("failed to encode payload")
)

// Batch is everything one round publishes.
type Batch struct {
	Round       uint64
	Registering bool
	Updates     []gate.Update
	// Missing is empty while registering.
	Missing   []feed.ID
	CreatedAt time.Time
}

// Empty reports whether the batch carries nothing to publish.
func (b Batch) Empty() bool {
	return len(b.Updates) == 0 && len(b.Missing) == 0
}

// Publisher delivers a batch downstream.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, batch Batch) error
}

// Multi fans a batch out to several publishers in order. Every publisher is
// attempted; failures are joined.
type Multi struct {
	publishers []Publisher
}

var _ Publisher = (*Multi)(nil)

// NewMulti combines publishers.
func NewMulti(publishers ...Publisher) *Multi {
	return &Multi{publishers: publishers}
}

// Name implements Publisher.
func (m *Multi) Name() string {
	return "multi"
}

// Publishers returns the wrapped publishers.
func (m *Multi) Publishers() []Publisher {
	return m.publishers
}

// Publish implements Publisher.
func (m *Multi) Publish(ctx context.Context, batch Batch) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, batch); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every wrapped publisher that holds resources.
func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
