package publisher

import (
	"context"

	"github.com/StrathCole/oracle-push/pkg/feeder/store"
)

// StorePublisher mirrors batches into the state store, so the next round
// gates against what was just published.
type StorePublisher struct {
	writer store.Writer
}

var _ Publisher = (*StorePublisher)(nil)

// NewStorePublisher creates a store publisher.
func NewStorePublisher(writer store.Writer) *StorePublisher {
	return &StorePublisher{writer: writer}
}

// Name implements Publisher.
func (p *StorePublisher) Name() string {
	return "store"
}

// Publish implements Publisher.
func (p *StorePublisher) Publish(ctx context.Context, batch Batch) error {
	return p.writer.Record(ctx, batch.Updates, batch.Missing)
}
