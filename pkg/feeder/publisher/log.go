package publisher

import (
	"context"

	"github.com/StrathCole/oracle-push/pkg/logging"
)

// LogPublisher writes batches to the log.
type LogPublisher struct {
	logger *logging.Logger
}

var _ Publisher = (*LogPublisher)(nil)

// NewLogPublisher creates a log publisher.
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &LogPublisher{logger: logger.With("publisher", "log")}
}

// Name implements Publisher.
func (p *LogPublisher) Name() string {
	return "log"
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, batch Batch) error {
	for _, u := range batch.Updates {
		p.logger.Info("Feed update",
			"round", batch.Round,
			"feed", u.ID.Name(),
			"value", u.Value.String(),
			"encoded", u.Encoded.String(),
			"diff_ratio", u.DiffRatio.String(),
			"new", u.IsNew(),
		)
	}
	for _, id := range batch.Missing {
		p.logger.Warn("Feed missing", "round", batch.Round, "feed", id.Name())
	}
	p.logger.Info("Batch published",
		"round", batch.Round,
		"registering", batch.Registering,
		"updates", len(batch.Updates),
		"missing", len(batch.Missing),
	)
	return nil
}
