package events

import (
	"context"
	"log/slog"

	"certledger/internal/ledger"
)

// Worker drains the ledger engine's event feed into a Publisher. A publish
// failure is logged and the event dropped rather than stalling the feed;
// consumers needing completeness replay from ledger state.
type Worker struct {
	publisher Publisher
	feed      <-chan ledger.Event
	logger    *slog.Logger
}

// NewWorker wires a feed to a publisher.
func NewWorker(publisher Publisher, feed <-chan ledger.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{publisher: publisher, feed: feed, logger: logger}
}

// Run consumes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.feed:
			if err := w.publisher.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "publish event failed",
					"certificate_id", event.CertificateID,
					"tx_id", event.TxID,
					"error", err,
				)
			}
		}
	}
}
