package worker

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/infrastructure/events"
	"storefront/internal/repo"

	"github.com/sirupsen/logrus"
)

// OutboxRelay moves committed order events from the outbox table to the
// broker. Delivery is at least once: an event published but not yet marked
// is sent again on the next tick.
type OutboxRelay struct {
	outboxRepo repo.OutboxRepo
	publisher  events.Publisher
	interval   time.Duration
	batchSize  int
	logger     logrus.FieldLogger
	now        func() time.Time
}

func NewOutboxRelay(
	outboxRepo repo.OutboxRepo,
	publisher events.Publisher,
	interval time.Duration,
	batchSize int,
	logger logrus.FieldLogger,
) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

func (w *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.WithField("interval", w.interval.String()).Info("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := w.process(ctx); err != nil {
				w.logger.WithError(err).Warn("outbox relay pass failed, will retry")
			}
		}
	}
}

// Drain relays batches until the outbox is empty. A publish failure ends it
// with that error and the remaining events left pending.
func (w *OutboxRelay) Drain(ctx context.Context) error {
	for {
		sent, err := w.process(ctx)
		if err != nil {
			return err
		}
		if sent == 0 || sent < w.batchSize {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// process publishes one batch in id order and returns how many events were
// marked. It stops at the first publish failure so later events are not
// delivered ahead of earlier ones, and returns that failure.
func (w *OutboxRelay) process(ctx context.Context) (int, error) {
	pending, err := w.outboxRepo.FindUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sent := 0
	for _, ev := range pending {
		if err := w.publisher.Publish(ctx, ev.EventType, ev.Payload); err != nil {
			return sent, fmt.Errorf("publish event %d (%s, order %s): %w", ev.ID, ev.EventType, ev.AggregateID, err)
		}
		if err := w.outboxRepo.MarkPublished(ctx, ev.ID, w.now()); err != nil {
			return sent, err
		}
		sent++
	}

	w.logger.WithFields(logrus.Fields{"pending": len(pending), "published": sent}).Debug("outbox batch relayed")
	return sent, nil
}
