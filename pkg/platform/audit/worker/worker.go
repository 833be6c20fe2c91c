// Package worker drains the audit outbox to Kafka in the background.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Outbox is the store-side contract: list undelivered rows, stamp delivered
// ones. The Postgres audit store satisfies it.
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Producer delivers one serialized event. The key is the event subject so a
// partitioned broker preserves per-identity ordering.
type Producer interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox and produces undelivered events. Delivery is
// at-least-once: rows are stamped only after a successful produce, so
// consumers must dedupe on the entry id carried in the payload.
type Worker struct {
	outbox    Outbox
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize sets how many rows one pass claims.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithLogger installs a logger for drain failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// New creates a worker over the given outbox and producer.
func New(outbox Outbox, producer Producer, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		producer:  producer,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. Drain failures are logged and
// retried on the next tick; only cancellation stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.DrainOnce(ctx); err != nil && w.logger != nil {
				w.logger.Warn("audit outbox drain failed", "error", err)
			}
		}
	}
}

// payload is the wire envelope produced to Kafka. The entry id lets
// downstream consumers dedupe redelivered events.
type payload struct {
	ID string `json:"id"`
	audit.Event
}

// DrainOnce publishes one batch and returns how many rows it delivered.
// A produce failure leaves the remaining rows unpublished for the next pass.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.Unpublished(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpublished: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	var produceErr error
	for _, entry := range entries {
		body, err := json.Marshal(payload{ID: entry.ID.String(), Event: entry.Event})
		if err != nil {
			produceErr = fmt.Errorf("marshal event %s: %w", entry.ID, err)
			break
		}
		if err := w.producer.Produce(ctx, entry.Event.Subject, body); err != nil {
			produceErr = fmt.Errorf("produce event %s: %w", entry.ID, err)
			break
		}
		published = append(published, entry.ID)
	}

	if err := w.outbox.MarkPublished(ctx, published); err != nil {
		return len(published), fmt.Errorf("mark published: %w", err)
	}
	return len(published), produceErr
}
