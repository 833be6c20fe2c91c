// Package publisher provides the emission side of the audit pipeline.
//
// A Publisher normalizes events (timestamp, category), optionally samples
// operations-category actions, and hands them to an audit.Store either
// synchronously or through a buffered background worker. Emission never
// blocks the request path: a full buffer drops the event and reports it.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	audit "github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

var errBufferFull = errors.New("audit buffer full")

// Publisher emits audit events to a store. The zero mode is synchronous;
// WithAsyncBuffer switches to a buffered worker drained by Close.
type Publisher struct {
	store   audit.Store
	sampler *audit.Sampler
	logger  *slog.Logger
	dropped prometheus.Counter

	buffer    chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes emission asynchronous with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

// WithSampler installs a sampler consulted before every append.
func WithSampler(s *audit.Sampler) Option {
	return func(p *Publisher) { p.sampler = s }
}

// WithLogger installs a logger for append failures and drops.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithDroppedCounter installs a counter incremented when a full buffer forces
// an event to be dropped.
func WithDroppedCounter(c prometheus.Counter) Option {
	return func(p *Publisher) { p.dropped = c }
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records one event. Missing timestamps are filled from the request
// clock and missing categories are derived from the action. A nil publisher
// discards events, so callers never need their own guard.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.sampler != nil && !p.sampler.Keep(event.Action) {
		return nil
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
		p.noteDrop(event)
		if err := ctx.Err(); err != nil {
			return err
		}
		return errBufferFull
	}
}

// List returns the events recorded for a principal.
func (p *Publisher) List(ctx context.Context, principal id.PrincipalID) ([]audit.Event, error) {
	return p.store.ListByPrincipal(ctx, principal)
}

// Close drains buffered events and stops the background worker.
// Emit must not be called after Close.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Warn("audit append failed", "action", event.Action, "subject", event.Subject, "error", err)
		}
	}
}

func (p *Publisher) noteDrop(event audit.Event) {
	if p.dropped != nil {
		p.dropped.Inc()
	}
	if p.logger != nil {
		p.logger.Warn("audit buffer full, event dropped", "action", event.Action, "subject", event.Subject)
	}
}
