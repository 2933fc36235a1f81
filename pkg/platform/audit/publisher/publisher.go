// Package publisher delivers audit events to a store, either synchronously or
// through a buffered background worker. The gate emits on the request path,
// so async mode keeps store latency out of admission decisions.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "eventgate/pkg/platform/audit"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListBySite(ctx context.Context, siteID string) ([]audit.Event, error)
}

// Publisher emits audit events. Zero buffer means synchronous delivery.
type Publisher struct {
	store  Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with the given buffer size.
// Events are dropped (with a warning) when the buffer is full; audit delivery
// must never block request admission.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers an event. Timestamp is stamped here when the caller left it zero.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action, "site_id", event.SiteID)
		return nil
	}
}

// List returns events recorded for a site.
func (p *Publisher) List(ctx context.Context, siteID string) ([]audit.Event, error) {
	return p.store.ListBySite(ctx, siteID)
}

// Close stops the background worker, draining any buffered events first.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Warn("failed to append audit event", "error", err, "action", event.Action)
		}
	}
}
