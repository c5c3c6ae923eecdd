// Package publisher emits audit events to a store, synchronously or through a
// bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"profilecheck/pkg/domain"
	audit "profilecheck/pkg/platform/audit"
	"profilecheck/pkg/platform/sentinel"
)

// Publisher captures structured audit events. It is append-only.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer  chan queued
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events beyond size are dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan queued, size)
		}
	}
}

// WithLogger sets the logger used for store failures and dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records event. In async mode it only fails once the publisher is closed.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return sentinel.ErrClosed
	}
	select {
	case p.buffer <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, account domain.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, account)
}

// Close stops accepting events and waits until buffered events are written.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.buffer)
	p.closeMu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for q := range p.buffer {
		if err := p.store.Append(q.ctx, q.event); err != nil {
			p.logger.ErrorContext(q.ctx, "failed to persist audit event",
				"action", q.event.Action,
				"account_id", q.event.AccountID,
				"error", err,
			)
		}
	}
}
