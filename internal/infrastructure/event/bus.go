package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type delivery struct {
	ctx     context.Context
	handler shared.EventHandler
	event   shared.DomainEvent
}

// InMemoryEventBus fans domain events out to subscribed handlers.
//
// Before Start, Publish runs handlers inline. After Start, deliveries are
// queued to a fixed pool of workers so slow handlers (email, SMS) never hold
// up the request that produced the event. Handler errors and panics are
// logged and never returned to the publisher.
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	workers        int
	queueSize      int
	handlerTimeout time.Duration

	mu      sync.RWMutex
	queue   chan delivery
	running bool
	wg      sync.WaitGroup
}

// BusOption configures the bus
type BusOption func(*InMemoryEventBus)

// WithWorkers sets the number of async workers
func WithWorkers(n int) BusOption {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithQueueSize sets how many deliveries may wait before Publish blocks
func WithQueueSize(n int) BusOption {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithHandlerTimeout bounds each async handler call
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// NewInMemoryEventBus creates a stopped bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:       NewHandlerRegistry(),
		logger:         logger,
		workers:        4,
		queueSize:      256,
		handlerTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to their handlers. It only fails when ctx is
// cancelled while waiting for queue space.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ev := range events {
		for _, h := range b.registry.HandlersFor(ev.EventType()) {
			if !b.running {
				b.dispatch(ctx, h, ev)
				continue
			}
			d := delivery{ctx: context.WithoutCancel(ctx), handler: h, event: ev}
			select {
			case b.queue <- d:
			case <-ctx.Done():
				return fmt.Errorf("publish %s: %w", ev.EventType(), ctx.Err())
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, defaulting to handler.EventTypes()
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the worker pool. Calling Start twice is a no-op.
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	b.queue = make(chan delivery, b.queueSize)
	for range b.workers {
		b.wg.Add(1)
		go b.work(b.queue)
	}
	b.running = true
	b.logger.Info("Event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop stops accepting async deliveries and drains the queue, waiting at
// most until ctx is done.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus did not drain: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) work(queue <-chan delivery) {
	defer b.wg.Done()
	for d := range queue {
		ctx, cancel := context.WithTimeout(d.ctx, b.handlerTimeout)
		b.dispatch(ctx, d.handler, d.event)
		cancel()
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, ev shared.DomainEvent) {
	log := logger.LOr(ctx, b.logger).With(
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_id", ev.AggregateID().String()),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Event handler panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := handler.Handle(ctx, ev); err != nil {
		log.Error("Event handler failed", zap.String("handler", fmt.Sprintf("%T", handler)), zap.Error(err))
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
