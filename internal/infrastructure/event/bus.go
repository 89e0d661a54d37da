package event

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/salesflow/backend/internal/domain/shared"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// InMemoryEventBus implements shared.EventBus with in-process pub/sub.
// Before Start and after Stop events dispatch synchronously on the
// publisher's goroutine; in between a worker pool drains a bounded
// queue so publishers do not wait on slow handlers.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	workers  int

	queue   chan shared.DomainEvent
	stop    chan struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		workers:  defaultWorkers,
	}
}

// Publish delivers events to all matching handlers. Handler errors are
// logged, never propagated: a failing listener must not undo the state
// change it reacts to.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if !b.running.Load() {
			b.dispatch(ctx, event)
			continue
		}
		select {
		case b.queue <- event:
		default:
			// Queue full; deliver on the caller's goroutine instead.
			b.dispatch(ctx, event)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start launches the worker pool
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	b.queue = make(chan shared.DomainEvent, defaultQueueSize)
	b.stop = make(chan struct{})
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop drains the queue and waits for in-flight handlers, bounded by ctx
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	close(b.stop)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stopped before the queue drained")
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) worker() {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.queue:
			b.dispatch(context.Background(), event)
		case <-b.stop:
			// Flush whatever publishers managed to enqueue.
			for {
				select {
				case event := <-b.queue:
					b.dispatch(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// dispatch fans an event out to its handlers
func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler shields the bus from handler panics
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
