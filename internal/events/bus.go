// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusFull is returned when the queue has no room for an event.
	ErrBusFull = errors.New("event queue full")
	// ErrBusClosed is returned after Shutdown.
	ErrBusClosed = errors.New("event bus is shutting down")
)

type subscriber struct {
	id      string
	all     bool
	typ     EventType
	handler Handler
}

func (s subscriber) wants(t EventType) bool { return s.all || s.typ == t }

// BusStats is a point-in-time view of the bus counters.
type BusStats struct {
	Capacity    int
	Pending     int
	Subscribers int
	Published   uint64
	Dropped     uint64
	Delivered   uint64
	Failed      uint64
	PerType     map[EventType]uint64
}

// Bus delivers market events to subscribers. Publish never blocks: events are
// queued and delivered by one goroutine in acceptance order, and each event
// reaches subscribers in the order they subscribed.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	logger *zap.Logger

	// stateMu orders Publish against Shutdown: every accepted event is
	// queued before closing is closed, so the drain sees it.
	stateMu sync.RWMutex
	shut    bool
	queue   chan Event
	closing chan struct{}
	once    sync.Once
	done    chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64

	typesMu sync.Mutex
	perType map[EventType]uint64
}

// NewBus starts a bus with a queue of capacity events.
func NewBus(logger *zap.Logger, capacity int) *Bus {
	b := &Bus{
		logger:  logger.Named("event_bus"),
		queue:   make(chan Event, capacity),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		perType: make(map[EventType]uint64),
	}
	go b.loop()
	return b
}

func (b *Bus) add(s subscriber) Subscription {
	s.id = uuid.New().String()

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(s.typ)),
		zap.Bool("all", s.all),
		zap.String("subscription_id", s.id))
	return &subscription{id: s.id, bus: b}
}

// Subscribe registers handler for one event type.
func (b *Bus) Subscribe(t EventType, handler Handler) Subscription {
	return b.add(subscriber{typ: t, handler: handler})
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) Subscription {
	return b.add(subscriber{all: true, handler: handler})
}

// SubscribeFunc is Subscribe for plain functions.
func (b *Bus) SubscribeFunc(t EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(t, HandlerFunc(fn))
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	b.subs = slices.DeleteFunc(b.subs, func(s subscriber) bool { return s.id == id })
	b.mu.Unlock()

	b.logger.Debug("Handler unsubscribed", zap.String("subscription_id", id))
}

// Publish queues event for delivery. A full queue drops the event.
func (b *Bus) Publish(event Event) error {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	if b.shut {
		b.dropped.Add(1)
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.Int("capacity", cap(b.queue)))
		return ErrBusFull
	}
}

// PublishSync delivers event on the caller's goroutine, bypassing the queue.
// Every subscriber is called even if an earlier one fails.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	targets := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(event.Type()) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, s := range targets {
		if err := s.handler.Handle(ctx, event); err != nil {
			b.failed.Add(1)
			errs = append(errs, fmt.Errorf("subscriber %s: %w", s.id, err))
		}
	}

	b.delivered.Add(1)
	b.typesMu.Lock()
	b.perType[event.Type()]++
	b.typesMu.Unlock()

	return errors.Join(errs...)
}

func (b *Bus) loop() {
	defer close(b.done)

	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		case <-b.closing:
			// дочитываем всё, что успели принять
			for {
				select {
				case event := <-b.queue:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(event Event) {
	if err := b.PublishSync(context.Background(), event); err != nil {
		b.logger.Error("Event delivery failed",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// Shutdown stops accepting events and waits until the queue is drained or
// ctx expires.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.once.Do(func() {
		b.stateMu.Lock()
		b.shut = true
		close(b.closing)
		b.stateMu.Unlock()
		b.logger.Debug("Shutting down event bus", zap.Int("pending", len(b.queue)))
	})

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Stats returns the current counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	subs := len(b.subs)
	b.mu.RUnlock()

	b.typesMu.Lock()
	perType := make(map[EventType]uint64, len(b.perType))
	for t, n := range b.perType {
		perType[t] = n
	}
	b.typesMu.Unlock()

	return BusStats{
		Capacity:    cap(b.queue),
		Pending:     len(b.queue),
		Subscribers: subs,
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Delivered:   b.delivered.Load(),
		Failed:      b.failed.Load(),
		PerType:     perType,
	}
}
