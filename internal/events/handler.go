// internal/events/handler.go
package events

import "context"

// Handler consumes events. Handlers run on the bus goroutine and must not
// publish back into the same bus synchronously.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription отменяет подписку.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id   string
	bus  *Bus
	once bool
}

func (s *subscription) Unsubscribe() {
	if s.once {
		return
	}
	s.once = true
	s.bus.remove(s.id)
}
