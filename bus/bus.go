package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
)

// Common errors.
var (
	ErrClosed = errors.New("bus closed")
)

// Handler receives envelopes delivered to a subscriber name. A non-nil
// error is logged by the bus and never reaches the publisher.
type Handler func(ctx context.Context, msg *protocol.Message) error

// Bus routes envelopes from publishers to named subscribers and keeps an
// append-only history of everything published. Safe for concurrent use.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string][]Handler
	history     []*protocol.Message
	closed      bool
	log         *logging.Logger
}

// New creates an empty bus. The composition root owns the instance and
// hands it to every agent; there is no process-wide singleton.
func New(log *logging.Logger) *Bus {
	if log == nil {
		log = logging.New()
	}
	return &Bus{
		subscribers: make(map[string][]Handler),
		log:         log.WithComponent("bus"),
	}
}

// Subscribe registers a handler under name. Subscribing the same name
// again appends another handler rather than replacing; each registered
// handler receives every envelope addressed to the name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[name] = append(b.subscribers[name], h)
}

// Publish appends msg to history, then synchronously invokes every
// handler registered for msg.Receiver in registration order. The history
// append and the snapshot of handlers happen atomically, so history always
// reflects exactly the set of envelopes for which delivery was attempted.
// Publish returns once all delivery attempts for this envelope complete.
func (b *Bus) Publish(ctx context.Context, msg *protocol.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.history = append(b.history, msg)
	registered := b.subscribers[msg.Receiver]
	handlers := make([]Handler, len(registered))
	copy(handlers, registered)
	b.mu.Unlock()

	b.log.Info("publish", map[string]any{
		"sender":   msg.Sender,
		"receiver": msg.Receiver,
		"kind":     msg.Kind.String(),
		"trace_id": msg.TraceID,
	})

	if len(handlers) == 0 {
		// Unknown receivers are a decoupling feature, not an error.
		b.log.Debug("dropped: no subscriber", map[string]any{
			"receiver": msg.Receiver,
			"kind":     msg.Kind.String(),
			"trace_id": msg.TraceID,
		})
		return nil
	}

	for _, h := range handlers {
		b.dispatch(ctx, h, msg)
	}
	return nil
}

// dispatch invokes one handler, containing both returned errors and
// panics so one misbehaving subscriber cannot block the rest.
func (b *Bus) dispatch(ctx context.Context, h Handler, msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic", map[string]any{
				"receiver": msg.Receiver,
				"kind":     msg.Kind.String(),
				"trace_id": msg.TraceID,
				"panic":    fmt.Sprintf("%v", r),
			})
		}
	}()

	if err := h(ctx, msg); err != nil {
		b.log.Error("handler error", map[string]any{
			"receiver": msg.Receiver,
			"kind":     msg.Kind.String(),
			"trace_id": msg.TraceID,
			"error":    err.Error(),
		})
	}
}

// History returns the publish-ordered log of every envelope ever
// published, filtered to traceID when non-empty. The returned slice is a
// copy; callers cannot mutate bus state through it.
func (b *Bus) History(traceID string) []*protocol.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if traceID == "" {
		out := make([]*protocol.Message, len(b.history))
		copy(out, b.history)
		return out
	}

	var out []*protocol.Message
	for _, msg := range b.history {
		if msg.TraceID == traceID {
			out = append(out, msg)
		}
	}
	return out
}

// Close stops the bus. Subsequent publishes return ErrClosed; history
// remains readable.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
