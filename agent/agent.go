// Package agent defines the agent abstraction and the coordinator that
// turns the bus's fire-and-forget publishes into awaitable
// request/response calls.
package agent

import (
	"context"

	"github.com/vinayprograms/ragmesh/bus"
	ragerr "github.com/vinayprograms/ragmesh/errors"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
)

// Agent is a named entity that processes inbound envelopes. Handle must
// never panic past its own boundary and never returns an error: failures
// are converted into Error-kind envelopes addressed back to the sender.
// Envelopes of kinds the agent does not recognize are ignored.
type Agent interface {
	// Name is the agent's bus registration key.
	Name() string

	// Handle processes one inbound envelope.
	Handle(ctx context.Context, msg *protocol.Message)
}

// Register wires an agent's inbound handler to the bus under its own
// name. Wiring is explicit and owned by the composition root; agent
// constructors have no registration side effects.
func Register(b *bus.Bus, a Agent) {
	b.Subscribe(a.Name(), func(ctx context.Context, msg *protocol.Message) error {
		a.Handle(ctx, msg)
		return nil
	})
}

// Emitter produces outbound traffic for a named agent. Embedding an
// Emitter gives a concrete agent its Name and its only way of publishing.
type Emitter struct {
	name string
	bus  *bus.Bus
	log  *logging.Logger
}

// NewEmitter creates an emitter for the named agent.
func NewEmitter(name string, b *bus.Bus, log *logging.Logger) Emitter {
	if log == nil {
		log = logging.New()
	}
	return Emitter{name: name, bus: b, log: log.WithComponent(name)}
}

// Name returns the agent's name.
func (e *Emitter) Name() string {
	return e.name
}

// Log returns the agent-scoped logger.
func (e *Emitter) Log() *logging.Logger {
	return e.log
}

// Emit constructs an envelope from the agent's own name and publishes it.
func (e *Emitter) Emit(ctx context.Context, receiver string, kind protocol.Kind, payload map[string]any, traceID string) error {
	msg := protocol.NewMessage(e.name, receiver, kind, traceID, payload)
	return e.bus.Publish(ctx, msg)
}

// EmitError reports a failure to receiver on the same trace. This is the
// only channel through which collaborator errors leave an agent.
func (e *Emitter) EmitError(ctx context.Context, receiver, traceID string, err error) {
	payload := map[string]any{"error": err.Error()}
	if code := ragerr.CodeOf(err); code != "" {
		payload["code"] = code.String()
	}
	if emitErr := e.Emit(ctx, receiver, protocol.KindError, payload, traceID); emitErr != nil {
		e.log.Error("emit error envelope failed", map[string]any{
			"receiver": receiver,
			"trace_id": traceID,
			"error":    emitErr.Error(),
		})
	}
}
