// Package protocol defines the message envelope exchanged between agents:
// one addressed, kind-tagged, trace-correlated unit of communication.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	ErrInvalidKind     = errors.New("invalid message kind")
	ErrMissingSender   = errors.New("missing sender")
	ErrMissingReceiver = errors.New("missing receiver")
)

// Kind identifies the type of a message. The set is closed; extend only by
// adding a new tag.
type Kind string

const (
	KindIngestRequest    Kind = "IngestRequest"
	KindIngestResponse   Kind = "IngestResponse"
	KindRetrieveRequest  Kind = "RetrieveRequest"
	KindRetrieveResponse Kind = "RetrieveResponse"
	KindGenerateRequest  Kind = "GenerateRequest"
	KindGenerateResponse Kind = "GenerateResponse"
	KindContextResponse  Kind = "ContextResponse"
	KindError            Kind = "Error"
)

// Kinds lists every valid kind, in a stable order.
var Kinds = []Kind{
	KindIngestRequest,
	KindIngestResponse,
	KindRetrieveRequest,
	KindRetrieveResponse,
	KindGenerateRequest,
	KindGenerateResponse,
	KindContextResponse,
	KindError,
}

var validKinds = func() map[Kind]bool {
	m := make(map[Kind]bool, len(Kinds))
	for _, k := range Kinds {
		m[k] = true
	}
	return m
}()

// String returns the kind's wire tag.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	return validKinds[k]
}

// ParseKind converts a wire tag into a Kind. Unknown tags fail with
// ErrInvalidKind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Agent names used as bus registration keys.
const (
	AgentIngestion   = "IngestionAgent"
	AgentRetrieval   = "RetrievalAgent"
	AgentResponse    = "ResponseAgent"
	AgentCoordinator = "CoordinatorAgent"
)

// Message is the envelope for one unit of inter-agent communication.
// Messages are immutable after construction: neither the bus nor a
// receiving agent may modify a published message, and the trace id is
// never rewritten by an intermediate hop.
type Message struct {
	// Sender is the originating agent's name.
	Sender string `json:"sender"`

	// Receiver is the destination agent's name. Delivery happens only if a
	// subscriber is registered under this name; otherwise the message is
	// recorded in history and dropped.
	Receiver string `json:"receiver"`

	// Kind tags the payload schema.
	Kind Kind `json:"kind"`

	// TraceID correlates every message belonging to one logical
	// request/response chain. Generated once at request origination and
	// propagated unchanged.
	TraceID string `json:"trace_id"`

	// Payload is an open mapping whose schema is kind-specific and
	// enforced by producer/consumer convention, not by the envelope.
	Payload map[string]any `json:"payload"`

	// Timestamp is the creation time, informational only.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NewMessage constructs a message with the creation time set.
func NewMessage(sender, receiver string, kind Kind, traceID string, payload map[string]any) *Message {
	return &Message{
		Sender:    sender,
		Receiver:  receiver,
		Kind:      kind,
		TraceID:   traceID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the envelope's required fields.
func (m *Message) Validate() error {
	if m.Sender == "" {
		return ErrMissingSender
	}
	if m.Receiver == "" {
		return ErrMissingReceiver
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(m.Kind))
	}
	return nil
}

// NewTraceID returns a fresh correlation token, unique with overwhelming
// probability across the process lifetime.
func NewTraceID() string {
	return uuid.NewString()
}
