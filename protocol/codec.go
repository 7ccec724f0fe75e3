package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToMap flattens the message for transport. The kind is encoded as its
// string tag and the timestamp as RFC 3339, mirroring the JSON form. The
// payload map is shared, not copied; treat the result as read-only.
func (m *Message) ToMap() map[string]any {
	out := map[string]any{
		"sender":   m.Sender,
		"receiver": m.Receiver,
		"kind":     string(m.Kind),
		"trace_id": m.TraceID,
		"payload":  m.Payload,
	}
	if !m.Timestamp.IsZero() {
		out["timestamp"] = m.Timestamp.Format(time.RFC3339Nano)
	}
	return out
}

// FromMap reconstructs a message from its flat-map form. An unknown kind
// tag fails with ErrInvalidKind before any field is consumed.
func FromMap(data map[string]any) (*Message, error) {
	kindTag, _ := data["kind"].(string)
	kind, err := ParseKind(kindTag)
	if err != nil {
		return nil, err
	}

	m := &Message{Kind: kind}
	m.Sender, _ = data["sender"].(string)
	m.Receiver, _ = data["receiver"].(string)
	m.TraceID, _ = data["trace_id"].(string)
	if p, ok := data["payload"].(map[string]any); ok {
		m.Payload = p
	}
	if ts, ok := data["timestamp"].(string); ok && ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Marshal serializes the message to JSON.
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserializes a message from JSON, rejecting unknown kinds.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if !m.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, string(m.Kind))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
