package protocol

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", k, err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v", k, got)
		}
	}

	if _, err := ParseKind("NotAKind"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := ParseKind(""); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind for empty tag, got %v", err)
	}
}

func TestMapRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		msg := NewMessage("CoordinatorAgent", "RetrievalAgent", k, NewTraceID(), map[string]any{
			"query": "what is a message bus",
			"top_k": 5,
		})

		got, err := FromMap(msg.ToMap())
		if err != nil {
			t.Fatalf("%s: FromMap error: %v", k, err)
		}

		if got.Sender != msg.Sender || got.Receiver != msg.Receiver ||
			got.Kind != msg.Kind || got.TraceID != msg.TraceID {
			t.Errorf("%s: header mismatch: got %+v want %+v", k, got, msg)
		}
		if !reflect.DeepEqual(got.Payload, msg.Payload) {
			t.Errorf("%s: payload mismatch: got %v want %v", k, got.Payload, msg.Payload)
		}
		if !got.Timestamp.Equal(msg.Timestamp) {
			t.Errorf("%s: timestamp mismatch: got %v want %v", k, got.Timestamp, msg.Timestamp)
		}
	}
}

func TestFromMapInvalidKind(t *testing.T) {
	data := map[string]any{
		"sender":   "a",
		"receiver": "b",
		"kind":     "TotallyUnknown",
		"trace_id": "t1",
		"payload":  map[string]any{},
	}

	if _, err := FromMap(data); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestFromMapMissingFields(t *testing.T) {
	data := map[string]any{
		"kind":     string(KindError),
		"receiver": "b",
	}
	if _, err := FromMap(data); !errors.Is(err, ErrMissingSender) {
		t.Errorf("expected ErrMissingSender, got %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	msg := NewMessage("IngestionAgent", "RetrievalAgent", KindIngestResponse, NewTraceID(), map[string]any{
		"document_id": "notes.txt_txt",
	})

	data, err := msg.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if got.Kind != msg.Kind || got.TraceID != msg.TraceID {
		t.Errorf("round trip mismatch: got %+v want %+v", got, msg)
	}

	if _, err := Unmarshal([]byte(`{"sender":"a","receiver":"b","kind":"Nope","trace_id":"t"}`)); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestNewTraceIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTraceID()
		if id == "" {
			t.Fatal("empty trace id")
		}
		if seen[id] {
			t.Fatalf("duplicate trace id: %s", id)
		}
		seen[id] = true
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"ok", Message{Sender: "a", Receiver: "b", Kind: KindError}, nil},
		{"no sender", Message{Receiver: "b", Kind: KindError}, ErrMissingSender},
		{"no receiver", Message{Sender: "a", Kind: KindError}, ErrMissingReceiver},
		{"bad kind", Message{Sender: "a", Receiver: "b", Kind: "Nope"}, ErrInvalidKind},
	}

	for _, tt := range tests {
		err := tt.msg.Validate()
		if tt.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestPayloadEncodeDecode(t *testing.T) {
	req := RetrieveRequestPayload{Query: "bus ordering", TopK: 3}

	m, err := EncodePayload(req)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}
	if m["query"] != "bus ordering" {
		t.Errorf("query = %v", m["query"])
	}

	var got RetrieveRequestPayload
	if err := DecodePayload(m, &got); err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}
	if got != req {
		t.Errorf("round trip = %+v, want %+v", got, req)
	}
}

func TestMessageTimestampSet(t *testing.T) {
	before := time.Now().Add(-time.Second)
	msg := NewMessage("a", "b", KindError, "t", nil)
	if msg.Timestamp.Before(before) {
		t.Errorf("timestamp not set at construction: %v", msg.Timestamp)
	}
}
