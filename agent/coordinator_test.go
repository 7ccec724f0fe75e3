package agent

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/vinayprograms/ragmesh/bus"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
)

func newTestRig(t *testing.T) (*bus.Bus, *Coordinator) {
	t.Helper()
	log := logging.New()
	log.SetOutput(io.Discard)
	b := bus.New(log)
	c := NewCoordinator(b, log)
	Register(b, c)
	return b, c
}

// respond subscribes a handler under name that replies to every inbound
// envelope with the given kind and payload after an optional delay.
func respond(b *bus.Bus, name string, delay time.Duration, kind protocol.Kind, payload map[string]any) {
	b.Subscribe(name, func(ctx context.Context, msg *protocol.Message) error {
		if delay > 0 {
			time.Sleep(delay)
		}
		reply := protocol.NewMessage(name, msg.Sender, kind, msg.TraceID, payload)
		return b.Publish(ctx, reply)
	})
}

func TestRequestResolvesWithResponsePayload(t *testing.T) {
	b, c := newTestRig(t)
	respond(b, "RetrievalAgent", 0, protocol.KindGenerateResponse, map[string]any{
		"response": "the answer",
	})

	out := c.Request(context.Background(), protocol.KindRetrieveRequest, "RetrievalAgent", map[string]any{"query": "q"}, time.Second)

	if out.Status != StatusSuccess {
		t.Fatalf("status = %v, want success (err=%q)", out.Status, out.Err)
	}
	if out.Payload["response"] != "the answer" {
		t.Errorf("payload = %v", out.Payload)
	}
	if got := c.pendingCount(); got != 0 {
		t.Errorf("pending registry not cleaned up: %d entries", got)
	}
}

func TestRequestResolvesWithErrorEnvelope(t *testing.T) {
	b, c := newTestRig(t)
	respond(b, "RetrievalAgent", 0, protocol.KindError, map[string]any{
		"error": "index unavailable",
	})

	out := c.Request(context.Background(), protocol.KindRetrieveRequest, "RetrievalAgent", map[string]any{"query": "q"}, time.Second)

	if out.Status != StatusFailed {
		t.Fatalf("status = %v, want failed", out.Status)
	}
	if out.Err != "index unavailable" {
		t.Errorf("err = %q, want remote description", out.Err)
	}
	if got := c.pendingCount(); got != 0 {
		t.Errorf("pending registry not cleaned up: %d entries", got)
	}
}

func TestRequestTimesOutAgainstSlowHandler(t *testing.T) {
	b, c := newTestRig(t)
	respond(b, "RetrievalAgent", time.Second, protocol.KindGenerateResponse, map[string]any{
		"response": "too late",
	})

	const timeout = 10 * time.Millisecond
	start := time.Now()
	out := c.Request(context.Background(), protocol.KindRetrieveRequest, "RetrievalAgent", map[string]any{"query": "q"}, timeout)
	elapsed := time.Since(start)

	if out.Status != StatusTimeout {
		t.Fatalf("status = %v, want timeout", out.Status)
	}
	if elapsed < timeout {
		t.Errorf("resolved before the deadline: %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("timeout fired far too late: %v", elapsed)
	}
	if got := c.pendingCount(); got != 0 {
		t.Errorf("pending registry not cleaned up after timeout: %d entries", got)
	}

	// The slow handler eventually responds; the late envelope must be
	// dropped without disturbing anything.
	time.Sleep(1200 * time.Millisecond)
	if got := c.pendingCount(); got != 0 {
		t.Errorf("late response re-registered a slot: %d entries", got)
	}
}

func TestRequestToUnknownDestinationTimesOut(t *testing.T) {
	_, c := newTestRig(t)

	out := c.Request(context.Background(), protocol.KindRetrieveRequest, "NoSuchAgent", map[string]any{"query": "q"}, 20*time.Millisecond)

	if out.Status != StatusTimeout {
		t.Errorf("status = %v, want timeout (no synthesized delivery error)", out.Status)
	}
}

func TestDuplicateResponseIgnored(t *testing.T) {
	b, c := newTestRig(t)
	// Replies twice: a success and then an error for the same trace.
	b.Subscribe("RetrievalAgent", func(ctx context.Context, msg *protocol.Message) error {
		first := protocol.NewMessage("RetrievalAgent", msg.Sender, protocol.KindGenerateResponse, msg.TraceID, map[string]any{
			"response": "first",
		})
		if err := b.Publish(ctx, first); err != nil {
			return err
		}
		second := protocol.NewMessage("RetrievalAgent", msg.Sender, protocol.KindError, msg.TraceID, map[string]any{
			"error": "should be ignored",
		})
		return b.Publish(ctx, second)
	})

	out := c.Request(context.Background(), protocol.KindRetrieveRequest, "RetrievalAgent", map[string]any{"query": "q"}, time.Second)

	if out.Status != StatusSuccess {
		t.Fatalf("status = %v, want success from the first resolution", out.Status)
	}
	if out.Payload["response"] != "first" {
		t.Errorf("payload = %v, want the first response", out.Payload)
	}
}

func TestResponseWithoutPendingSlotDropped(t *testing.T) {
	b, c := newTestRig(t)

	stray := protocol.NewMessage("ResponseAgent", protocol.AgentCoordinator, protocol.KindGenerateResponse, "never-registered", map[string]any{
		"response": "stray",
	})
	if err := b.Publish(context.Background(), stray); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if got := c.pendingCount(); got != 0 {
		t.Errorf("stray response created state: %d entries", got)
	}
}

func TestConcurrentRequestsCorrelateIndependently(t *testing.T) {
	b, c := newTestRig(t)
	// Echo the query back so each request can verify its own response.
	b.Subscribe("RetrievalAgent", func(ctx context.Context, msg *protocol.Message) error {
		reply := protocol.NewMessage("RetrievalAgent", msg.Sender, protocol.KindGenerateResponse, msg.TraceID, map[string]any{
			"response": msg.Payload["query"],
		})
		return b.Publish(ctx, reply)
	})

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			q := string(rune('a' + i))
			out := c.Request(context.Background(), protocol.KindRetrieveRequest, "RetrievalAgent", map[string]any{"query": q}, time.Second)
			if out.Status != StatusSuccess || out.Payload["response"] != q {
				done <- contextError(out)
				return
			}
			done <- nil
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Error(err)
		}
	}
	if got := c.pendingCount(); got != 0 {
		t.Errorf("pending registry not empty: %d entries", got)
	}
}

func contextError(out *Outcome) error {
	return &crossedWires{out}
}

type crossedWires struct{ out *Outcome }

func (e *crossedWires) Error() string {
	return "crossed correlation: status=" + string(e.out.Status) + " err=" + e.out.Err
}

func TestQueryShapesTimeoutForDisplay(t *testing.T) {
	_, c := newTestRig(t)
	c.timeout = 20 * time.Millisecond

	res := c.Query(context.Background(), "anything", 0)

	if res.Err != "timeout" {
		t.Errorf("err marker = %q, want %q", res.Err, "timeout")
	}
	if res.Response != timeoutResponse {
		t.Errorf("response = %q, want the apology text", res.Response)
	}
}

func TestQueryShapesRemoteErrorForDisplay(t *testing.T) {
	b, c := newTestRig(t)
	respond(b, protocol.AgentRetrieval, 0, protocol.KindError, map[string]any{
		"error": "embedding backend down",
	})

	res := c.Query(context.Background(), "anything", 3)

	if res.Err != "embedding backend down" {
		t.Errorf("err marker = %q", res.Err)
	}
	if res.Response != errorResponse {
		t.Errorf("response = %q, want the apology text", res.Response)
	}
}
