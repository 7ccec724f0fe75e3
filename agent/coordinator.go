package agent

import (
	"context"
	"sync"
	"time"

	"github.com/vinayprograms/ragmesh/bus"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
)

// Status classifies the outcome of a coordinator request.
type Status string

const (
	// StatusSuccess means a correlated response arrived in time.
	StatusSuccess Status = "success"

	// StatusFailed means a correlated Error envelope arrived, or the
	// request could not be published.
	StatusFailed Status = "failed"

	// StatusTimeout means no correlated envelope arrived within the
	// deadline.
	StatusTimeout Status = "timeout"
)

// Outcome is the structured result of one request. Timeouts and remote
// failures are outcomes, never Go errors: the caller decides presentation.
type Outcome struct {
	TraceID string
	Status  Status
	Payload map[string]any
	Err     string
}

// slot is a single-resolution wait primitive. The first resolve wins;
// every later resolve is a no-op, which protects against duplicate and
// late deliveries.
type slot struct {
	once sync.Once
	ch   chan *Outcome
}

func newSlot() *slot {
	return &slot{ch: make(chan *Outcome, 1)}
}

func (s *slot) resolve(o *Outcome) {
	s.once.Do(func() { s.ch <- o })
}

// User-visible fallbacks for failed requests.
const (
	timeoutResponse = "I apologize, but the request timed out. Please try again."
	errorResponse   = "An error occurred while processing your request."
)

const defaultTopK = 5

// Coordinator originates user-facing requests and correlates inbound
// responses to waiting callers by trace id.
type Coordinator struct {
	Emitter

	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*slot
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the default deadline for Query and other high-level
// calls. Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCoordinator creates the coordinator agent. Like every agent it must
// be wired with Register before it can see responses.
func NewCoordinator(b *bus.Bus, log *logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		Emitter: NewEmitter(protocol.AgentCoordinator, b, log),
		timeout: 30 * time.Second,
		pending: make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle matches response and error envelopes to pending requests by
// trace id. Envelopes with no pending slot (already resolved, timed out,
// or never ours) are dropped. All other kinds are ignored.
func (c *Coordinator) Handle(ctx context.Context, msg *protocol.Message) {
	switch msg.Kind {
	case protocol.KindGenerateResponse:
		c.complete(msg.TraceID, &Outcome{
			TraceID: msg.TraceID,
			Status:  StatusSuccess,
			Payload: msg.Payload,
		})
	case protocol.KindError:
		var p protocol.ErrorPayload
		if err := protocol.DecodePayload(msg.Payload, &p); err != nil || p.Error == "" {
			p.Error = "unknown error"
		}
		c.complete(msg.TraceID, &Outcome{
			TraceID: msg.TraceID,
			Status:  StatusFailed,
			Payload: msg.Payload,
			Err:     p.Error,
		})
	}
}

func (c *Coordinator) complete(traceID string, o *Outcome) {
	c.mu.Lock()
	s, ok := c.pending[traceID]
	c.mu.Unlock()
	if !ok {
		c.Log().Debug("dropped: no pending request", map[string]any{
			"trace_id": traceID,
			"status":   string(o.Status),
		})
		return
	}
	s.resolve(o)
}

// Request emits kind to destination with a fresh trace id and waits for
// the first of: a correlated GenerateResponse (success), a correlated
// Error envelope (failed), the timeout elapsing, or ctx cancellation.
// The pending slot accepts exactly one resolution and is removed before
// Request returns on every path, so late responses find nothing and are
// dropped. A destination with zero subscribers simply times out; the bus
// does not know about agent discovery.
func (c *Coordinator) Request(ctx context.Context, kind protocol.Kind, destination string, payload map[string]any, timeout time.Duration) *Outcome {
	traceID := protocol.NewTraceID()

	s := newSlot()
	c.mu.Lock()
	c.pending[traceID] = s
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, traceID)
		c.mu.Unlock()
	}()

	// Publish from a separate goroutine: the bus blocks the publisher
	// until the entire synchronous delivery chain completes, and the
	// timeout must be able to fire while the destination is still working.
	go func() {
		if err := c.Emit(ctx, destination, kind, payload, traceID); err != nil {
			s.resolve(&Outcome{TraceID: traceID, Status: StatusFailed, Err: err.Error()})
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-s.ch:
		return o
	case <-timer.C:
		c.Log().Warn("request timed out", map[string]any{
			"kind":        kind.String(),
			"destination": destination,
			"trace_id":    traceID,
			"timeout":     timeout.String(),
		})
		return &Outcome{TraceID: traceID, Status: StatusTimeout, Err: "timeout waiting for response"}
	case <-ctx.Done():
		return &Outcome{TraceID: traceID, Status: StatusFailed, Err: ctx.Err().Error()}
	}
}

// QueryResult is what the chat surface sees for one user query. Err is
// empty on success, "timeout" on deadline expiry, or the remote error
// description; Response always holds displayable text either way.
type QueryResult struct {
	TraceID  string
	Query    string
	Response string
	Sources  []protocol.Source
	Err      string
}

// Query runs the retrieve-then-generate chain for a user query and shapes
// the outcome for display. Failures never surface as Go errors.
func (c *Coordinator) Query(ctx context.Context, query string, topK int) *QueryResult {
	if topK <= 0 {
		topK = defaultTopK
	}

	payload, err := protocol.EncodePayload(protocol.RetrieveRequestPayload{Query: query, TopK: topK})
	if err != nil {
		return &QueryResult{Query: query, Response: errorResponse, Err: err.Error()}
	}

	c.Log().Info("processing user query", map[string]any{"query": query})
	out := c.Request(ctx, protocol.KindRetrieveRequest, protocol.AgentRetrieval, payload, c.timeout)

	switch out.Status {
	case StatusSuccess:
		var p protocol.GenerateResponsePayload
		if err := protocol.DecodePayload(out.Payload, &p); err != nil {
			return &QueryResult{TraceID: out.TraceID, Query: query, Response: errorResponse, Err: err.Error()}
		}
		return &QueryResult{
			TraceID:  out.TraceID,
			Query:    query,
			Response: p.Response,
			Sources:  p.Sources,
		}
	case StatusTimeout:
		return &QueryResult{TraceID: out.TraceID, Query: query, Response: timeoutResponse, Err: "timeout"}
	default:
		return &QueryResult{TraceID: out.TraceID, Query: query, Response: errorResponse, Err: out.Err}
	}
}

// Ingest submits a document for ingestion and returns the chain's trace
// id. No response envelope is awaited; the ingest chain terminates at the
// retrieval agent. Because bus delivery is synchronous in-process,
// the document has been parsed and indexed by the time Ingest returns.
func (c *Coordinator) Ingest(ctx context.Context, filePath, fileType string) (string, error) {
	traceID := protocol.NewTraceID()

	payload, err := protocol.EncodePayload(protocol.IngestRequestPayload{FilePath: filePath, FileType: fileType})
	if err != nil {
		return "", err
	}

	c.Log().Info("processing document upload", map[string]any{
		"file_path": filePath,
		"file_type": fileType,
	})
	if err := c.Emit(ctx, protocol.AgentIngestion, protocol.KindIngestRequest, payload, traceID); err != nil {
		return "", err
	}
	return traceID, nil
}

// pendingCount reports the number of in-flight requests.
func (c *Coordinator) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
