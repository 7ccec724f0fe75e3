// Package retrieval implements the agent that indexes ingested chunks
// and answers similarity queries over them.
package retrieval

import (
	"context"
	"sync"

	"github.com/vinayprograms/ragmesh/agent"
	"github.com/vinayprograms/ragmesh/bus"
	"github.com/vinayprograms/ragmesh/embed"
	"github.com/vinayprograms/ragmesh/index"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
)

const defaultTopK = 5

// Agent owns the vector index and the keyword sidecar. With an embedder
// configured, queries go through the vector index; without one, BM25
// keyword search serves as the retrieval path.
type Agent struct {
	agent.Emitter

	embedder embed.Generator
	vectors  *index.Vector
	keywords *index.Text

	mu      sync.Mutex
	indexed map[string]bool
}

// Option configures the retrieval agent.
type Option func(*Agent)

// WithEmbedder enables vector retrieval through gen.
func WithEmbedder(gen embed.Generator) Option {
	return func(a *Agent) {
		a.embedder = gen
		a.vectors = index.NewVector(gen.Dimension())
	}
}

// WithVectorIndex supplies a pre-loaded vector index, for resuming from
// a saved snapshot. Only meaningful together with WithEmbedder.
func WithVectorIndex(v *index.Vector) Option {
	return func(a *Agent) {
		a.vectors = v
	}
}

// New creates the retrieval agent. The keyword index is always
// maintained; keywords may be nil to build an in-memory one.
func New(b *bus.Bus, log *logging.Logger, keywords *index.Text, opts ...Option) (*Agent, error) {
	if keywords == nil {
		var err error
		keywords, err = index.NewText("")
		if err != nil {
			return nil, err
		}
	}

	a := &Agent{
		Emitter:  agent.NewEmitter(protocol.AgentRetrieval, b, log),
		keywords: keywords,
		indexed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Handle processes IngestResponse and RetrieveRequest envelopes; other
// kinds are ignored.
func (a *Agent) Handle(ctx context.Context, msg *protocol.Message) {
	switch msg.Kind {
	case protocol.KindIngestResponse:
		a.handleIngestResponse(ctx, msg)
	case protocol.KindRetrieveRequest:
		a.handleRetrieveRequest(ctx, msg)
	}
}

// handleIngestResponse indexes a document's chunks. Failures here are
// logged but never error-replied; the ingest chain has no waiter.
func (a *Agent) handleIngestResponse(ctx context.Context, msg *protocol.Message) {
	log := a.Log().WithTraceID(msg.TraceID)

	var resp protocol.IngestResponsePayload
	if err := protocol.DecodePayload(msg.Payload, &resp); err != nil {
		log.Error("bad ingest response payload", map[string]any{"error": err.Error()})
		return
	}

	a.mu.Lock()
	already := a.indexed[resp.DocumentID]
	if !already {
		a.indexed[resp.DocumentID] = true
	}
	a.mu.Unlock()
	if already {
		log.Info("document already indexed", map[string]any{"document_id": resp.DocumentID})
		return
	}

	texts := make([]string, 0, len(resp.TextChunks))
	metadata := make([]map[string]any, 0, len(resp.TextChunks))
	for i, chunk := range resp.TextChunks {
		if chunk.Text == "" {
			continue
		}
		texts = append(texts, chunk.Text)
		metadata = append(metadata, map[string]any{
			"document_id":       resp.DocumentID,
			"chunk_id":          i,
			"document_metadata": resp.Metadata,
			"chunk_metadata":    chunk.Metadata,
		})
	}
	if len(texts) == 0 {
		log.Info("no text content in document", map[string]any{"document_id": resp.DocumentID})
		return
	}

	if a.embedder != nil {
		vectors, err := a.embedder.Embed(ctx, texts)
		if err != nil {
			log.Error("embedding failed", map[string]any{"error": err.Error()})
			a.unmarkIndexed(resp.DocumentID)
			return
		}
		if err := a.vectors.Add(vectors, texts, metadata); err != nil {
			log.Error("vector indexing failed", map[string]any{"error": err.Error()})
			a.unmarkIndexed(resp.DocumentID)
			return
		}
	}
	if err := a.keywords.Add(texts, metadata); err != nil {
		log.Error("keyword indexing failed", map[string]any{"error": err.Error()})
	}

	log.Info("indexed document", map[string]any{
		"document_id": resp.DocumentID,
		"chunks":      len(texts),
	})
}

func (a *Agent) unmarkIndexed(docID string) {
	a.mu.Lock()
	delete(a.indexed, docID)
	a.mu.Unlock()
}

// handleRetrieveRequest searches the index and forwards the ranked
// chunks to the response agent on the same trace.
func (a *Agent) handleRetrieveRequest(ctx context.Context, msg *protocol.Message) {
	log := a.Log().WithTraceID(msg.TraceID)

	var req protocol.RetrieveRequestPayload
	if err := protocol.DecodePayload(msg.Payload, &req); err != nil {
		a.EmitError(ctx, msg.Sender, msg.TraceID, err)
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	log.Info("processing retrieval request", map[string]any{"query": req.Query, "top_k": topK})

	hits, err := a.search(ctx, req.Query, topK)
	if err != nil {
		log.Error("search failed", map[string]any{"error": err.Error()})
		a.EmitError(ctx, msg.Sender, msg.TraceID, err)
		return
	}

	chunks := make([]protocol.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, protocol.ScoredChunk{
			Text:     hit.Text,
			Metadata: hit.Metadata,
			Score:    hit.Score,
		})
	}

	payload, err := protocol.EncodePayload(protocol.RetrieveResponsePayload{
		Query:           req.Query,
		RetrievedChunks: chunks,
		TotalResults:    len(chunks),
	})
	if err != nil {
		a.EmitError(ctx, msg.Sender, msg.TraceID, err)
		return
	}

	if err := a.Emit(ctx, protocol.AgentResponse, protocol.KindRetrieveResponse, payload, msg.TraceID); err != nil {
		log.Error("emit retrieve response failed", map[string]any{"error": err.Error()})
		return
	}
	log.Info("retrieved chunks", map[string]any{"count": len(chunks)})
}

func (a *Agent) search(ctx context.Context, query string, topK int) ([]index.Hit, error) {
	if a.embedder == nil {
		return a.keywords.Search(query, topK)
	}
	vectors, err := a.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return a.vectors.Search(vectors[0], topK)
}

// Stats reports the state of the underlying indexes.
func (a *Agent) Stats() index.Stats {
	if a.vectors != nil {
		return a.vectors.Stats()
	}
	return index.Stats{TotalChunks: a.keywords.Count()}
}

// SaveIndex persists the vector index to path. A nil vector index (no
// embedder) is a no-op.
func (a *Agent) SaveIndex(path string) error {
	if a.vectors == nil {
		return nil
	}
	return a.vectors.Save(path)
}

// Close releases the keyword index.
func (a *Agent) Close() error {
	return a.keywords.Close()
}
