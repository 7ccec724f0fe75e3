// Package ingestion implements the agent that turns uploaded documents
// into text chunks for indexing.
package ingestion

import (
	"context"
	"sync"

	"github.com/vinayprograms/ragmesh/agent"
	"github.com/vinayprograms/ragmesh/bus"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/parse"
	"github.com/vinayprograms/ragmesh/protocol"
)

// processed holds the parse output cached per document id.
type processed struct {
	doc    *parse.Document
	chunks []protocol.Chunk
}

// Agent parses documents on IngestRequest and hands the resulting
// chunks to the retrieval agent as an IngestResponse on the same trace.
type Agent struct {
	agent.Emitter

	parser *parse.Parser

	mu        sync.Mutex
	documents map[string]processed
}

// New creates the ingestion agent.
func New(b *bus.Bus, log *logging.Logger) *Agent {
	return &Agent{
		Emitter:   agent.NewEmitter(protocol.AgentIngestion, b, log),
		parser:    parse.New(),
		documents: make(map[string]processed),
	}
}

// Handle processes IngestRequest envelopes; other kinds are ignored.
func (a *Agent) Handle(ctx context.Context, msg *protocol.Message) {
	if msg.Kind != protocol.KindIngestRequest {
		return
	}

	var req protocol.IngestRequestPayload
	if err := protocol.DecodePayload(msg.Payload, &req); err != nil {
		a.EmitError(ctx, msg.Sender, msg.TraceID, err)
		return
	}

	log := a.Log().WithTraceID(msg.TraceID)
	log.Info("processing file", map[string]any{
		"file_path": req.FilePath,
		"file_type": req.FileType,
	})

	doc, err := a.parser.Parse(req.FilePath, req.FileType)
	if err != nil {
		log.Error("parse failed", map[string]any{"error": err.Error()})
		a.EmitError(ctx, msg.Sender, msg.TraceID, err)
		return
	}

	chunks := extractChunks(doc)
	docID := req.FilePath + "_" + req.FileType

	a.mu.Lock()
	a.documents[docID] = processed{doc: doc, chunks: chunks}
	a.mu.Unlock()

	payload, err := protocol.EncodePayload(protocol.IngestResponsePayload{
		DocumentID:   docID,
		TextChunks:   chunks,
		Metadata:     doc.Metadata,
		DocumentType: req.FileType,
	})
	if err != nil {
		a.EmitError(ctx, msg.Sender, msg.TraceID, err)
		return
	}

	if err := a.Emit(ctx, protocol.AgentRetrieval, protocol.KindIngestResponse, payload, msg.TraceID); err != nil {
		log.Error("emit ingest response failed", map[string]any{"error": err.Error()})
		return
	}
	log.Info("processed document", map[string]any{
		"document_id": docID,
		"chunks":      len(chunks),
	})
}

// ChunkCount reports how many chunks a processed document produced, and
// whether the document has been processed at all.
func (a *Agent) ChunkCount(docID string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.documents[docID]
	return len(p.chunks), ok
}

// extractChunks flattens document sections into embeddable chunks. Each
// chunk remembers its document type and section locator so answers can
// cite where the text came from.
func extractChunks(doc *parse.Document) []protocol.Chunk {
	chunks := make([]protocol.Chunk, 0, len(doc.Sections))
	for _, section := range doc.Sections {
		if section.Content == "" {
			continue
		}
		chunks = append(chunks, protocol.Chunk{
			Text: section.Content,
			Metadata: map[string]any{
				"document_type": doc.Type,
				"section":       section.Locator,
			},
		})
	}
	return chunks
}
