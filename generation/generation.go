// Package generation implements the agent that grounds an LLM answer in
// retrieved chunks and returns it to the coordinator.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/ragmesh/agent"
	"github.com/vinayprograms/ragmesh/bus"
	ragerr "github.com/vinayprograms/ragmesh/errors"
	"github.com/vinayprograms/ragmesh/llm"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
)

// Agent answers queries from retrieved context. It accepts
// RetrieveResponse envelopes from the retrieval agent and
// GenerateRequest envelopes from callers that bring their own chunks.
type Agent struct {
	agent.Emitter

	provider llm.Provider
}

// New creates the response agent around provider.
func New(b *bus.Bus, log *logging.Logger, provider llm.Provider) *Agent {
	return &Agent{
		Emitter:  agent.NewEmitter(protocol.AgentResponse, b, log),
		provider: provider,
	}
}

// Handle processes RetrieveResponse and GenerateRequest envelopes;
// other kinds are ignored.
func (a *Agent) Handle(ctx context.Context, msg *protocol.Message) {
	switch msg.Kind {
	case protocol.KindRetrieveResponse:
		var resp protocol.RetrieveResponsePayload
		if err := protocol.DecodePayload(msg.Payload, &resp); err != nil {
			a.EmitError(ctx, protocol.AgentCoordinator, msg.TraceID, err)
			return
		}
		a.generate(ctx, msg.TraceID, resp.Query, resp.RetrievedChunks)
	case protocol.KindGenerateRequest:
		var req protocol.GenerateRequestPayload
		if err := protocol.DecodePayload(msg.Payload, &req); err != nil {
			a.EmitError(ctx, protocol.AgentCoordinator, msg.TraceID, err)
			return
		}
		a.generate(ctx, msg.TraceID, req.Query, req.Chunks)
	}
}

// generate runs the LLM over the chunk context and emits the final
// GenerateResponse to the coordinator on the same trace.
func (a *Agent) generate(ctx context.Context, traceID, query string, chunks []protocol.ScoredChunk) {
	log := a.Log().WithTraceID(traceID)
	log.Info("generating response", map[string]any{"query": query, "chunks": len(chunks)})

	prompt := buildPrompt(query, buildContext(chunks))

	response, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		log.Error("completion failed", map[string]any{"error": err.Error()})
		a.EmitError(ctx, protocol.AgentCoordinator, traceID, ragerr.Wrap(err, ragerr.CodeGeneration, "llm completion"))
		return
	}

	payload, err := protocol.EncodePayload(protocol.GenerateResponsePayload{
		Query:       query,
		Response:    response,
		ContextUsed: chunks,
		Sources:     extractSources(chunks),
	})
	if err != nil {
		a.EmitError(ctx, protocol.AgentCoordinator, traceID, err)
		return
	}

	if err := a.Emit(ctx, protocol.AgentCoordinator, protocol.KindGenerateResponse, payload, traceID); err != nil {
		log.Error("emit generate response failed", map[string]any{"error": err.Error()})
		return
	}
	log.Info("generated response", nil)
}

// buildContext renders chunks as numbered, attributed source blocks.
func buildContext(chunks []protocol.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		documentID := "Unknown"
		section := any("Unknown")
		if v, ok := chunk.Metadata["document_id"].(string); ok {
			documentID = v
		}
		if cm, ok := chunk.Metadata["chunk_metadata"].(map[string]any); ok {
			if v, ok := cm["section"]; ok {
				section = v
			}
		}
		parts = append(parts, fmt.Sprintf("[Source %d - %s, Section %v]:\n%s", i+1, documentID, section, chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}

// buildPrompt frames the query and context for the LLM.
func buildPrompt(query, context string) string {
	return fmt.Sprintf(`You are a helpful assistant that answers questions based on the provided context.
Use only the information from the context to answer the question. If the context doesn't contain
enough information to answer the question, say so clearly.

Context:
%s

Question: %s

Please provide a comprehensive answer based on the context above. Include references to the sources when relevant.`, context, query)
}

// extractSources pulls citation records out of the chunk metadata.
func extractSources(chunks []protocol.ScoredChunk) []protocol.Source {
	sources := make([]protocol.Source, 0, len(chunks))
	for _, chunk := range chunks {
		source := protocol.Source{DocumentID: "Unknown", Section: "Unknown", Score: chunk.Score}
		if v, ok := chunk.Metadata["document_id"].(string); ok {
			source.DocumentID = v
		}
		if cm, ok := chunk.Metadata["chunk_metadata"].(map[string]any); ok {
			if v, ok := cm["section"]; ok {
				source.Section = v
			}
		}
		sources = append(sources, source)
	}
	return sources
}
