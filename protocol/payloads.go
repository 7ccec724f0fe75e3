package protocol

import "encoding/json"

// Typed payload schemas, one per kind. The envelope keeps payloads as open
// maps so new kinds can be added without touching this package; producers
// and consumers go through these structs to get field-name checking at
// compile time. Encode/Decode round-trip through JSON, so numbers read
// back from a map are float64.

// Chunk is one extracted text chunk with its per-chunk metadata.
type Chunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// ScoredChunk is a retrieved chunk with its similarity score. Lower scores
// are better matches (ascending distance).
type ScoredChunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Source identifies where a retrieved chunk came from.
type Source struct {
	DocumentID string  `json:"document_id"`
	Section    any     `json:"section"`
	Score      float64 `json:"score"`
}

// IngestRequestPayload asks the ingestion agent to process a document.
type IngestRequestPayload struct {
	FilePath string `json:"file_path"`
	FileType string `json:"file_type"`
}

// IngestResponsePayload carries extracted chunks to the retrieval agent.
type IngestResponsePayload struct {
	DocumentID   string         `json:"document_id"`
	TextChunks   []Chunk        `json:"text_chunks"`
	Metadata     map[string]any `json:"metadata"`
	DocumentType string         `json:"document_type"`
}

// RetrieveRequestPayload asks the retrieval agent for relevant chunks.
type RetrieveRequestPayload struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// RetrieveResponsePayload carries retrieved chunks to the response agent.
type RetrieveResponsePayload struct {
	Query           string        `json:"query"`
	RetrievedChunks []ScoredChunk `json:"retrieved_chunks"`
	TotalResults    int           `json:"total_results"`
}

// GenerateRequestPayload asks the response agent to answer a query against
// already-prepared chunks, bypassing retrieval.
type GenerateRequestPayload struct {
	Query  string        `json:"query"`
	Chunks []ScoredChunk `json:"chunks"`
}

// GenerateResponsePayload is the final answer returned to the coordinator.
type GenerateResponsePayload struct {
	Query       string        `json:"query"`
	Response    string        `json:"response"`
	ContextUsed []ScoredChunk `json:"context_used"`
	Sources     []Source      `json:"sources"`
}

// ErrorPayload describes a failure propagated back to a sender.
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// EncodePayload converts a typed payload struct into the envelope's open
// map form.
func EncodePayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodePayload fills a typed payload struct from the envelope's open map
// form. Missing keys leave zero values; extra keys are ignored.
func DecodePayload(m map[string]any, v any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
