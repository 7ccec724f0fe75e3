package index

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	ragerr "github.com/vinayprograms/ragmesh/errors"
)

// chunkDocument is the indexed form of one chunk.
type chunkDocument struct {
	Text string `json:"text"`
}

// Text is a BM25 keyword index over chunk text. It serves as the
// retrieval path when no embedder is configured and scores are mapped
// into the same lower-is-better range the vector index uses. Safe for
// concurrent use.
type Text struct {
	mu    sync.RWMutex
	index bleve.Index
	next  int

	// bleve stores analyzed text, not arbitrary nested metadata, so the
	// original chunk rides in a sidecar keyed by document id.
	chunks map[string]Hit
}

// NewText opens or creates a keyword index at path. An empty path keeps
// the index in memory only.
func NewText(path string) (*Text, error) {
	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(buildChunkMapping())
	default:
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			idx, err = bleve.New(path, buildChunkMapping())
		} else {
			idx, err = bleve.Open(path)
		}
	}
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeInternal, "open keyword index")
	}

	return &Text{index: idx, chunks: make(map[string]Hit)}, nil
}

func buildChunkMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Add indexes a batch of chunks. texts and metadata are parallel.
func (t *Text) Add(texts []string, metadata []map[string]any) error {
	if len(texts) != len(metadata) {
		return ragerr.Newf(ragerr.CodeInvalidInput, "mismatched batch: %d texts, %d metadata", len(texts), len(metadata))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, text := range texts {
		id := fmt.Sprintf("chunk-%d", t.next)
		t.next++
		if err := t.index.Index(id, chunkDocument{Text: text}); err != nil {
			return ragerr.Wrap(err, ragerr.CodeInternal, "index chunk")
		}
		t.chunks[id] = Hit{Text: text, Metadata: metadata[i]}
	}
	return nil
}

// Search runs a BM25 match query and returns up to k hits, best first.
// BM25 scores grow with relevance, so they are mapped to 1/(1+score) to
// keep Hit.Score lower-is-better.
func (t *Text) Search(query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = k

	result, err := t.index.Search(req)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeSearch, "keyword search failed")
	}

	var hits []Hit
	for _, match := range result.Hits {
		chunk, ok := t.chunks[match.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
			Score:    1 / (1 + match.Score),
		})
	}
	return hits, nil
}

// Count reports the number of indexed chunks.
func (t *Text) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chunks)
}

// Close releases the underlying index.
func (t *Text) Close() error {
	return t.index.Close()
}
