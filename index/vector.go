// Package index stores chunk vectors and text and answers top-k
// similarity queries over them.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	ragerr "github.com/vinayprograms/ragmesh/errors"
)

// Hit is one search result. Score is a distance: lower is better, and
// results are returned best first.
type Hit struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Stats summarizes the state of an index.
type Stats struct {
	TotalChunks int `json:"total_chunks"`
	Dimension   int `json:"dimension"`
}

// Vector is a flat in-memory vector index searched by exhaustive L2
// scan. At the corpus sizes a single process ingests, a flat scan beats
// the bookkeeping of anything fancier. Safe for concurrent use.
type Vector struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	texts     []string
	metadata  []map[string]any
}

// NewVector creates an empty index accepting vectors of width dimension.
func NewVector(dimension int) *Vector {
	return &Vector{dimension: dimension}
}

// Add appends a batch of chunks. The three slices are parallel; a length
// mismatch or a vector of the wrong width rejects the whole batch.
func (v *Vector) Add(vectors [][]float32, texts []string, metadata []map[string]any) error {
	if len(vectors) != len(texts) || len(texts) != len(metadata) {
		return ragerr.Newf(ragerr.CodeInvalidInput, "mismatched batch: %d vectors, %d texts, %d metadata", len(vectors), len(texts), len(metadata))
	}
	for i, vec := range vectors {
		if len(vec) != v.dimension {
			return ragerr.Newf(ragerr.CodeInvalidInput, "vector %d has width %d, index expects %d", i, len(vec), v.dimension)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.vectors = append(v.vectors, vectors...)
	v.texts = append(v.texts, texts...)
	v.metadata = append(v.metadata, metadata...)
	return nil
}

// Search returns up to k chunks ranked by ascending L2 distance to
// query. An empty index returns no hits and no error.
func (v *Vector) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != v.dimension {
		return nil, ragerr.Newf(ragerr.CodeSearch, "query has width %d, index expects %d", len(query), v.dimension)
	}
	if k <= 0 {
		k = 5
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]Hit, 0, len(v.vectors))
	for i, vec := range v.vectors {
		hits = append(hits, Hit{
			Text:     v.texts[i],
			Metadata: v.metadata[i],
			Score:    l2Distance(query, vec),
		})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score < hits[b].Score })

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Stats reports chunk count and vector width.
func (v *Vector) Stats() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Stats{TotalChunks: len(v.texts), Dimension: v.dimension}
}

// snapshot is the on-disk form of the index.
type snapshot struct {
	Dimension int              `json:"dimension"`
	Vectors   [][]float32      `json:"vectors"`
	Texts     []string         `json:"texts"`
	Metadata  []map[string]any `json:"metadata"`
}

// Save writes the index to path as JSON, creating parent directories.
func (v *Vector) Save(path string) error {
	v.mu.RLock()
	snap := snapshot{
		Dimension: v.dimension,
		Vectors:   v.vectors,
		Texts:     v.texts,
		Metadata:  v.metadata,
	}
	v.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ragerr.Wrap(err, ragerr.CodeInternal, "create index directory")
		}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeInternal, "encode index")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ragerr.Wrap(err, ragerr.CodeInternal, "write index")
	}
	return nil
}

// Load replaces the index contents with a snapshot written by Save.
func (v *Vector) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeInternal, "read index")
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ragerr.Wrap(err, ragerr.CodeInternal, "decode index")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.dimension = snap.Dimension
	v.vectors = snap.Vectors
	v.texts = snap.Texts
	v.metadata = snap.Metadata
	return nil
}
