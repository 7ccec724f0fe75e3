package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const deterministicDimension = 256

// Deterministic is an offline embedder: each token of the text is
// hashed into one of Dimension buckets and the bucket counts are
// L2-normalized. The same text always yields the same vector, and texts
// sharing words land closer together than unrelated texts. Useful for
// tests and for running without an API key.
type Deterministic struct {
	dimension int
}

// NewDeterministic creates a deterministic embedder. A non-positive dim
// falls back to 256.
func NewDeterministic(dim int) *Deterministic {
	if dim <= 0 {
		dim = deterministicDimension
	}
	return &Deterministic{dimension: dim}
}

// Embed hashes each text into a bag-of-words vector.
func (d *Deterministic) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = d.vector(text)
	}
	return out, nil
}

// Dimension returns the vector width.
func (d *Deterministic) Dimension() int {
	return d.dimension
}

func (d *Deterministic) vector(text string) []float32 {
	vec := make([]float32, d.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%d.dimension]++
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}

// tokenize lowercases and splits on anything that is not a letter or
// digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}
