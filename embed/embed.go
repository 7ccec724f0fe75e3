// Package embed produces fixed-dimension vector representations of text
// for the vector index.
package embed

import "context"

// Generator turns a batch of texts into one vector per text. The output
// slice is parallel to the input and every vector has Dimension entries.
type Generator interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
