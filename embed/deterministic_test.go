package embed

import (
	"context"
	"math"
	"testing"
)

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestDeterministicStable(t *testing.T) {
	e := NewDeterministic(0)

	first, err := e.Embed(context.Background(), []string{"the quick brown fox"})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	second, err := e.Embed(context.Background(), []string{"the quick brown fox"})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}

	if len(first[0]) != e.Dimension() {
		t.Fatalf("vector width = %d, want %d", len(first[0]), e.Dimension())
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("same text produced different vectors at %d", i)
		}
	}
}

func TestDeterministicNormalized(t *testing.T) {
	e := NewDeterministic(64)

	vecs, err := e.Embed(context.Background(), []string{"some words to hash"})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("squared norm = %f, want 1", sum)
	}
}

func TestDeterministicSimilarTextsCloser(t *testing.T) {
	e := NewDeterministic(0)

	vecs, err := e.Embed(context.Background(), []string{
		"the database stores vectors on disk",
		"the database keeps vectors on disk",
		"cats enjoy sleeping in warm sunshine",
	})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}

	near := l2(vecs[0], vecs[1])
	far := l2(vecs[0], vecs[2])
	if near >= far {
		t.Errorf("overlapping texts at distance %f, unrelated at %f", near, far)
	}
}

func TestDeterministicEmptyText(t *testing.T) {
	e := NewDeterministic(16)

	vecs, err := e.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	for i, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("empty text produced non-zero component at %d", i)
		}
	}
}

func TestDeterministicBatchParallel(t *testing.T) {
	e := NewDeterministic(32)

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
}
