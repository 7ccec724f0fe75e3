package index

import (
	"testing"
)

func newMemText(t *testing.T) *Text {
	t.Helper()
	idx, err := NewText("")
	if err != nil {
		t.Fatalf("NewText error: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestTextSearchFindsMatchingChunk(t *testing.T) {
	idx := newMemText(t)

	err := idx.Add(
		[]string{
			"the deployment pipeline runs nightly builds",
			"cats enjoy sleeping in warm sunshine",
		},
		[]map[string]any{
			{"document_id": "ops"},
			{"document_id": "pets"},
		},
	)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	hits, err := idx.Search("deployment pipeline", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for matching query")
	}
	if hits[0].Metadata["document_id"] != "ops" {
		t.Errorf("top hit = %+v, want the ops chunk", hits[0])
	}
	if hits[0].Score <= 0 || hits[0].Score >= 1 {
		t.Errorf("mapped score = %f, want within (0, 1)", hits[0].Score)
	}
}

func TestTextSearchNoMatch(t *testing.T) {
	idx := newMemText(t)
	if err := idx.Add([]string{"alpha beta"}, []map[string]any{{}}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	hits, err := idx.Search("zeppelin", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits for unrelated query", len(hits))
	}
}

func TestTextAddRejectsMismatchedBatch(t *testing.T) {
	idx := newMemText(t)

	if err := idx.Add([]string{"a"}, nil); err == nil {
		t.Fatal("expected error for mismatched batch")
	}
}

func TestTextCount(t *testing.T) {
	idx := newMemText(t)

	if idx.Count() != 0 {
		t.Fatalf("fresh index count = %d", idx.Count())
	}
	if err := idx.Add([]string{"a", "b"}, []map[string]any{{}, {}}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if idx.Count() != 2 {
		t.Errorf("count = %d, want 2", idx.Count())
	}
}
