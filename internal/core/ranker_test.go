package core

import (
	"errors"
	"testing"

	"docqa/internal/models"
)

func embedded(doc, id string, vec []float32) models.Chunk {
	return models.Chunk{ChunkID: id, DocumentID: doc, Content: id, Embedding: vec}
}

func TestFindSimilarEmptyCandidates(t *testing.T) {
	out, err := FindSimilar([]float32{1, 0}, nil, RankOptions{})
	if err != nil {
		t.Fatalf("empty candidates should not error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}

func TestFindSimilarRanksDescending(t *testing.T) {
	query := []float32{1, 0}
	candidates := []models.Chunk{
		embedded("d1", "far", []float32{0, 1}),
		embedded("d1", "close", []float32{1, 0.1}),
		embedded("d1", "exact", []float32{1, 0}),
	}
	out, err := FindSimilar(query, candidates, RankOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[0].Chunk.ChunkID != "exact" || out[1].Chunk.ChunkID != "close" || out[2].Chunk.ChunkID != "far" {
		t.Fatalf("unexpected order: %s %s %s", out[0].Chunk.ChunkID, out[1].Chunk.ChunkID, out[2].Chunk.ChunkID)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Fatal("scores are not non-increasing")
		}
	}
	// Score stays in the envelope; returned chunk state is untouched.
	if out[0].Chunk.Importance != 0 {
		t.Fatal("score leaked into chunk state")
	}
}

func TestFindSimilarLimitAndScope(t *testing.T) {
	query := []float32{1, 0}
	candidates := []models.Chunk{
		embedded("d1", "a", []float32{1, 0}),
		embedded("d2", "b", []float32{1, 0}),
		embedded("d1", "c", []float32{0.9, 0.1}),
		embedded("d3", "d", []float32{0.8, 0.2}),
	}
	out, err := FindSimilar(query, candidates, RankOptions{DocumentIDs: []string{"d1", "d3"}, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("limit not respected: got %d", len(out))
	}
	for _, sc := range out {
		if sc.Chunk.DocumentID == "d2" {
			t.Fatal("scope filter leaked d2")
		}
	}
}

func TestFindSimilarStableTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := []models.Chunk{
		embedded("d1", "first", []float32{1, 0}),
		embedded("d1", "second", []float32{1, 0}),
		embedded("d1", "third", []float32{1, 0}),
	}
	out, err := FindSimilar(query, candidates, RankOptions{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Chunk.ChunkID != "first" || out[1].Chunk.ChunkID != "second" || out[2].Chunk.ChunkID != "third" {
		t.Fatalf("tie order not preserved: %s %s %s", out[0].Chunk.ChunkID, out[1].Chunk.ChunkID, out[2].Chunk.ChunkID)
	}
}

func TestFindSimilarSkipsUnembedded(t *testing.T) {
	query := []float32{1, 0}
	candidates := []models.Chunk{
		{ChunkID: "bare", DocumentID: "d1"},
		embedded("d1", "vec", []float32{1, 0}),
	}
	out, err := FindSimilar(query, candidates, RankOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Chunk.ChunkID != "vec" {
		t.Fatalf("expected only embedded candidate, got %+v", out)
	}
}

func TestFindSimilarInvalidQuery(t *testing.T) {
	candidates := []models.Chunk{embedded("d1", "a", []float32{1, 0, 0})}
	if _, err := FindSimilar(nil, candidates, RankOptions{}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("empty query: expected ErrInvalidQuery, got %v", err)
	}
	if _, err := FindSimilar([]float32{1, 0}, candidates, RankOptions{}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("dimension mismatch: expected ErrInvalidQuery, got %v", err)
	}
}

func TestFindSimilarTextLexicalFallback(t *testing.T) {
	candidates := []models.Chunk{
		{ChunkID: "match", DocumentID: "d1", Content: "database indexing"},
		{ChunkID: "other", DocumentID: "d1", Content: "garden landscaping"},
		{ChunkID: "empty", DocumentID: "d1"},
	}
	out, err := FindSimilarText("database indexing", candidates, RankOptions{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", len(out))
	}
	if out[0].Chunk.ChunkID != "match" || out[0].Score != 1 {
		t.Fatalf("best lexical match wrong: %+v", out[0])
	}
	if _, err := FindSimilarText("", candidates, RankOptions{}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("empty question: expected ErrInvalidQuery, got %v", err)
	}
}
