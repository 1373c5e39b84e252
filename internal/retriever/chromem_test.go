package retriever

import (
	"context"
	"testing"
	"time"

	"docqa/internal/models"
)

func chromemChunk(docID, id string, idx int, content string, vec []float32) models.Chunk {
	return models.Chunk{
		ChunkID:    id,
		DocumentID: docID,
		ChunkIndex: idx,
		Content:    content,
		Embedding:  vec,
		CreatedAt:  time.Now(),
	}
}

func TestChromemRetrieverSearch(t *testing.T) {
	r, err := NewChromemRetriever(t.TempDir())
	if err != nil {
		t.Fatalf("new chromem retriever: %v", err)
	}
	ctx := context.Background()
	err = r.UpsertChunks(ctx, []models.Chunk{
		chromemChunk("doc-a", "c1", 0, "about revenue growth", []float32{1, 0, 0}),
		chromemChunk("doc-a", "c2", 1, "about staffing levels", []float32{0, 1, 0}),
		chromemChunk("doc-b", "c3", 0, "unrelated document", []float32{0, 0, 1}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := r.SearchChunks(ctx, []float32{1, 0, 0}, 2, Filters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "c1" {
		t.Fatalf("expected c1 first, got %s", hits[0].ChunkID)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("hits not ordered by score: %v then %v", hits[0].Score, hits[1].Score)
	}
}

func TestChromemRetrieverScopesToDocuments(t *testing.T) {
	r, err := NewChromemRetriever(t.TempDir())
	if err != nil {
		t.Fatalf("new chromem retriever: %v", err)
	}
	ctx := context.Background()
	err = r.UpsertChunks(ctx, []models.Chunk{
		chromemChunk("doc-a", "c1", 0, "alpha", []float32{1, 0, 0}),
		chromemChunk("doc-b", "c2", 0, "beta", []float32{0.9, 0.1, 0}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := r.SearchChunks(ctx, []float32{1, 0, 0}, 5, Filters{DocumentIDs: []string{"doc-b"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "doc-b" {
		t.Fatalf("expected only doc-b hits, got %+v", hits)
	}
}

func TestChromemRetrieverEmptyIndex(t *testing.T) {
	r, err := NewChromemRetriever(t.TempDir())
	if err != nil {
		t.Fatalf("new chromem retriever: %v", err)
	}
	hits, err := r.SearchChunks(context.Background(), []float32{1, 0, 0}, 3, Filters{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}
