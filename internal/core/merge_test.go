package core

import (
	"math"
	"testing"

	"docqa/internal/models"
)

func TestJaccard(t *testing.T) {
	got := Jaccard("the cat sat on the mat", "the cat sat on the rug")
	if math.Abs(got-5.0/7.0) > 1e-9 {
		t.Fatalf("jaccard = %f, want %f", got, 5.0/7.0)
	}
	if Jaccard("alpha beta", "alpha beta") != 1 {
		t.Fatal("identical word sets should score 1")
	}
	if got := Jaccard("the the cat", "the dog"); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Fatalf("repeated tokens must each count: got %f, want %f", got, 2.0/3.0)
	}
	if Jaccard("", "") != 0 {
		t.Fatal("two empty texts should score 0")
	}
}

func TestMergeSimilarChunksMergesAboveThreshold(t *testing.T) {
	chunks := []models.Chunk{
		{DocumentID: "d1", ChunkIndex: 0, Content: "the cat sat on the mat", StartChar: 0, EndChar: 22, Section: "General", Keywords: []string{"cat"}},
		{DocumentID: "d1", ChunkIndex: 1, Content: "the cat sat on the rug", StartChar: 18, EndChar: 40, Section: "Other", Keywords: []string{"cat", "rug"}},
	}
	out := MergeSimilarChunks(chunks, 0.7)
	if len(out) != 1 {
		t.Fatalf("expected 1 merged chunk, got %d", len(out))
	}
	m := out[0]
	if m.Content != "the cat sat on the mat the cat sat on the rug" {
		t.Fatalf("unexpected merged content: %q", m.Content)
	}
	if m.StartChar != 0 || m.EndChar != 40 {
		t.Fatalf("merged range [%d,%d), want [0,40)", m.StartChar, m.EndChar)
	}
	if m.Section != "General" {
		t.Fatalf("merged chunk should keep earlier metadata, got section %q", m.Section)
	}
	if len(m.Keywords) != 2 || m.Keywords[0] != "cat" || m.Keywords[1] != "rug" {
		t.Fatalf("unexpected keyword union: %v", m.Keywords)
	}
}

func TestMergeSimilarChunksKeepsDissimilar(t *testing.T) {
	chunks := []models.Chunk{
		{ChunkIndex: 0, Content: "postgres stores relational rows"},
		{ChunkIndex: 1, Content: "violins belong to the string family"},
	}
	out := MergeSimilarChunks(chunks, 0.7)
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(out))
	}
	if out[0].ChunkIndex != 0 || out[1].ChunkIndex != 1 {
		t.Fatalf("indexes not preserved: %d, %d", out[0].ChunkIndex, out[1].ChunkIndex)
	}
}

func TestMergeSimilarChunksGreedyChain(t *testing.T) {
	// Once merged, the result is compared against the next chunk, never
	// against earlier ones.
	chunks := []models.Chunk{
		{ChunkIndex: 0, Content: "alpha beta gamma", StartChar: 0, EndChar: 16},
		{ChunkIndex: 1, Content: "alpha beta gamma", StartChar: 10, EndChar: 26},
		{ChunkIndex: 2, Content: "alpha beta gamma", StartChar: 20, EndChar: 36},
	}
	out := MergeSimilarChunks(chunks, 0.7)
	if len(out) != 1 {
		t.Fatalf("expected single chained merge, got %d", len(out))
	}
	if out[0].EndChar != 36 {
		t.Fatalf("chained merge end = %d, want 36", out[0].EndChar)
	}
}

func TestMergeSimilarChunksSmallInputs(t *testing.T) {
	if out := MergeSimilarChunks(nil, 0.7); len(out) != 0 {
		t.Fatalf("nil input should stay empty, got %d", len(out))
	}
	one := []models.Chunk{{ChunkIndex: 0, Content: "solo"}}
	if out := MergeSimilarChunks(one, 0.7); len(out) != 1 || out[0].Content != "solo" {
		t.Fatalf("single chunk should pass through unchanged: %+v", out)
	}
}
