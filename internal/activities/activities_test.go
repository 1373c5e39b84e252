package activities

import (
	"context"
	"strings"
	"testing"

	"docqa/internal/config"
)

func TestChunkDocumentActivityAssignsStableIDs(t *testing.T) {
	a := &Activities{cfg: config.Config{ChunkSize: 200, ChunkOverlap: 40, MergeThreshold: 0.7}}
	in := ChunkDocumentInput{
		DocumentID: "doc-1",
		Text:       strings.Repeat("The quarterly report shows steady growth across regions. ", 20),
		Version:    "v1",
	}
	first, err := a.ChunkDocumentActivity(context.Background(), in)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(first.Chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	second, err := a.ChunkDocumentActivity(context.Background(), in)
	if err != nil {
		t.Fatalf("chunk again: %v", err)
	}
	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("chunk count changed between runs: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	for i := range first.Chunks {
		if first.Chunks[i].ChunkID != second.Chunks[i].ChunkID {
			t.Fatalf("chunk %d id not stable", i)
		}
		if first.Chunks[i].ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, first.Chunks[i].ChunkIndex)
		}
	}
}

func TestChunkDocumentActivityVersionChangesIDs(t *testing.T) {
	a := &Activities{cfg: config.Config{ChunkSize: 200, ChunkOverlap: 40, MergeThreshold: 0.7}}
	text := strings.Repeat("Observations from the field study were recorded daily. ", 15)
	v1, err := a.ChunkDocumentActivity(context.Background(), ChunkDocumentInput{DocumentID: "doc-1", Text: text, Version: "v1"})
	if err != nil {
		t.Fatalf("chunk v1: %v", err)
	}
	v2, err := a.ChunkDocumentActivity(context.Background(), ChunkDocumentInput{DocumentID: "doc-1", Text: text, Version: "v2"})
	if err != nil {
		t.Fatalf("chunk v2: %v", err)
	}
	if v1.Chunks[0].ChunkID == v2.Chunks[0].ChunkID {
		t.Fatalf("expected version bump to change chunk ids")
	}
}

func TestExtractMetadataActivityHeuristics(t *testing.T) {
	a := &Activities{}
	out, err := a.ExtractMetadataActivity(context.Background(), ExtractMetadataInput{
		Text: "# Annual Report\nBy Jane Smith\n\nThe company had a strong year and the results show that growth is steady in the main markets of the region.",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.Title != "Annual Report" {
		t.Fatalf("unexpected title %q", out.Title)
	}
	if out.Author != "Jane Smith" {
		t.Fatalf("unexpected author %q", out.Author)
	}
	if out.WordCount == 0 || out.PageCount < 1 {
		t.Fatalf("unexpected counts: words=%d pages=%d", out.WordCount, out.PageCount)
	}
	if out.Language != "en" {
		t.Fatalf("expected en, got %q", out.Language)
	}
}

func TestHeuristicLanguageUnknown(t *testing.T) {
	if got := heuristicLanguage("uno dos tres cuatro cinco seis"); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
