package retriever

import (
	"context"
	"fmt"

	"docqa/internal/core"
	"docqa/internal/models"
	"docqa/internal/util"
)

// EmbeddedChunkSource lists stored chunks that carry a vector, scoped by
// document ids and embedding version. ChunkRepo is the production
// implementation.
type EmbeddedChunkSource interface {
	ListEmbeddedChunks(ctx context.Context, documentIDs []string, embeddingVersion string) ([]models.Chunk, error)
}

// StoreRetriever loads stored vectors and ranks them in-process. Slower
// than ranking in Postgres for large corpora, but it works on databases
// without the pgvector operator classes installed.
type StoreRetriever struct {
	chunks EmbeddedChunkSource
}

func NewStoreRetriever(chunks EmbeddedChunkSource) *StoreRetriever {
	return &StoreRetriever{chunks: chunks}
}

func (r *StoreRetriever) SearchChunks(ctx context.Context, queryVec []float32, topK int, filters Filters) ([]RetrievedChunk, error) {
	if topK <= 0 {
		topK = 8
	}
	candidates, err := r.chunks.ListEmbeddedChunks(ctx, filters.DocumentIDs, filters.EmbeddingVersion)
	if err != nil {
		return nil, fmt.Errorf("load candidate chunks: %w", err)
	}
	scored, err := core.FindSimilar(queryVec, candidates, core.RankOptions{Limit: topK})
	if err != nil {
		return nil, fmt.Errorf("rank candidate chunks: %w", err)
	}
	results := make([]RetrievedChunk, 0, len(scored))
	for _, s := range scored {
		results = append(results, RetrievedChunk{
			ChunkID:    s.Chunk.ChunkID,
			DocumentID: s.Chunk.DocumentID,
			ChunkIndex: s.Chunk.ChunkIndex,
			Section:    s.Chunk.Section,
			Heading:    s.Chunk.Heading,
			Snippet:    util.DisplaySnippet(s.Chunk.Content, 420),
			Text:       s.Chunk.Content,
			Score:      s.Score,
		})
	}
	return results, nil
}
