package retriever

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/config"
	"docqa/internal/storage"
)

// RetrievedChunk is one ranked search hit, ready for prompt assembly.
type RetrievedChunk struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Section      string  `json:"section"`
	Heading      string  `json:"heading"`
	Snippet      string  `json:"snippet"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
}

type Filters struct {
	DocumentIDs      []string
	EmbeddingVersion string
}

// Retriever finds the chunks most similar to an embedded question.
// Implementations differ in where the vectors live, not in the contract:
// results come back ordered by descending score.
type Retriever interface {
	SearchChunks(ctx context.Context, queryVec []float32, topK int, filters Filters) ([]RetrievedChunk, error)
}

// New selects a backend from configuration. pgvector ranks inside Postgres,
// store loads vectors and ranks in-process, chromem uses an embedded index.
func New(cfg config.Config, db *storage.DB) (Retriever, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Retriever)) {
	case "", "pgvector":
		return NewPgvectorRetriever(db.Pool), nil
	case "store":
		return NewStoreRetriever(storage.NewChunkRepo(db)), nil
	case "chromem":
		return NewChromemRetriever(cfg.ChromemPath)
	default:
		return nil, fmt.Errorf("unsupported retriever backend: %s", cfg.Retriever)
	}
}
