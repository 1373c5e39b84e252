package retriever

import (
	"context"
	"fmt"
	"strconv"

	"docqa/internal/models"
	"docqa/internal/util"

	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "docqa_chunks"

// ChromemRetriever keeps vectors in an embedded chromem-go index on local
// disk. No Postgres extension needed; the worker mirrors chunks into it
// after embedding.
type ChromemRetriever struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func NewChromemRetriever(path string) (*ChromemRetriever, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	collection, err := db.GetOrCreateCollection(chromemCollection, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection: %w", err)
	}
	return &ChromemRetriever{db: db, collection: collection}, nil
}

// UpsertChunks mirrors embedded chunks into the index.
func (r *ChromemRetriever) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	ids := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	metadatas := make([]map[string]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		ids = append(ids, c.ChunkID)
		vectors = append(vectors, c.Embedding)
		metadatas = append(metadatas, map[string]string{
			"document_id": c.DocumentID,
			"chunk_index": strconv.Itoa(c.ChunkIndex),
			"section":     c.Section,
			"heading":     c.Heading,
		})
		contents = append(contents, c.Content)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("add chunks to chromem: %w", err)
	}
	return nil
}

func (r *ChromemRetriever) SearchChunks(ctx context.Context, queryVec []float32, topK int, filters Filters) ([]RetrievedChunk, error) {
	if topK <= 0 {
		topK = 8
	}
	// chromem's where filter matches a single value, so document scoping
	// happens client-side on an over-fetched result set.
	fetch := topK
	if len(filters.DocumentIDs) > 0 {
		fetch = topK * 4
	}
	if count := r.collection.Count(); fetch > count {
		fetch = count
	}
	if fetch == 0 {
		return []RetrievedChunk{}, nil
	}

	results, err := r.collection.QueryEmbedding(ctx, queryVec, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem: %w", err)
	}

	scope := make(map[string]struct{}, len(filters.DocumentIDs))
	for _, id := range filters.DocumentIDs {
		scope[id] = struct{}{}
	}

	out := make([]RetrievedChunk, 0, topK)
	for _, res := range results {
		docID := res.Metadata["document_id"]
		if len(scope) > 0 {
			if _, ok := scope[docID]; !ok {
				continue
			}
		}
		idx, _ := strconv.Atoi(res.Metadata["chunk_index"])
		out = append(out, RetrievedChunk{
			ChunkID:    res.ID,
			DocumentID: docID,
			ChunkIndex: idx,
			Section:    res.Metadata["section"],
			Heading:    res.Metadata["heading"],
			Snippet:    util.DisplaySnippet(res.Content, 420),
			Text:       res.Content,
			Score:      float64(res.Similarity),
		})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}
