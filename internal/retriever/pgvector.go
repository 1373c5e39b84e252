package retriever

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/vector"

	"github.com/jackc/pgx/v5"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgvectorRetriever ranks chunks inside Postgres with the pgvector cosine
// operator, so only the top hits cross the wire.
type PgvectorRetriever struct {
	q Queryer
}

func NewPgvectorRetriever(q Queryer) *PgvectorRetriever {
	return &PgvectorRetriever{q: q}
}

func (r *PgvectorRetriever) SearchChunks(ctx context.Context, queryVec []float32, topK int, filters Filters) ([]RetrievedChunk, error) {
	if topK <= 0 {
		topK = 8
	}
	vecLiteral := vector.ToLiteral(queryVec)
	args := []any{vecLiteral, topK}

	filterSQL := ""
	if len(filters.DocumentIDs) > 0 {
		args = append(args, filters.DocumentIDs)
		filterSQL += fmt.Sprintf(" AND c.document_id = ANY($%d)", len(args))
	}
	if strings.TrimSpace(filters.EmbeddingVersion) != "" {
		args = append(args, filters.EmbeddingVersion)
		filterSQL += fmt.Sprintf(" AND c.embedding_version = $%d", len(args))
	}

	query := `
SELECT c.chunk_id,
       c.document_id,
       COALESCE(d.title, d.name) AS document_name,
       c.chunk_index,
       COALESCE(c.section,''),
       COALESCE(c.heading,''),
       LEFT(c.content, 420) AS snippet,
       c.content,
       1 - (c.embedding <=> $1::vector) AS score
FROM chunks c
JOIN documents d ON d.document_id = c.document_id
WHERE c.embedding IS NOT NULL` + filterSQL + `
ORDER BY c.embedding <=> $1::vector
LIMIT $2`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]RetrievedChunk, 0, topK)
	for rows.Next() {
		var c RetrievedChunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.DocumentName, &c.ChunkIndex, &c.Section, &c.Heading, &c.Snippet, &c.Text, &c.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}
	return results, nil
}
