package storage

import (
	"context"
	"fmt"

	"docqa/internal/models"
	"docqa/internal/vector"
)

type ChunkRecord struct {
	ChunkID          string
	DocumentID       string
	ChunkIndex       int
	Content          string
	Section          string
	Heading          string
	Importance       float64
	Keywords         []string
	StartChar        int
	EndChar          int
	EmbeddingVersion string
	EmbeddingVector  *string
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) UpsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, document_id, chunk_index, content, section, heading, importance,
                    keywords, start_char, end_char, embedding_version, embedding)
VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8, $9, $10, $11,
        CASE WHEN $12::text IS NULL THEN NULL ELSE $12::vector END)
ON CONFLICT (chunk_id)
DO UPDATE SET
  content = EXCLUDED.content,
  section = EXCLUDED.section,
  heading = EXCLUDED.heading,
  importance = EXCLUDED.importance,
  keywords = EXCLUDED.keywords,
  start_char = EXCLUDED.start_char,
  end_char = EXCLUDED.end_char,
  embedding_version = EXCLUDED.embedding_version,
  embedding = COALESCE(EXCLUDED.embedding, chunks.embedding)`,
			c.ChunkID, c.DocumentID, c.ChunkIndex, c.Content, c.Section, c.Heading, c.Importance,
			c.Keywords, c.StartChar, c.EndChar, c.EmbeddingVersion, c.EmbeddingVector,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// DeleteChunksByDocument clears a document's chunks before re-chunking so
// stale indexes from a previous run cannot linger.
func (r *ChunkRepo) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks by document: %w", err)
	}
	return nil
}

const chunkColumns = `
chunk_id, document_id, chunk_index, content, COALESCE(section,''), COALESCE(heading,''),
importance, keywords, start_char, end_char, created_at`

func (r *ChunkRepo) ListChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE document_id=$1
ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by document: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.Section, &c.Heading,
			&c.Importance, &c.Keywords, &c.StartChar, &c.EndChar, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk by document: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks by document: %w", err)
	}
	return out, nil
}

// ListEmbeddedChunks loads chunks with their stored vectors, scoped to the
// given documents and embedding version when set. Feeds the in-process
// ranker.
func (r *ChunkRepo) ListEmbeddedChunks(ctx context.Context, documentIDs []string, embeddingVersion string) ([]models.Chunk, error) {
	query := `
SELECT ` + chunkColumns + `, embedding::text
FROM chunks
WHERE embedding IS NOT NULL`
	args := []any{}
	if len(documentIDs) > 0 {
		args = append(args, documentIDs)
		query += fmt.Sprintf(` AND document_id = ANY($%d)`, len(args))
	}
	if embeddingVersion != "" {
		args = append(args, embeddingVersion)
		query += fmt.Sprintf(` AND embedding_version = $%d`, len(args))
	}
	query += ` ORDER BY document_id, chunk_index ASC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list embedded chunks: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 128)
	for rows.Next() {
		var c models.Chunk
		var literal string
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.Section, &c.Heading,
			&c.Importance, &c.Keywords, &c.StartChar, &c.EndChar, &c.CreatedAt, &literal); err != nil {
			return nil, fmt.Errorf("scan embedded chunk: %w", err)
		}
		vec, err := vector.ParseLiteral(literal)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ChunkID, err)
		}
		c.Embedding = vec
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedded chunks: %w", err)
	}
	return out, nil
}
