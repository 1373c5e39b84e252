package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"docqa/internal/models"
)

// QueryRepo records answered questions. Rows are append-only; answers are
// never rewritten after the fact.
type QueryRepo struct {
	db *DB
}

func NewQueryRepo(db *DB) *QueryRepo {
	return &QueryRepo{db: db}
}

func (r *QueryRepo) InsertQuery(ctx context.Context, q models.Query) error {
	sources, err := json.Marshal(q.Sources)
	if err != nil {
		return fmt.Errorf("marshal query sources: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO queries (query_id, question, document_ids, top_k, answer, sources, confidence, duration_ms)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6::jsonb, $7, $8)`,
		q.QueryID, q.Question, q.DocumentIDs, q.TopK, q.Answer, string(sources), q.Confidence, q.DurationMS)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

func (r *QueryRepo) ListRecentQueries(ctx context.Context, limit int) ([]models.Query, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT query_id::text, question, document_ids, top_k, answer, sources, confidence, duration_ms, created_at
FROM queries
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()
	out := make([]models.Query, 0, limit)
	for rows.Next() {
		var q models.Query
		var sources []byte
		if err := rows.Scan(&q.QueryID, &q.Question, &q.DocumentIDs, &q.TopK, &q.Answer, &sources, &q.Confidence, &q.DurationMS, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &q.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal query sources: %w", err)
			}
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return out, nil
}
