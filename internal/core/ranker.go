package core

import (
	"sort"

	"docqa/internal/models"
)

// DefaultRankLimit caps results when the caller does not ask for a count.
const DefaultRankLimit = 5

// ScoredChunk pairs a chunk with its relevance score. The score lives in
// this envelope only; it is never written back into chunk state.
type ScoredChunk struct {
	Chunk models.Chunk
	Score float64
}

type RankOptions struct {
	// DocumentIDs restricts candidates to the named documents. Empty means
	// search all.
	DocumentIDs []string
	Limit       int
}

// FindSimilar ranks candidates against a query embedding: scope filter,
// cosine score, stable descending sort, truncate. Candidates without an
// embedding are skipped. An empty candidate set returns an empty result.
func FindSimilar(query []float32, candidates []models.Chunk, opts RankOptions) ([]ScoredChunk, error) {
	if len(query) == 0 {
		return nil, ErrInvalidQuery
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRankLimit
	}

	scope := scopeSet(opts.DocumentIDs)
	scored := make([]ScoredChunk, 0, len(candidates))
	expectDim := 0
	for _, c := range candidates {
		if scope != nil {
			if _, ok := scope[c.DocumentID]; !ok {
				continue
			}
		}
		if len(c.Embedding) == 0 {
			continue
		}
		if expectDim == 0 {
			expectDim = len(c.Embedding)
			if len(query) != expectDim {
				return nil, ErrInvalidQuery
			}
		}
		// Stray candidates with an off-dimension embedding score 0 via the
		// defensive default in Cosine.
		scored = append(scored, ScoredChunk{Chunk: c, Score: Cosine(query, c.Embedding)})
	}

	sortByScore(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// FindSimilarText is the lexical-mode ranker used when embeddings are not
// available. Candidates with empty content are skipped.
func FindSimilarText(query string, candidates []models.Chunk, opts RankOptions) ([]ScoredChunk, error) {
	if query == "" {
		return nil, ErrInvalidQuery
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRankLimit
	}

	scope := scopeSet(opts.DocumentIDs)
	scored := make([]ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if scope != nil {
			if _, ok := scope[c.DocumentID]; !ok {
				continue
			}
		}
		if c.Content == "" {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: Lexical(query, c.Content)})
	}

	sortByScore(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func scopeSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// sortByScore sorts descending by score; ties keep original candidate order.
func sortByScore(scored []ScoredChunk) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}
