package core

import (
	"strings"

	"docqa/internal/models"
)

// DefaultMergeThreshold is the Jaccard similarity above which adjacent
// chunks are considered redundant.
const DefaultMergeThreshold = 0.7

// MergeSimilarChunks greedily merges adjacent chunks whose word sets overlap
// beyond the threshold. A merged chunk stays current and is compared against
// the next chunk in sequence; it is never re-compared against earlier ones.
func MergeSimilarChunks(chunks []models.Chunk, threshold float64) []models.Chunk {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultMergeThreshold
	}
	if len(chunks) < 2 {
		return chunks
	}

	out := make([]models.Chunk, 0, len(chunks))
	current := chunks[0]
	for _, next := range chunks[1:] {
		if Jaccard(current.Content, next.Content) > threshold {
			current = mergeChunks(current, next)
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)

	for i := range out {
		out[i].ChunkIndex = i
	}
	return out
}

// mergeChunks keeps the earlier chunk's metadata, extends its range to the
// later chunk's end, and unions the keyword sets.
func mergeChunks(a, b models.Chunk) models.Chunk {
	a.Content = a.Content + " " + b.Content
	a.EndChar = b.EndChar
	seen := make(map[string]struct{}, len(a.Keywords)+len(b.Keywords))
	for _, k := range a.Keywords {
		seen[k] = struct{}{}
	}
	for _, k := range b.Keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		a.Keywords = append(a.Keywords, k)
	}
	return a
}

// Jaccard compares the lowercase whitespace tokens of both texts. Repeated
// tokens count individually: the intersection is the number of a's tokens
// present in b's word set, the union is the combined token count minus that
// intersection. "the cat sat on the mat" vs "the cat sat on the rug" scores
// 5/7, not the 4/6 a pure set comparison would give.
func Jaccard(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 0
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, w := range tokensB {
		setB[w] = struct{}{}
	}
	inter := 0
	for _, w := range tokensA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(tokensA) + len(tokensB) - inter
	score := float64(inter) / float64(union)
	if score > 1 {
		score = 1
	}
	return score
}
