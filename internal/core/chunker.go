package core

import (
	"regexp"
	"sort"
	"strings"

	"docqa/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits document content into overlapping segments snapped to
// natural boundaries, annotating each with heuristic metadata.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}
	return Chunker{size: size, overlap: overlap}
}

// ChunkDocument walks the content in windows of the configured size. Window
// ends snap back to the nearest sentence terminator, newline, or space, but
// only when the break point lies past the window midpoint, so chunks never
// shrink below half the target size. Offsets are rune positions into the
// document content.
func (c Chunker) ChunkDocument(doc models.Document) ([]models.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, ErrMissingContent
	}

	runes := []rune(doc.Content)
	n := len(runes)
	chunks := make([]models.Chunk, 0, n/(c.size-c.overlap)+1)

	start := 0
	for start < n {
		end := start + c.size
		if end > n {
			end = n
		} else {
			if snap := snapToBoundary(runes, start, end, c.size); snap > 0 {
				end = snap
			}
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, models.Chunk{
				DocumentID: doc.DocumentID,
				ChunkIndex: len(chunks),
				Content:    content,
				StartChar:  start,
				EndChar:    end,
				Section:    inferSection(content),
				Heading:    inferHeading(content),
				Importance: scoreImportance(content),
				Keywords:   extractKeywords(content, 10),
			})
		}

		if end == n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// snapToBoundary searches backward from end for the closest of '.', '\n',
// or ' '. Returns the position just after that rune, or 0 when no break
// point lies past the window midpoint.
func snapToBoundary(runes []rune, start, end, size int) int {
	for i := end - 1; i > start; i-- {
		r := runes[i]
		if r == '.' || r == '\n' || r == ' ' {
			if i > start+size/2 {
				return i + 1
			}
			return 0
		}
	}
	return 0
}

var (
	markdownHeadingRe = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	sectionNameRe     = regexp.MustCompile(`(?i)^(introduction|overview|summary|conclusion|abstract|methodology|results|discussion|analysis|(chapter|section|part)\s+\d+)\b`)
	upperHeadingRe    = regexp.MustCompile(`^[A-Z][A-Z ]+$`)

	percentRe    = regexp.MustCompile(`\d+(\.\d+)?\s?%`)
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	properPairRe = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)

	importanceWordsRe = regexp.MustCompile(`(?i)\b(important|key|main|primary|critical|essential)\b`)
	summaryWordsRe    = regexp.MustCompile(`(?i)\b(summary|conclusion|overview|abstract)\b`)
	analysisWordsRe   = regexp.MustCompile(`(?i)\b(methodology|results|findings|analysis)\b`)

	nonWordRe = regexp.MustCompile(`[^a-z0-9\s]+`)
)

func inferSection(content string) string {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if m := markdownHeadingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if sectionNameRe.MatchString(line) {
			return line
		}
	}
	return "General"
}

func inferHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := markdownHeadingRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) < 100 && upperHeadingRe.MatchString(line) {
			return line
		}
		if len(line) < 100 && strings.HasSuffix(line, ":") {
			return strings.TrimSuffix(line, ":")
		}
	}
	return ""
}

// scoreImportance starts from a neutral 0.5 and adds fixed weights for
// signals that correlate with informative passages.
func scoreImportance(content string) float64 {
	score := 0.5
	if importanceWordsRe.MatchString(content) {
		score += 0.2
	}
	if summaryWordsRe.MatchString(content) {
		score += 0.15
	}
	if analysisWordsRe.MatchString(content) {
		score += 0.1
	}
	if percentRe.MatchString(content) {
		score += 0.1
	}
	if yearRe.MatchString(content) {
		score += 0.05
	}
	if properPairRe.MatchString(content) {
		score += 0.05
	}
	words := len(strings.Fields(content))
	if words > 50 {
		score += 0.1
	}
	if words > 100 {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "these": {}, "those": {}, "with": {}, "from": {},
	"have": {}, "been": {}, "were": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "their": {}, "there": {}, "which": {}, "what": {}, "when": {},
	"where": {}, "than": {}, "then": {}, "them": {}, "they": {}, "about": {},
	"into": {}, "over": {}, "under": {}, "after": {}, "before": {}, "more": {},
	"most": {}, "some": {}, "such": {}, "also": {}, "each": {}, "other": {},
}

// extractKeywords returns the top max tokens by frequency. Ties keep the
// order of first appearance (stable sort).
func extractKeywords(content string, max int) []string {
	text := nonWordRe.ReplaceAllString(strings.ToLower(content), " ")
	counts := make(map[string]int)
	order := make([]string, 0, 32)
	for _, tok := range strings.Fields(text) {
		if len(tok) <= 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}

// CountWords reports the whitespace-delimited word count, used for document
// metadata.
func CountWords(content string) int {
	return len(strings.Fields(content))
}
