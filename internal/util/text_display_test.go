package util

import (
	"strings"
	"testing"
)

func TestDisplaySnippetCollapsesWhitespaceAndTruncates(t *testing.T) {
	in := "  line one\n\n\tline   two  "
	got := DisplaySnippet(in, 100)
	if got != "line one line two" {
		t.Fatalf("unexpected snippet: %q", got)
	}

	long := strings.Repeat("word ", 200)
	got = DisplaySnippet(long, 40)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis on truncation, got %q", got)
	}
	if len([]rune(got)) > 43 {
		t.Fatalf("snippet too long: %d runes", len([]rune(got)))
	}
}

func TestDisplayEvidenceSnippetPrefersMatchingSentence(t *testing.T) {
	chunk := "The warehouse opened in 1995. Revenue grew 40% in the second quarter. Staff numbers stayed flat."
	got := DisplayEvidenceSnippet(chunk, "How much did revenue grow?", 200)
	if !strings.Contains(got, "Revenue grew 40%") {
		t.Fatalf("expected revenue sentence first, got %q", got)
	}
}

func TestDisplayEvidenceSnippetFallsBackWithoutTerms(t *testing.T) {
	chunk := "Alpha beta gamma. Delta epsilon."
	got := DisplayEvidenceSnippet(chunk, "a of to", 200)
	if got != "Alpha beta gamma. Delta epsilon." {
		t.Fatalf("expected full cleaned chunk, got %q", got)
	}
}

func TestDisplayEvidenceSnippetEmptyChunk(t *testing.T) {
	if got := DisplayEvidenceSnippet("   ", "anything", 100); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	if len(got) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %v", len(got), got)
	}
	if got[3] != "Four" {
		t.Fatalf("expected trailing fragment kept, got %q", got[3])
	}
}

func TestQuestionTermsFiltersStopwordsAndDuplicates(t *testing.T) {
	terms := questionTerms("What does the Revenue revenue report say about growth?")
	joined := strings.Join(terms, " ")
	if strings.Contains(joined, "what") || strings.Contains(joined, "the") {
		t.Fatalf("stopwords leaked: %v", terms)
	}
	count := 0
	for _, term := range terms {
		if term == "revenue" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected deduplicated terms, got %v", terms)
	}
}
