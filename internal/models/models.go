package models

import "time"

const (
	DocumentStatusUploading  = "uploading"
	DocumentStatusProcessing = "processing"
	DocumentStatusProcessed  = "processed"
	DocumentStatusFailed     = "failed"
)

type DocumentMetadata struct {
	PageCount int    `json:"page_count,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Language  string `json:"language,omitempty"`
	Author    string `json:"author,omitempty"`
	Title     string `json:"title,omitempty"`
}

type Document struct {
	DocumentID  string           `json:"document_id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	SizeBytes   int64            `json:"size_bytes"`
	Status      string           `json:"status"`
	FailReason  string           `json:"fail_reason,omitempty"`
	Content     string           `json:"content,omitempty"`
	Metadata    DocumentMetadata `json:"metadata"`
	UploadedAt  time.Time        `json:"uploaded_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Page       *int      `json:"page,omitempty"`
	StartChar  int       `json:"start_char"`
	EndChar    int       `json:"end_char"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Section    string    `json:"section,omitempty"`
	Heading    string    `json:"heading,omitempty"`
	Importance float64   `json:"importance"`
	Keywords   []string  `json:"keywords,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Source struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Query is an append-only record of one answered question.
type Query struct {
	QueryID     string    `json:"query_id"`
	Question    string    `json:"question"`
	DocumentIDs []string  `json:"document_ids,omitempty"`
	TopK        int       `json:"top_k"`
	Answer      string    `json:"answer"`
	Sources     []Source  `json:"sources"`
	Confidence  float64   `json:"confidence"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
