package activities

type GetDocumentInput struct {
	DocumentID string `json:"document_id"`
}

type GetDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Content    string `json:"content"`
}

type ExtractMetadataInput struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

type ExtractMetadataOutput struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	WordCount int    `json:"word_count"`
	PageCount int    `json:"page_count"`
	Language  string `json:"language"`
}

type ChunkDocumentInput struct {
	DocumentID     string  `json:"document_id"`
	Text           string  `json:"text"`
	ChunkSize      int     `json:"chunk_size"`
	ChunkOverlap   int     `json:"chunk_overlap"`
	MergeThreshold float64 `json:"merge_threshold"`
	Version        string  `json:"version"`
}

type ChunkItem struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	ChunkIndex int      `json:"chunk_index"`
	Text       string   `json:"text"`
	Section    string   `json:"section,omitempty"`
	Heading    string   `json:"heading,omitempty"`
	Importance float64  `json:"importance"`
	Keywords   []string `json:"keywords,omitempty"`
	StartChar  int      `json:"start_char"`
	EndChar    int      `json:"end_char"`
}

type ChunkDocumentOutput struct {
	Chunks []ChunkItem `json:"chunks"`
}

type ClearDocumentChunksInput struct {
	DocumentID string `json:"document_id"`
}

type UpsertChunksInput struct {
	Chunks           []ChunkItem `json:"chunks"`
	Vectors          [][]float32 `json:"vectors,omitempty"`
	EmbeddingVersion string      `json:"embedding_version"`
}

type WriteDocumentArtifactsInput struct {
	DocumentID    string         `json:"document_id"`
	Metadata      map[string]any `json:"metadata"`
	Chunks        []ChunkItem    `json:"chunks"`
	ProcessingLog map[string]any `json:"processing_log"`
}

type UpdateDocumentStatusInput struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason"`
}

type SaveDocumentMetadataInput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	WordCount  int    `json:"word_count"`
	PageCount  int    `json:"page_count"`
	Language   string `json:"language"`
}

type EmbedChunksInput struct {
	Operation     string      `json:"operation"`
	DocumentID    string      `json:"document_id"`
	ProviderIndex int         `json:"provider_index"`
	Input         []ChunkItem `json:"input"`
}

type EmbedChunksOutput struct {
	Vectors      [][]float32 `json:"vectors"`
	ProviderName string      `json:"provider_name"`
	Model        string      `json:"model"`
}

type EmbedQueryInput struct {
	Operation     string `json:"operation"`
	Text          string `json:"text"`
	ProviderIndex int    `json:"provider_index"`
}

type EmbedQueryOutput struct {
	Vector       []float32 `json:"vector"`
	ProviderName string    `json:"provider_name"`
	Model        string    `json:"model"`
}

type SearchChunksInput struct {
	QueryVec         []float32 `json:"query_vec"`
	TopK             int       `json:"top_k"`
	DocumentIDs      []string  `json:"document_ids,omitempty"`
	EmbeddingVersion string    `json:"embedding_version,omitempty"`
}

type SearchChunk struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Section      string  `json:"section,omitempty"`
	Heading      string  `json:"heading,omitempty"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
	Text         string  `json:"text"`
}

type SearchChunksOutput struct {
	Results []SearchChunk `json:"results"`
}

type LLMGenerateInput struct {
	Operation     string   `json:"operation"`
	DocumentID    string   `json:"document_id"`
	Prompt        string   `json:"prompt"`
	Context       []string `json:"context"`
	ProviderIndex int      `json:"provider_index"`
	ProviderRef   string   `json:"provider_ref,omitempty"`
}

type LLMGenerateOutput struct {
	Text         string `json:"text"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
}

type LogLLMCallInput struct {
	CallID       string `json:"call_id"`
	Operation    string `json:"operation"`
	DocumentID   string `json:"document_id"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
}

type PendingDocument struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

type ListPendingDocumentsOutput struct {
	Documents []PendingDocument `json:"documents"`
}
