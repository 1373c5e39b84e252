package workflows

type DocumentProcessInput struct {
	DocumentID                  string  `json:"document_id"`
	ChunkSize                   int     `json:"chunk_size"`
	ChunkOverlap                int     `json:"chunk_overlap"`
	MergeThreshold              float64 `json:"merge_threshold"`
	ChunkVersion                string  `json:"chunk_version"`
	EmbedVersion                string  `json:"embed_version"`
	EmbedProviders              int     `json:"embed_providers"`
	PreferredEmbedProviderIndex int     `json:"preferred_embed_provider_index"`
	StrictEmbedProvider         bool    `json:"strict_embed_provider"`
	CooldownSeconds             int     `json:"cooldown_seconds"`
}

type CorpusReprocessInput struct {
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
	EmbedProviders        int    `json:"embed_providers"`
	CooldownSeconds       int    `json:"cooldown_seconds"`
	ChunkVersion          string `json:"chunk_version"`
	EmbedVersion          string `json:"embed_version"`
}

type DocumentStatus struct {
	DocumentID  string            `json:"document_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Providers   []string          `json:"providers_used"`
	RetryCounts map[string]int    `json:"retry_counts"`
	Steps       map[string]string `json:"steps"`
}

type CorpusReprocessProgress struct {
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerDocument   map[string]string `json:"per_document_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
