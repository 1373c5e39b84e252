package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docqa/internal/config"
	"docqa/internal/models"
	"docqa/internal/providers"
	"docqa/internal/retriever"
	"docqa/internal/storage"
	"docqa/internal/util"
	"docqa/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg          config.Config
	db           *storage.DB
	documentRepo *storage.DocumentRepo
	queryRepo    *storage.QueryRepo
	retriever    retriever.Retriever
	providers    *providers.Manager
	temporal     tclient.Client
}

// askProviderRetry bounds backoff on the ask path's direct provider calls.
// Failover to the next provider happens only after a provider's schedule is
// exhausted.
var askProviderRetry = util.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}

// tryProvidersWithRetry runs call for each provider index in order, retrying
// each with backoff, and stops at the first success. The last error is
// returned when every provider's schedule is exhausted.
func tryProvidersWithRetry(ctx context.Context, cfg util.RetryConfig, order []int, call func(ctx context.Context, idx int) error) error {
	var err error
	for _, idx := range order {
		idx := idx
		err = util.Retry(ctx, cfg, func(ctx context.Context) error {
			return call(ctx, idx)
		})
		if err == nil {
			return nil
		}
	}
	if err == nil {
		err = fmt.Errorf("no providers configured")
	}
	return err
}

type askCitation struct {
	RefID        string  `json:"ref_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkID      string  `json:"chunk_id"`
	Section      string  `json:"section,omitempty"`
	Snippet      string  `json:"snippet"`
	Summary      string  `json:"summary,omitempty"`
	Score        float64 `json:"score"`
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	ret, err := retriever.New(cfg, db)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:          cfg,
		db:           db,
		documentRepo: storage.NewDocumentRepo(db),
		queryRepo:    storage.NewQueryRepo(db),
		retriever:    ret,
		providers:    pm,
		temporal:     tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentsScoped)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/queries", s.handleQueries)
	mux.HandleFunc("/reprocess", s.handleReprocess)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.documentRepo.ListDocuments(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": toDocumentSummaries(docs)})
	case http.MethodPost:
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			s.handleUpload(w, r)
			return
		}
		s.handleCreateJSON(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleCreateJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Content = util.SanitizeText(req.Content)
	if req.Name == "" || req.Content == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name and content are required"))
		return
	}
	docType := normalizeDocType(req.Type, req.Name)
	if docType == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unsupported document type"))
		return
	}
	doc := models.Document{
		DocumentID: util.SHA256Hex([]byte(req.Content)),
		Name:       req.Name,
		Type:       docType,
		SizeBytes:  int64(len(req.Content)),
		Status:     "uploading",
		Content:    req.Content,
	}
	if err := s.documentRepo.UpsertDocument(r.Context(), doc); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"document_id": doc.DocumentID, "name": doc.Name, "status": doc.Status})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	if err := util.EnsureDir(s.cfg.DataInRoot); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	type uploadResult struct {
		Filename   string `json:"filename"`
		DocumentID string `json:"document_id"`
	}
	out := make([]uploadResult, 0, len(files))

	for _, fh := range files {
		docType := normalizeDocType("", fh.Filename)
		if docType == "" {
			continue
		}
		content, savedName, err := saveUploadedFile(s.cfg.DataInRoot, fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		content = util.SanitizeText(content)
		if content == "" {
			continue
		}
		doc := models.Document{
			DocumentID: util.SHA256Hex([]byte(content)),
			Name:       savedName,
			Type:       docType,
			SizeBytes:  int64(len(content)),
			Status:     "uploading",
			Content:    content,
		}
		if err := s.documentRepo.UpsertDocument(r.Context(), doc); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, uploadResult{Filename: savedName, DocumentID: doc.DocumentID})
	}
	if len(out) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no supported files provided"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"uploaded": out})
}

func (s *Server) handleDocumentsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	documentID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		doc, err := s.documentRepo.GetDocument(r.Context(), documentID)
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentSummary(doc))
		return
	}

	switch parts[1] {
	case "process":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if _, err := s.documentRepo.GetDocument(r.Context(), documentID); err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
			ID:                                       processWorkflowID(documentID),
			TaskQueue:                                s.cfg.TemporalTaskQueue,
			WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			WorkflowExecutionErrorWhenAlreadyStarted: true,
		}, workflows.DocumentProcessWorkflow, workflows.DocumentProcessInput{
			DocumentID:      documentID,
			ChunkSize:       s.cfg.ChunkSize,
			ChunkOverlap:    s.cfg.ChunkOverlap,
			MergeThreshold:  s.cfg.MergeThreshold,
			EmbedVersion:    s.cfg.EmbedVersion,
			EmbedProviders:  s.providers.EmbedCount(),
			CooldownSeconds: s.cfg.ProviderCooldownSecs,
		})
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
	case "progress":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var status workflows.DocumentStatus
		resp, err := s.temporal.QueryWorkflow(r.Context(), processWorkflowID(documentID), "", workflows.QueryGetDocumentStatus)
		if err != nil {
			// No live workflow to query; report what the database knows.
			doc, dbErr := s.documentRepo.GetDocument(r.Context(), documentID)
			if dbErr != nil {
				writeErr(w, http.StatusNotFound, dbErr)
				return
			}
			writeJSON(w, http.StatusOK, workflows.DocumentStatus{
				DocumentID: doc.DocumentID,
				Status:     doc.Status,
				FailReason: doc.FailReason,
			})
			return
		}
		if err := resp.Get(&status); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	case "chunks":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		chunks, err := storage.NewChunkRepo(s.db).ListChunksByDocument(r.Context(), documentID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "reprocess",
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.CorpusReprocessWorkflow, workflows.CorpusReprocessInput{
		MaxConcurrentChildren: s.cfg.ReprocessMaxChildren,
		EmbedProviders:        s.providers.EmbedCount(),
		CooldownSeconds:       s.cfg.ProviderCooldownSecs,
		EmbedVersion:          s.cfg.EmbedVersion,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	started := time.Now()
	var req struct {
		Question    string   `json:"question"`
		DocumentIDs []string `json:"document_ids"`
		TopK        int      `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.AskTopK
	}

	var info providers.ProviderInfo
	queryVectors := [][]float32(nil)
	err := tryProvidersWithRetry(r.Context(), askProviderRetry, s.providers.PreferredEmbedOrder(), func(ctx context.Context, idx int) error {
		p, _ := s.providers.EmbedProviderByIndex(idx)
		var embedErr error
		queryVectors, info, embedErr = p.Embed(ctx, providers.EmbedRequest{
			Operation: "ask_query_embed",
			Inputs:    []string{req.Question},
			Dimension: s.cfg.EmbedDim,
		})
		if embedErr != nil {
			return embedErr
		}
		if len(queryVectors) == 0 {
			return fmt.Errorf("provider returned no embedding")
		}
		return nil
	})
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("embedding providers unavailable"))
		return
	}

	results, err := s.retriever.SearchChunks(r.Context(), queryVectors[0], req.TopK, retriever.Filters{
		DocumentIDs:      req.DocumentIDs,
		EmbeddingVersion: s.cfg.EmbedVersion,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if len(results) == 0 {
		answer := "No relevant passages were found in the selected documents, so this question cannot be answered from them."
		s.recordQuery(r.Context(), req.Question, req.DocumentIDs, req.TopK, answer, nil, 0, started)
		writeJSON(w, http.StatusOK, map[string]any{
			"answer":          answer,
			"citations":       []askCitation{},
			"confidence":      0.0,
			"retrieved_count": 0,
		})
		return
	}

	citations := make([]askCitation, 0, len(results))
	contextSnippets := make([]string, 0, len(results))
	for i, res := range results {
		refID := fmt.Sprintf("C%d", i+1)
		displayName := util.DisplaySnippet(res.DocumentName, 100)
		snippet := util.DisplayEvidenceSnippet(res.Text, req.Question, 420)
		if snippet == "" {
			snippet = util.DisplaySnippet(res.Snippet, 420)
		}
		citations = append(citations, askCitation{
			RefID:        refID,
			DocumentID:   res.DocumentID,
			DocumentName: displayName,
			ChunkID:      res.ChunkID,
			Section:      res.Section,
			Snippet:      snippet,
			Score:        res.Score,
		})
		contextSnippets = append(contextSnippets, fmt.Sprintf("%s | %s [%s]: %s", refID, displayName, res.ChunkID, util.DisplaySnippet(res.Text, 1200)))
	}

	generate := func(op, prompt string, ctxSnippets []string) (providers.GenerateResponse, providers.ProviderInfo, error) {
		var (
			resp providers.GenerateResponse
			info providers.ProviderInfo
		)
		err := tryProvidersWithRetry(r.Context(), askProviderRetry, s.providers.PreferredLLMOrder(), func(ctx context.Context, idx int) error {
			p, _ := s.providers.LLMProviderByIndex(idx)
			var genErr error
			resp, info, genErr = p.Generate(ctx, providers.GenerateRequest{
				Operation: op,
				Prompt:    prompt,
				Context:   ctxSnippets,
			})
			if genErr != nil {
				return genErr
			}
			if strings.TrimSpace(resp.Text) == "" {
				return fmt.Errorf("empty generation from provider")
			}
			return nil
		})
		return resp, info, err
	}

	prompt := "" +
		"Question: " + req.Question + "\n\n" +

		"You must answer using ONLY the provided evidence snippets.\n" +
		"Do NOT use outside knowledge.\n" +
		"If the snippets do not contain enough information, explicitly state what is missing.\n\n" +

		"Citation rules:\n" +
		"- Use citations like [C1], [C2], etc. whenever making a factual claim.\n" +
		"- Cite the snippet immediately after the sentence it supports.\n" +
		"- Multiple citations may be used together like [C1][C3] if needed.\n" +
		"- Do NOT cite anything not present in the provided snippets.\n\n" +

		"Answer guidelines:\n" +
		"- Write a clear, well-structured answer in natural paragraphs.\n" +
		"- Be specific: include definitions, numbers and constraints when available.\n" +
		"- If snippets conflict, explain the disagreement and cite both.\n\n" +

		"Evidence snippets (cite as [C#]):\n"
	llmResp, llmInfo, llmErr := generate("ask_answer", prompt, contextSnippets)
	if llmErr != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("generation failed: %w", llmErr))
		return
	}

	for i := range citations {
		summaryPrompt := "Question: " + req.Question + "\n\n" +
			"Write exactly two short sentences:\n" +
			"1) what this passage supports for the question\n" +
			"2) one caveat or limitation.\n" +
			"Use plain language and do not include citation ids."
		sumResp, _, sumErr := generate("citation_summary", summaryPrompt, []string{contextSnippets[i]})
		if sumErr != nil || strings.TrimSpace(sumResp.Text) == "" {
			citations[i].Summary = util.DisplayEvidenceSnippet(citations[i].Snippet, req.Question, 240)
			continue
		}
		citations[i].Summary = util.DisplaySnippet(sumResp.Text, 260)
	}

	answer := strings.TrimSpace(llmResp.Text)
	if answer == "" {
		answer = fallbackExtractiveAnswer(citations)
	}

	confidence := meanScoreClamped(citations)
	sources := make([]models.Source, 0, len(citations))
	for _, c := range citations {
		sources = append(sources, models.Source{ChunkID: c.ChunkID, Score: c.Score})
	}
	s.recordQuery(r.Context(), req.Question, req.DocumentIDs, req.TopK, answer, sources, confidence, started)

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":          answer,
		"citations":       citations,
		"confidence":      confidence,
		"embed_provider":  info.Name,
		"embed_model":     info.Model,
		"llm_provider":    llmInfo.Name,
		"llm_model":       llmInfo.Model,
		"retrieved_count": len(citations),
	})
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	queries, err := s.queryRepo.ListRecentQueries(r.Context(), 50)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": queries})
}

// recordQuery appends the answered question to history. Recording is best
// effort and never fails the response.
func (s *Server) recordQuery(ctx context.Context, question string, documentIDs []string, topK int, answer string, sources []models.Source, confidence float64, started time.Time) {
	_ = s.queryRepo.InsertQuery(ctx, models.Query{
		QueryID:     uuid.NewString(),
		Question:    question,
		DocumentIDs: documentIDs,
		TopK:        topK,
		Answer:      answer,
		Sources:     sources,
		Confidence:  confidence,
		DurationMS:  time.Since(started).Milliseconds(),
	})
}

func meanScoreClamped(citations []askCitation) float64 {
	if len(citations) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range citations {
		sum += c.Score
	}
	mean := sum / float64(len(citations))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}

func fallbackExtractiveAnswer(citations []askCitation) string {
	if len(citations) == 0 {
		return "No relevant evidence was retrieved for this question."
	}
	lines := make([]string, 0, 6)
	lines = append(lines, "Retrieved evidence suggests the following:")
	limit := len(citations)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		snippet := citations[i].Snippet
		if len(snippet) > 180 {
			snippet = snippet[:180] + "..."
		}
		lines = append(lines, fmt.Sprintf("- %s: %s [%s]", citations[i].DocumentName, snippet, citations[i].RefID))
	}
	return strings.Join(lines, "\n")
}

func processWorkflowID(documentID string) string {
	id := documentID
	if len(id) > 16 {
		id = id[:16]
	}
	return "document-" + strings.ToLower(id)
}

func normalizeDocType(explicit, filename string) string {
	t := strings.ToLower(strings.TrimSpace(explicit))
	if t == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			t = "txt"
		case ".md", ".markdown":
			t = "md"
		}
	}
	switch t {
	case "txt", "md":
		return t
	}
	return ""
}

type documentSummary struct {
	DocumentID  string                  `json:"document_id"`
	Name        string                  `json:"name"`
	Type        string                  `json:"type"`
	SizeBytes   int64                   `json:"size_bytes"`
	Status      string                  `json:"status"`
	FailReason  string                  `json:"fail_reason,omitempty"`
	Metadata    models.DocumentMetadata `json:"metadata"`
	UploadedAt  time.Time               `json:"uploaded_at"`
	ProcessedAt *time.Time              `json:"processed_at,omitempty"`
}

func toDocumentSummary(d models.Document) documentSummary {
	return documentSummary{
		DocumentID:  d.DocumentID,
		Name:        d.Name,
		Type:        d.Type,
		SizeBytes:   d.SizeBytes,
		Status:      d.Status,
		FailReason:  d.FailReason,
		Metadata:    d.Metadata,
		UploadedAt:  d.UploadedAt,
		ProcessedAt: d.ProcessedAt,
	}
}

func toDocumentSummaries(docs []models.Document) []documentSummary {
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentSummary(d))
	}
	return out
}

// saveUploadedFile copies the upload into root and returns its text
// content plus the stored filename. The write is atomic via rename.
func saveUploadedFile(root string, fh *multipart.FileHeader) (content, savedName string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	b, err := io.ReadAll(src)
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}

	savedName = filepath.Base(fh.Filename)
	tmp, err := os.CreateTemp(root, "upload-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), util.SafeJoin(root, savedName)); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}
	return string(b), savedName, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "DQ-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "DQ-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "DQ-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "DQ-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "DQ-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "DQ-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "DQ-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "DQ-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "DQ-API-5020"
		msg = "Upstream provider unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "name and content are required"):
			msg = "Both name and content are required."
		case strings.Contains(low, "question is required"):
			msg = "A question is required."
		case strings.Contains(low, "no files provided"), strings.Contains(low, "no supported files provided"):
			msg = "No .txt or .md files were provided."
		case strings.Contains(low, "unsupported document type"):
			msg = "Only txt and md documents are supported."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
