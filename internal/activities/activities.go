package activities

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docqa/internal/config"
	"docqa/internal/core"
	"docqa/internal/models"
	"docqa/internal/providers"
	"docqa/internal/retriever"
	"docqa/internal/storage"
	"docqa/internal/util"
	"docqa/internal/vector"
)

type Activities struct {
	cfg          config.Config
	documentRepo *storage.DocumentRepo
	chunkRepo    *storage.ChunkRepo
	llmAuditRepo *storage.LLMAuditRepo
	retriever    retriever.Retriever
	chromem      *retriever.ChromemRetriever
	providers    *providers.Manager
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	r, err := retriever.New(cfg, db)
	if err != nil {
		return nil, err
	}
	a := &Activities{
		cfg:          cfg,
		documentRepo: storage.NewDocumentRepo(db),
		chunkRepo:    storage.NewChunkRepo(db),
		llmAuditRepo: storage.NewLLMAuditRepo(db),
		retriever:    r,
		providers:    pm,
	}
	// The chromem index only gets mirror writes when it is the active
	// backend.
	if cr, ok := r.(*retriever.ChromemRetriever); ok {
		a.chromem = cr
	}
	return a, nil
}

func (a *Activities) GetDocumentActivity(ctx context.Context, in GetDocumentInput) (GetDocumentOutput, error) {
	doc, err := a.documentRepo.GetDocument(ctx, in.DocumentID)
	if err != nil {
		return GetDocumentOutput{}, err
	}
	return GetDocumentOutput{
		DocumentID: doc.DocumentID,
		Name:       doc.Name,
		Type:       doc.Type,
		Status:     doc.Status,
		Content:    doc.Content,
	}, nil
}

func (a *Activities) ExtractMetadataActivity(ctx context.Context, in ExtractMetadataInput) (ExtractMetadataOutput, error) {
	_ = ctx
	title, author := heuristicTitleAndAuthor(in.Text)
	words := core.CountWords(in.Text)
	pages := words/500 + 1
	return ExtractMetadataOutput{
		Title:     title,
		Author:    author,
		WordCount: words,
		PageCount: pages,
		Language:  heuristicLanguage(in.Text),
	}, nil
}

func (a *Activities) SaveDocumentMetadataActivity(ctx context.Context, in SaveDocumentMetadataInput) error {
	return a.documentRepo.UpdateDocumentMetadata(ctx, in.DocumentID, models.DocumentMetadata{
		Title:     in.Title,
		Author:    in.Author,
		WordCount: in.WordCount,
		PageCount: in.PageCount,
		Language:  in.Language,
	})
}

func (a *Activities) ChunkDocumentActivity(ctx context.Context, in ChunkDocumentInput) (ChunkDocumentOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.cfg.ChunkSize
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = a.cfg.ChunkOverlap
	}
	if in.MergeThreshold <= 0 || in.MergeThreshold >= 1 {
		in.MergeThreshold = a.cfg.MergeThreshold
	}

	chunker := core.NewChunker(in.ChunkSize, in.ChunkOverlap)
	raw, err := chunker.ChunkDocument(models.Document{
		DocumentID: in.DocumentID,
		Content:    util.SanitizeText(in.Text),
	})
	if err != nil {
		return ChunkDocumentOutput{}, fmt.Errorf("chunk document %s: %w", in.DocumentID, err)
	}
	merged := core.MergeSimilarChunks(raw, in.MergeThreshold)

	chunks := make([]ChunkItem, 0, len(merged))
	for _, c := range merged {
		contentHash := util.SHA256Hex([]byte(c.Content))
		chunkID := util.SHA256Hex([]byte(fmt.Sprintf("%s:%d:%s:%s", in.DocumentID, c.ChunkIndex, contentHash, in.Version)))
		chunks = append(chunks, ChunkItem{
			ChunkID:    chunkID,
			DocumentID: in.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Content,
			Section:    c.Section,
			Heading:    c.Heading,
			Importance: c.Importance,
			Keywords:   c.Keywords,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
		})
	}
	return ChunkDocumentOutput{Chunks: chunks}, nil
}

func (a *Activities) ClearDocumentChunksActivity(ctx context.Context, in ClearDocumentChunksInput) error {
	return a.chunkRepo.DeleteChunksByDocument(ctx, in.DocumentID)
}

func (a *Activities) UpsertChunksActivity(ctx context.Context, in UpsertChunksInput) error {
	records := make([]storage.ChunkRecord, 0, len(in.Chunks))
	mirror := make([]models.Chunk, 0, len(in.Chunks))
	for i, c := range in.Chunks {
		var embedding *string
		var vec []float32
		if i < len(in.Vectors) && len(in.Vectors[i]) > 0 {
			vec = in.Vectors[i]
			lit := vector.ToLiteral(vec)
			embedding = &lit
		}
		records = append(records, storage.ChunkRecord{
			ChunkID:          c.ChunkID,
			DocumentID:       c.DocumentID,
			ChunkIndex:       c.ChunkIndex,
			Content:          util.SanitizeText(c.Text),
			Section:          c.Section,
			Heading:          c.Heading,
			Importance:       c.Importance,
			Keywords:         c.Keywords,
			StartChar:        c.StartChar,
			EndChar:          c.EndChar,
			EmbeddingVersion: in.EmbeddingVersion,
			EmbeddingVector:  embedding,
		})
		if len(vec) > 0 {
			mirror = append(mirror, models.Chunk{
				ChunkID:    c.ChunkID,
				DocumentID: c.DocumentID,
				ChunkIndex: c.ChunkIndex,
				Content:    c.Text,
				Section:    c.Section,
				Heading:    c.Heading,
				Embedding:  vec,
			})
		}
	}
	if err := a.chunkRepo.UpsertChunks(ctx, records); err != nil {
		return err
	}
	if a.chromem != nil {
		if err := a.chromem.UpsertChunks(ctx, mirror); err != nil {
			return fmt.Errorf("mirror chunks to chromem: %w", err)
		}
	}
	return nil
}

func (a *Activities) WriteDocumentArtifactsActivity(ctx context.Context, in WriteDocumentArtifactsInput) error {
	_ = ctx
	base := filepath.Join(a.cfg.DataOutRoot, "documents", in.DocumentID)
	if err := util.EnsureDir(base); err != nil {
		return err
	}
	if err := util.WriteJSONAtomic(filepath.Join(base, "metadata.json"), in.Metadata); err != nil {
		return err
	}
	rows := make([]any, 0, len(in.Chunks))
	for _, c := range in.Chunks {
		rows = append(rows, c)
	}
	if err := util.WriteJSONLinesAtomic(filepath.Join(base, "chunks.jsonl"), rows); err != nil {
		return err
	}
	return util.WriteJSONAtomic(filepath.Join(base, "processing_log.json"), in.ProcessingLog)
}

func (a *Activities) UpdateDocumentStatusActivity(ctx context.Context, in UpdateDocumentStatusInput) error {
	return a.documentRepo.UpdateDocumentStatus(ctx, in.DocumentID, in.Status, in.FailReason)
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	inputs := make([]string, 0, len(in.Input))
	for _, c := range in.Input {
		inputs = append(inputs, c.Text)
	}
	provider, _ := a.providers.EmbedProviderByIndex(in.ProviderIndex)
	vectors, info, err := provider.Embed(ctx, providers.EmbedRequest{
		Operation: in.Operation,
		Inputs:    inputs,
		Dimension: a.cfg.EmbedDim,
	})
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	return EmbedChunksOutput{
		Vectors:      vectors,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) EmbedQueryActivity(ctx context.Context, in EmbedQueryInput) (EmbedQueryOutput, error) {
	provider, _ := a.providers.EmbedProviderByIndex(in.ProviderIndex)
	vectors, info, err := provider.Embed(ctx, providers.EmbedRequest{
		Operation: in.Operation,
		Inputs:    []string{in.Text},
		Dimension: a.cfg.EmbedDim,
	})
	if err != nil {
		return EmbedQueryOutput{}, err
	}
	if len(vectors) == 0 {
		return EmbedQueryOutput{}, fmt.Errorf("embedding provider returned empty vectors")
	}
	return EmbedQueryOutput{Vector: vectors[0], ProviderName: info.Name, Model: info.Model}, nil
}

func (a *Activities) SearchChunksActivity(ctx context.Context, in SearchChunksInput) (SearchChunksOutput, error) {
	results, err := a.retriever.SearchChunks(ctx, in.QueryVec, in.TopK, retriever.Filters{
		DocumentIDs:      in.DocumentIDs,
		EmbeddingVersion: in.EmbeddingVersion,
	})
	if err != nil {
		return SearchChunksOutput{}, err
	}
	out := make([]SearchChunk, 0, len(results))
	for _, r := range results {
		out = append(out, SearchChunk{
			ChunkID:      r.ChunkID,
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			Section:      r.Section,
			Heading:      r.Heading,
			Snippet:      r.Snippet,
			Score:        r.Score,
			Text:         r.Text,
		})
	}
	return SearchChunksOutput{Results: out}, nil
}

func (a *Activities) LLMGenerateActivity(ctx context.Context, in LLMGenerateInput) (LLMGenerateOutput, error) {
	if in.ProviderRef != "" {
		if idx := a.providers.FindLLMProviderIndex(in.ProviderRef); idx >= 0 {
			in.ProviderIndex = idx
		} else {
			return LLMGenerateOutput{}, fmt.Errorf("llm provider ref not configured in worker: %s", in.ProviderRef)
		}
	}
	provider, ref := a.providers.LLMProviderByIndex(in.ProviderIndex)
	resp, info, err := provider.Generate(ctx, providers.GenerateRequest{
		Operation: in.Operation,
		Prompt:    in.Prompt,
		Context:   in.Context,
	})
	if err != nil {
		return LLMGenerateOutput{}, fmt.Errorf("llm generate via %s failed: %w", ref.Raw, err)
	}
	return LLMGenerateOutput{
		Text:         resp.Text,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	return a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
		CallID:       in.CallID,
		Operation:    in.Operation,
		DocumentID:   in.DocumentID,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		RequestID:    in.RequestID,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
	})
}

func (a *Activities) ListPendingDocumentsActivity(ctx context.Context) (ListPendingDocumentsOutput, error) {
	docs, err := a.documentRepo.ListPendingDocuments(ctx)
	if err != nil {
		return ListPendingDocumentsOutput{}, err
	}
	out := ListPendingDocumentsOutput{Documents: make([]PendingDocument, 0, len(docs))}
	for _, d := range docs {
		out.Documents = append(out.Documents, PendingDocument{
			DocumentID: d.DocumentID,
			Name:       d.Name,
			Status:     d.Status,
		})
	}
	return out, nil
}

func heuristicTitleAndAuthor(text string) (string, string) {
	s := bufio.NewScanner(strings.NewReader(text))
	nonEmpty := make([]string, 0, 4)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		nonEmpty = append(nonEmpty, line)
		if len(nonEmpty) == 4 {
			break
		}
	}
	title := ""
	author := ""
	if len(nonEmpty) > 0 {
		title = strings.TrimLeft(nonEmpty[0], "# ")
	}
	if len(nonEmpty) > 1 && looksLikeAuthorLine(nonEmpty[1]) {
		author = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(nonEmpty[1], "By "), "by "))
	}
	return title, author
}

func looksLikeAuthorLine(line string) bool {
	low := strings.ToLower(line)
	if strings.HasPrefix(low, "by ") {
		return true
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if r[0] < 'A' || r[0] > 'Z' {
			return false
		}
	}
	return true
}

var commonEnglishWords = []string{" the ", " and ", " of ", " to ", " in ", " is ", " that "}

func heuristicLanguage(text string) string {
	sample := strings.ToLower(text)
	if len(sample) > 4000 {
		sample = sample[:4000]
	}
	hits := 0
	for _, w := range commonEnglishWords {
		hits += strings.Count(sample, w)
	}
	if hits >= 5 {
		return "en"
	}
	return "unknown"
}
