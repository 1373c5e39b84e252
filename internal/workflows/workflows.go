package workflows

import (
	"fmt"
	"strings"
	"time"

	"docqa/internal/activities"
	"docqa/internal/providers"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetDocumentStatus    = "GetDocumentStatus"
	QueryGetReprocessProgress = "GetReprocessProgress"
)

type providerState struct {
	disabledUntil map[int]time.Time
	retries       map[string]int
}

func newProviderState() providerState {
	return providerState{disabledUntil: map[int]time.Time{}, retries: map[string]int{}}
}

// DocumentProcessWorkflow runs a document through chunking, embedding and
// indexing. Content-level problems mark the document failed and complete
// the workflow; a document is never left stuck in processing.
func DocumentProcessWorkflow(ctx workflow.Context, input DocumentProcessInput) (string, error) {
	status := DocumentStatus{
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
		RetryCounts: map[string]int{},
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetDocumentStatus, func() (DocumentStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	cooldown := durationOrDefault(input.CooldownSeconds, 900)
	providerCount := input.EmbedProviders
	if providerCount <= 0 {
		providerCount = 1
	}
	state := newProviderState()

	markFailed := func(reason string) {
		status.Status = "failed"
		status.FailReason = reason
		status.Steps[status.CurrentStep] = "failed"
		// A disconnected context still records the failure when the workflow
		// itself was cancelled or timed out.
		dctx, done := workflow.NewDisconnectedContext(ctx)
		defer done()
		_ = workflow.ExecuteActivity(dctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
			DocumentID: input.DocumentID,
			Status:     "failed",
			FailReason: reason,
		}).Get(dctx, nil)
	}

	// Infra failures bubble as workflow errors, but the document row must
	// never stay in processing.
	failStep := func(err error) (string, error) {
		markFailed("processing failed at step " + status.CurrentStep)
		return "", err
	}

	_ = workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
		DocumentID: input.DocumentID,
		Status:     "processing",
	}).Get(ctx, nil)

	status.CurrentStep = "load_document"
	status.Steps[status.CurrentStep] = "processing"
	var doc activities.GetDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "GetDocumentActivity", activities.GetDocumentInput{DocumentID: input.DocumentID}).Get(ctx, &doc); err != nil {
		return failStep(err)
	}
	if strings.TrimSpace(doc.Content) == "" {
		markFailed("document has no content")
		return status.Status, nil
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_metadata"
	status.Steps[status.CurrentStep] = "processing"
	var metaOut activities.ExtractMetadataOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractMetadataActivity", activities.ExtractMetadataInput{DocumentID: input.DocumentID, Text: doc.Content}).Get(ctx, &metaOut); err != nil {
		return failStep(err)
	}
	if err := workflow.ExecuteActivity(ctx, "SaveDocumentMetadataActivity", activities.SaveDocumentMetadataInput{
		DocumentID: input.DocumentID,
		Title:      metaOut.Title,
		Author:     metaOut.Author,
		WordCount:  metaOut.WordCount,
		PageCount:  metaOut.PageCount,
		Language:   metaOut.Language,
	}).Get(ctx, nil); err != nil {
		return failStep(err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "chunk_document"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ChunkDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkDocumentActivity", activities.ChunkDocumentInput{
		DocumentID:     input.DocumentID,
		Text:           doc.Content,
		ChunkSize:      input.ChunkSize,
		ChunkOverlap:   input.ChunkOverlap,
		MergeThreshold: input.MergeThreshold,
		Version:        defaultChunkVersion(input.ChunkVersion),
	}).Get(ctx, &chunkOut); err != nil {
		if isMissingContentError(err) {
			markFailed("document has no chunkable content")
			return status.Status, nil
		}
		return failStep(err)
	}
	if len(chunkOut.Chunks) == 0 {
		markFailed("document produced no chunks")
		return status.Status, nil
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "embed_chunks"
	status.Steps[status.CurrentStep] = "processing"
	embedOut, err := callEmbedWithFailover(ctx, &state, providerCount, cooldown, activities.EmbedChunksInput{
		Operation:  "embed",
		DocumentID: input.DocumentID,
		Input:      chunkOut.Chunks,
	}, status.RetryCounts, input.PreferredEmbedProviderIndex, input.StrictEmbedProvider)
	if err != nil {
		return failStep(err)
	}
	status.Providers = append(status.Providers, embedOut.ProviderName)
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "upsert_chunks"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "ClearDocumentChunksActivity", activities.ClearDocumentChunksInput{DocumentID: input.DocumentID}).Get(ctx, nil); err != nil {
		return failStep(err)
	}
	if err := workflow.ExecuteActivity(ctx, "UpsertChunksActivity", activities.UpsertChunksInput{
		Chunks:           chunkOut.Chunks,
		Vectors:          embedOut.Vectors,
		EmbeddingVersion: defaultEmbedVersion(input.EmbedVersion),
	}).Get(ctx, nil); err != nil {
		if isInvalidTextEncodingError(err) {
			markFailed("document contains invalid text encoding")
			return status.Status, nil
		}
		return failStep(err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "write_artifacts"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "WriteDocumentArtifactsActivity", activities.WriteDocumentArtifactsInput{
		DocumentID: input.DocumentID,
		Metadata: map[string]any{
			"document_id": input.DocumentID,
			"name":        doc.Name,
			"title":       metaOut.Title,
			"author":      metaOut.Author,
			"word_count":  metaOut.WordCount,
			"page_count":  metaOut.PageCount,
			"language":    metaOut.Language,
			"chunk_count": len(chunkOut.Chunks),
		},
		Chunks: chunkOut.Chunks,
		ProcessingLog: map[string]any{
			"status":       "processed",
			"steps":        status.Steps,
			"providers":    status.Providers,
			"generated_at": workflow.Now(ctx),
		},
	}).Get(ctx, nil); err != nil {
		return failStep(err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "mark_processed"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
		DocumentID: input.DocumentID,
		Status:     "processed",
	}).Get(ctx, nil); err != nil {
		return failStep(err)
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = "processed"
	return status.Status, nil
}

// CorpusReprocessWorkflow re-runs processing for every document that never
// reached the processed state, a bounded batch of children at a time.
func CorpusReprocessWorkflow(ctx workflow.Context, input CorpusReprocessInput) (string, error) {
	progress := CorpusReprocessProgress{
		PerDocument:   map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetReprocessProgress, func() (CorpusReprocessProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var pending activities.ListPendingDocumentsOutput
	if err := workflow.ExecuteActivity(ctx, "ListPendingDocumentsActivity").Get(ctx, &pending); err != nil {
		return "", err
	}
	docs := pending.Documents
	progress.Total = len(docs)
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(docs); i += maxChildren {
		end := i + maxChildren
		if end > len(docs) {
			end = len(docs)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		childIDs := make([]string, 0, end-i)
		for _, d := range docs[i:end] {
			progress.PerDocument[d.DocumentID] = "processing"
			workflowID := "document-" + sanitizeID(shortID(d.DocumentID))
			cwo := workflow.ChildWorkflowOptions{WorkflowID: workflowID}
			childCtx := workflow.WithChildOptions(ctx, cwo)
			f := workflow.ExecuteChildWorkflow(childCtx, DocumentProcessWorkflow, DocumentProcessInput{
				DocumentID:      d.DocumentID,
				ChunkVersion:    defaultChunkVersion(input.ChunkVersion),
				EmbedVersion:    defaultEmbedVersion(input.EmbedVersion),
				EmbedProviders:  input.EmbedProviders,
				CooldownSeconds: input.CooldownSeconds,
			})
			futures = append(futures, f)
			childIDs = append(childIDs, d.DocumentID)
			progress.ChildWorkflow[d.DocumentID] = workflowID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			docID := childIDs[idx]
			if err != nil {
				progress.Failed++
				progress.PerDocument[docID] = "failed"
				continue
			}
			// Every document lands in exactly one bucket, so Done+Failed
			// never exceeds Total.
			if childStatus == "failed" {
				progress.Failed++
			} else {
				progress.Done++
			}
			progress.PerDocument[docID] = childStatus
		}
	}
	return "completed", nil
}

func callEmbedWithFailover(ctx workflow.Context, state *providerState, providerCount int, cooldown time.Duration, input activities.EmbedChunksInput, retryCounts map[string]int, preferredIdx int, strict bool) (activities.EmbedChunksOutput, error) {
	if retryCounts == nil {
		retryCounts = map[string]int{}
	}
	var lastErr error
	maxAttempts := providerCount * 4
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	if strict && preferredIdx >= 0 {
		maxAttempts = 4
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		idx := 0
		if strict && preferredIdx >= 0 {
			idx = preferredIdx
		} else if preferredIdx >= 0 {
			idx = (preferredIdx + attempt) % providerCount
		} else {
			idx = attempt % providerCount
		}
		if isProviderDisabled(ctx, state, idx) {
			continue
		}
		input.ProviderIndex = idx
		var out activities.EmbedChunksOutput
		err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", input).Get(ctx, &out)
		if err == nil {
			_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: input.Operation, DocumentID: input.DocumentID, ProviderName: out.ProviderName, Model: out.Model, RequestID: fmt.Sprintf("%s-%d", input.Operation, attempt), Status: "ok"}).Get(ctx, nil)
			return out, nil
		}
		lastErr = err
		errType := providers.ClassifyError(err)
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: input.Operation, DocumentID: input.DocumentID, ProviderName: fmt.Sprintf("provider-%d", idx), RequestID: fmt.Sprintf("%s-%d", input.Operation, attempt), Status: "failed", ErrorType: string(errType)}).Get(ctx, nil)
		key := fmt.Sprintf("embed-%d", idx)
		retryCounts[key]++
		switch errType {
		case providers.ErrorQuota:
			disableProviderUntil(ctx, state, idx, cooldown)
		case providers.ErrorRate:
			if retryCounts[key] <= 2 {
				workflow.Sleep(ctx, time.Duration(retryCounts[key]*2)*time.Second)
				if !strict {
					attempt--
				}
			} else {
				disableProviderUntil(ctx, state, idx, 2*time.Minute)
			}
		case providers.ErrorTransient:
			if retryCounts[key] <= 2 {
				workflow.Sleep(ctx, time.Duration(retryCounts[key])*time.Second)
				if !strict {
					attempt--
				}
			}
		default:
			disableProviderUntil(ctx, state, idx, time.Minute)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all embed providers exhausted")
	}
	return activities.EmbedChunksOutput{}, lastErr
}

func isProviderDisabled(ctx workflow.Context, state *providerState, idx int) bool {
	until, ok := state.disabledUntil[idx]
	if !ok {
		return false
	}
	return workflow.Now(ctx).Before(until)
}

func disableProviderUntil(ctx workflow.Context, state *providerState, idx int, d time.Duration) {
	state.disabledUntil[idx] = workflow.Now(ctx).Add(d)
}

func defaultChunkVersion(v string) string {
	if strings.TrimSpace(v) == "" {
		return "v1"
	}
	return v
}

func defaultEmbedVersion(v string) string {
	if strings.TrimSpace(v) == "" {
		return "v1"
	}
	return v
}

func isMissingContentError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no content to chunk")
}

func isInvalidTextEncodingError(err error) bool {
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "invalid byte sequence") || strings.Contains(e, "sqlstate 22021")
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

func shortID(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

func durationOrDefault(seconds int, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
