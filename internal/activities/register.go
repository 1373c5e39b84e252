package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.GetDocumentActivity)
	w.RegisterActivity(a.ExtractMetadataActivity)
	w.RegisterActivity(a.SaveDocumentMetadataActivity)
	w.RegisterActivity(a.ChunkDocumentActivity)
	w.RegisterActivity(a.ClearDocumentChunksActivity)
	w.RegisterActivity(a.UpsertChunksActivity)
	w.RegisterActivity(a.WriteDocumentArtifactsActivity)
	w.RegisterActivity(a.UpdateDocumentStatusActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.EmbedQueryActivity)
	w.RegisterActivity(a.SearchChunksActivity)
	w.RegisterActivity(a.LLMGenerateActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
	w.RegisterActivity(a.ListPendingDocumentsActivity)
}
