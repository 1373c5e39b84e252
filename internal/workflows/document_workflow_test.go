package workflows

import (
	"context"
	"errors"
	"testing"

	"docqa/internal/activities"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerDocumentActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "UpdateDocumentStatusActivity", func(context.Context, activities.UpdateDocumentStatusInput) error { return nil })
	registerActivityName(env, "GetDocumentActivity", func(context.Context, activities.GetDocumentInput) (activities.GetDocumentOutput, error) {
		return activities.GetDocumentOutput{}, nil
	})
	registerActivityName(env, "ExtractMetadataActivity", func(context.Context, activities.ExtractMetadataInput) (activities.ExtractMetadataOutput, error) {
		return activities.ExtractMetadataOutput{}, nil
	})
	registerActivityName(env, "SaveDocumentMetadataActivity", func(context.Context, activities.SaveDocumentMetadataInput) error { return nil })
	registerActivityName(env, "ChunkDocumentActivity", func(context.Context, activities.ChunkDocumentInput) (activities.ChunkDocumentOutput, error) {
		return activities.ChunkDocumentOutput{}, nil
	})
	registerActivityName(env, "EmbedChunksActivity", func(context.Context, activities.EmbedChunksInput) (activities.EmbedChunksOutput, error) {
		return activities.EmbedChunksOutput{}, nil
	})
	registerActivityName(env, "ClearDocumentChunksActivity", func(context.Context, activities.ClearDocumentChunksInput) error { return nil })
	registerActivityName(env, "UpsertChunksActivity", func(context.Context, activities.UpsertChunksInput) error { return nil })
	registerActivityName(env, "WriteDocumentArtifactsActivity", func(context.Context, activities.WriteDocumentArtifactsInput) error { return nil })
	registerActivityName(env, "LogLLMCallActivity", func(context.Context, activities.LogLLMCallInput) error { return nil })
}

func TestDocumentProcessWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetDocumentActivity", mock.Anything, activities.GetDocumentInput{DocumentID: "doc-1"}).Return(activities.GetDocumentOutput{
		DocumentID: "doc-1",
		Name:       "report.txt",
		Content:    "Annual Report\nBy Jane Smith\n\nRevenue grew 40% this year.",
	}, nil)
	env.OnActivity("ExtractMetadataActivity", mock.Anything, mock.Anything).Return(activities.ExtractMetadataOutput{Title: "Annual Report", Author: "Jane Smith", WordCount: 10, PageCount: 1, Language: "en"}, nil)
	env.OnActivity("SaveDocumentMetadataActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, mock.Anything).Return(activities.ChunkDocumentOutput{Chunks: []activities.ChunkItem{
		{ChunkID: "c1", DocumentID: "doc-1", ChunkIndex: 0, Text: "Revenue grew 40% this year."},
	}}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.1, 0.2}}, ProviderName: "mock", Model: "mock"}, nil)
	env.OnActivity("ClearDocumentChunksActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("UpsertChunksActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("WriteDocumentArtifactsActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc-1", EmbedProviders: 1, CooldownSeconds: 10})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "processed", out)
}

func TestDocumentProcessWorkflowEmptyContentFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetDocumentActivity", mock.Anything, mock.Anything).Return(activities.GetDocumentOutput{DocumentID: "doc-1", Content: "   "}, nil)

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc-1", EmbedProviders: 1, CooldownSeconds: 10})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestDocumentProcessWorkflowChunkerFailureMarksFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetDocumentActivity", mock.Anything, mock.Anything).Return(activities.GetDocumentOutput{DocumentID: "doc-1", Content: "body"}, nil)
	env.OnActivity("ExtractMetadataActivity", mock.Anything, mock.Anything).Return(activities.ExtractMetadataOutput{}, nil)
	env.OnActivity("SaveDocumentMetadataActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, mock.Anything).Return(activities.ChunkDocumentOutput{}, errors.New("chunk document doc-1: document has no content to chunk"))

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc-1", EmbedProviders: 1, CooldownSeconds: 10})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestDocumentProcessWorkflowEmbedFailureStillMarksFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerDocumentActivities(env)

	var statuses []string
	env.OnActivity("UpdateDocumentStatusActivity", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		in := args.Get(1).(activities.UpdateDocumentStatusInput)
		statuses = append(statuses, in.Status)
	})
	env.OnActivity("GetDocumentActivity", mock.Anything, mock.Anything).Return(activities.GetDocumentOutput{DocumentID: "doc-1", Content: "body text"}, nil)
	env.OnActivity("ExtractMetadataActivity", mock.Anything, mock.Anything).Return(activities.ExtractMetadataOutput{}, nil)
	env.OnActivity("SaveDocumentMetadataActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, mock.Anything).Return(activities.ChunkDocumentOutput{Chunks: []activities.ChunkItem{
		{ChunkID: "c1", DocumentID: "doc-1", ChunkIndex: 0, Text: "body text"},
	}}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{}, errors.New("provider unreachable"))
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc-1", EmbedProviders: 1, CooldownSeconds: 10})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	// The row must not be left in processing when the workflow errors out.
	require.Contains(t, statuses, "failed")
}

func TestCorpusReprocessWorkflowRunsChildren(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CorpusReprocessWorkflow)
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerActivityName(env, "ListPendingDocumentsActivity", func(context.Context) (activities.ListPendingDocumentsOutput, error) {
		return activities.ListPendingDocumentsOutput{}, nil
	})

	env.OnActivity("ListPendingDocumentsActivity", mock.Anything).Return(activities.ListPendingDocumentsOutput{Documents: []activities.PendingDocument{
		{DocumentID: "doc-1", Name: "a.txt", Status: "failed"},
		{DocumentID: "doc-2", Name: "b.txt", Status: "uploading"},
	}}, nil)
	env.OnWorkflow(DocumentProcessWorkflow, mock.Anything, mock.Anything).Return("processed", nil)

	env.ExecuteWorkflow(CorpusReprocessWorkflow, CorpusReprocessInput{MaxConcurrentChildren: 2, EmbedProviders: 1})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
}

func TestCorpusReprocessWorkflowCountsEachDocumentOnce(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CorpusReprocessWorkflow)
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerActivityName(env, "ListPendingDocumentsActivity", func(context.Context) (activities.ListPendingDocumentsOutput, error) {
		return activities.ListPendingDocumentsOutput{}, nil
	})

	env.OnActivity("ListPendingDocumentsActivity", mock.Anything).Return(activities.ListPendingDocumentsOutput{Documents: []activities.PendingDocument{
		{DocumentID: "doc-1", Name: "a.txt", Status: "failed"},
		{DocumentID: "doc-2", Name: "b.txt", Status: "uploading"},
	}}, nil)
	env.OnWorkflow(DocumentProcessWorkflow, mock.Anything, mock.MatchedBy(func(in DocumentProcessInput) bool {
		return in.DocumentID == "doc-1"
	})).Return("processed", nil)
	env.OnWorkflow(DocumentProcessWorkflow, mock.Anything, mock.MatchedBy(func(in DocumentProcessInput) bool {
		return in.DocumentID == "doc-2"
	})).Return("failed", nil)

	env.ExecuteWorkflow(CorpusReprocessWorkflow, CorpusReprocessInput{MaxConcurrentChildren: 2, EmbedProviders: 1})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	v, err := env.QueryWorkflow(QueryGetReprocessProgress)
	require.NoError(t, err)
	var progress CorpusReprocessProgress
	require.NoError(t, v.Get(&progress))
	require.Equal(t, 2, progress.Total)
	require.Equal(t, 1, progress.Done)
	require.Equal(t, 1, progress.Failed)
	require.Equal(t, "failed", progress.PerDocument["doc-2"])
}
