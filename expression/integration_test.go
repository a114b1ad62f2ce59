package expression_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attune "github.com/attune-ai/attune-go"
	"github.com/attune-ai/attune-go/expression"
	"github.com/attune-ai/attune-go/internal/mockapi"
)

func newExpressionStack(t *testing.T) *expression.Client {
	t.Helper()
	srv := httptest.NewServer(mockapi.New(mockapi.Config{}).Router())
	t.Cleanup(srv.Close)

	root, err := attune.NewClient(
		attune.WithAPIKey("integration-key-0123456789abcdef"),
		attune.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)
	return expression.New(root)
}

func startTextJob(t *testing.T, client *expression.Client, texts ...string) string {
	t.Helper()
	handle, err := client.StartJob(context.Background(), expression.JobRequest{
		Models: expression.Models{
			Language: &expression.LanguageModel{
				Granularity: "word",
				Sentiment:   &expression.SentimentConfig{},
			},
		},
		Text: texts,
	})
	require.NoError(t, err)
	require.NotEmpty(t, handle.JobID)
	return handle.JobID
}

func TestBatchJobLifecycle(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	jobID := startTextJob(t, client, "I am delighted with this result.")

	job, err := client.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, job.JobID)
	assert.False(t, job.Done(), "a freshly started job is not terminal")
	assert.Greater(t, job.State.CreatedTimestampMS, int64(0))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	job, err = client.WaitForCompletion(waitCtx, jobID, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, expression.StatusCompleted, job.State.Status)
	assert.Greater(t, job.State.StartedTimestampMS, int64(0))
	assert.GreaterOrEqual(t, job.State.EndedTimestampMS, job.State.StartedTimestampMS)

	results, err := client.GetPredictions(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	source := results[0]
	assert.Equal(t, "text", source.Source.Type)
	assert.Equal(t, "I am delighted with this result.", source.Source.Text)
	require.NotNil(t, source.Results.Language)
	assert.Nil(t, source.Results.Prosody, "only requested models produce output")

	require.NotEmpty(t, source.Results.Language.Grouped)
	group := source.Results.Language.Grouped[0]
	require.NotEmpty(t, group.Predictions)
	for _, pred := range group.Predictions {
		assert.NotEmpty(t, pred.Text)
		require.NotNil(t, pred.Position, "word granularity carries positions")
		assert.GreaterOrEqual(t, pred.Position.End, pred.Position.Begin)
		assert.NotEmpty(t, pred.Emotions)
		assert.NotEmpty(t, pred.Sentiment, "sentiment was requested")
		assert.Empty(t, pred.Toxicity, "toxicity was not requested")
	}
}

func TestStartJobValidatesLocally(t *testing.T) {
	client := newExpressionStack(t)

	_, err := client.StartJob(context.Background(), expression.JobRequest{})
	var ve *attune.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestGetPredictionsBeforeCompletion(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	jobID := startTextJob(t, client, "too eager")

	_, err := client.GetPredictions(ctx, jobID)
	var apiErr *attune.APIError
	require.ErrorAs(t, err, &apiErr, "predictions are gated on completion")
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestJobURLSources(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	handle, err := client.StartJob(ctx, expression.JobRequest{
		Models: expression.Models{Prosody: &expression.ProsodyModel{}},
		URLs:   []string{"https://example.com/call.wav"},
	})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = client.WaitForCompletion(waitCtx, handle.JobID, 20*time.Millisecond)
	require.NoError(t, err)

	results, err := client.GetPredictions(ctx, handle.JobID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "url", results[0].Source.Type)
	assert.Equal(t, "https://example.com/call.wav", results[0].Source.URL)
	require.NotNil(t, results[0].Results.Prosody)
	assert.Nil(t, results[0].Results.Language)
}

func TestJobArtifactsArchive(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	jobID := startTextJob(t, client, "archive me")
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := client.WaitForCompletion(waitCtx, jobID, 20*time.Millisecond)
	require.NoError(t, err)

	body, err := client.GetArtifacts(ctx, jobID)
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err, "artifacts are a readable zip")

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	require.Contains(t, files, "predictions.json")
	require.Contains(t, files, "job.json")

	rc, err := files["predictions.json"].Open()
	require.NoError(t, err)
	defer rc.Close()
	var results []expression.SourceResult
	require.NoError(t, json.NewDecoder(rc).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "archive me", results[0].Source.Text)
}

func TestListJobsFilterAndOrder(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	first := startTextJob(t, client, "first job")
	second := startTextJob(t, client, "second job")

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := client.WaitForCompletion(waitCtx, second, 20*time.Millisecond)
	require.NoError(t, err)

	jobs, err := client.ListJobs(ctx, expression.JobListParams{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second, jobs[0].JobID, "most recent job lists first")
	assert.Equal(t, first, jobs[1].JobID)

	limited, err := client.ListJobs(ctx, expression.JobListParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].JobID)

	completed, err := client.ListJobs(ctx, expression.JobListParams{
		Status: []expression.JobStatus{expression.StatusCompleted},
	})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	failed, err := client.ListJobs(ctx, expression.JobListParams{
		Status: []expression.JobStatus{expression.StatusFailed},
	})
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestStreamTextPredictions(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	sock, err := client.ConnectStream(ctx, expression.StreamOptions{
		Models: expression.Models{
			Language: &expression.LanguageModel{Granularity: "word"},
		},
	})
	require.NoError(t, err)
	defer sock.CloseIdempotent()

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := sock.Receive(recvCtx)
	require.NoError(t, err)
	details, ok := msg.(expression.JobDetails)
	require.True(t, ok, "first frame is job_details, got %T", msg)
	assert.NotEmpty(t, details.JobID)

	require.NoError(t, sock.SendText(ctx, "What a wonderful surprise"))

	msg, err = sock.Receive(recvCtx)
	require.NoError(t, err)
	preds, ok := msg.(expression.Predictions)
	require.True(t, ok, "data frames earn predictions, got %T", msg)
	require.NotNil(t, preds.Predictions.Language)
	assert.Nil(t, preds.Predictions.NER, "unconfigured models stay silent")
	require.NotEmpty(t, preds.Predictions.Language.Grouped)
	assert.NotEmpty(t, preds.Predictions.Language.Grouped[0].Predictions)

	require.NoError(t, sock.Close())
}

func TestStreamAudioPredictions(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	sock, err := client.ConnectStream(ctx, expression.StreamOptions{
		Models: expression.Models{
			Prosody: &expression.ProsodyModel{},
			Burst:   &expression.BurstModel{},
		},
		StreamWindowMS: 3000,
	})
	require.NoError(t, err)
	defer sock.CloseIdempotent()

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = sock.Receive(recvCtx) // job_details
	require.NoError(t, err)

	require.NoError(t, sock.SendAudio(ctx, bytes.Repeat([]byte{0x01, 0x02}, 640)))

	msg, err := sock.Receive(recvCtx)
	require.NoError(t, err)
	preds, ok := msg.(expression.Predictions)
	require.True(t, ok)
	assert.NotNil(t, preds.Predictions.Prosody)
	assert.NotNil(t, preds.Predictions.Burst)
	assert.Nil(t, preds.Predictions.Language)
}

func TestStreamDefaultsToLanguageModel(t *testing.T) {
	client := newExpressionStack(t)
	ctx := context.Background()

	sock, err := client.ConnectStream(ctx, expression.StreamOptions{})
	require.NoError(t, err)
	defer sock.CloseIdempotent()

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = sock.Receive(recvCtx) // job_details
	require.NoError(t, err)

	require.NoError(t, sock.SendText(ctx, "hello"))
	msg, err := sock.Receive(recvCtx)
	require.NoError(t, err)
	preds, ok := msg.(expression.Predictions)
	require.True(t, ok)
	assert.NotNil(t, preds.Predictions.Language, "language is the default model")
}
