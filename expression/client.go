// Package expression is the client for the emotion measurement API:
// asynchronous batch jobs over media and text, and a realtime streaming
// socket.
package expression

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	attune "github.com/attune-ai/attune-go"
)

// DefaultPollInterval spaces WaitForCompletion's status checks.
const DefaultPollInterval = 2 * time.Second

// Client calls the emotion measurement API.
type Client struct {
	c *attune.Client
}

// New builds the expression client as a view over c.
func New(c *attune.Client) *Client {
	return &Client{c: c}
}

// StartJob submits a batch measurement job and returns its handle. Progress
// is observed through GetJob or WaitForCompletion.
func (c *Client) StartJob(ctx context.Context, req JobRequest, opts ...attune.CallOption) (*JobHandle, error) {
	if len(req.URLs) == 0 && len(req.Text) == 0 {
		return nil, &attune.ValidationError{Message: "job needs at least one url or text entry"}
	}
	for _, t := range req.Text {
		if err := attune.ValidateTextLength("text entry", t, attune.MaxExpressionTextLength); err != nil {
			return nil, err
		}
	}
	var out JobHandle
	if err := c.c.Do(ctx, http.MethodPost, "/v0/batch/jobs", req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs returns jobs matching the filter, most recent first by default.
func (c *Client) ListJobs(ctx context.Context, params JobListParams, opts ...attune.CallOption) ([]Job, error) {
	all := append([]attune.CallOption{attune.WithQueryValues(params.Query())}, opts...)
	var out []Job
	if err := c.c.Do(ctx, http.MethodGet, "/v0/batch/jobs", nil, &out, all...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetJob returns a job's current state.
func (c *Client) GetJob(ctx context.Context, jobID string, opts ...attune.CallOption) (*Job, error) {
	var out Job
	err := c.c.Do(ctx, http.MethodGet, "/v0/batch/jobs/"+url.PathEscape(jobID), nil, &out, opts...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPredictions returns a completed job's results, one entry per source.
func (c *Client) GetPredictions(ctx context.Context, jobID string, opts ...attune.CallOption) ([]SourceResult, error) {
	var out []SourceResult
	err := c.c.Do(ctx, http.MethodGet, "/v0/batch/jobs/"+url.PathEscape(jobID)+"/predictions", nil, &out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetArtifacts returns a completed job's artifact archive as raw zip
// bytes. The caller must close the reader.
func (c *Client) GetArtifacts(ctx context.Context, jobID string, opts ...attune.CallOption) (io.ReadCloser, error) {
	all := append([]attune.CallOption{attune.WithHeader("Accept", "application/octet-stream")}, opts...)
	return c.c.DoRaw(ctx, http.MethodGet, "/v0/batch/jobs/"+url.PathEscape(jobID)+"/artifacts", nil, all...)
}

// WaitForCompletion polls the job until it reaches a terminal status. The
// returned job may have failed; inspect State.Status. Interval defaults to
// DefaultPollInterval; the context bounds the wait.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
