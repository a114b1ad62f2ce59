package evi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	attune "github.com/attune-ai/attune-go"
)

// PromptsClient manages stored system prompts. Prompts version the same
// way configs do.
type PromptsClient struct {
	c *attune.Client
}

// CreatePromptRequest is the body for Create and CreateVersion.
type CreatePromptRequest struct {
	Name        string `json:"name"`
	Description string `json:"version_description,omitempty"`
	Text        string `json:"text"`
}

// List returns one page of prompts.
func (c *PromptsClient) List(ctx context.Context, page attune.PageParams) (*PromptsPage, error) {
	var out PromptsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/prompts", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new prompt at version 0.
func (c *PromptsClient) Create(ctx context.Context, req CreatePromptRequest) (*Prompt, error) {
	if req.Name == "" {
		return nil, &attune.ValidationError{Message: "prompt name must not be empty"}
	}
	if req.Text == "" {
		return nil, &attune.ValidationError{Message: "prompt text must not be empty"}
	}
	var out Prompt
	if err := c.c.Do(ctx, http.MethodPost, "/v0/evi/prompts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the latest version of a prompt.
func (c *PromptsClient) Get(ctx context.Context, promptID string) (*Prompt, error) {
	var out Prompt
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/prompts/"+url.PathEscape(promptID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a prompt and all its versions.
func (c *PromptsClient) Delete(ctx context.Context, promptID string) error {
	return c.c.Do(ctx, http.MethodDelete, "/v0/evi/prompts/"+url.PathEscape(promptID), nil, nil)
}

// ListVersions returns one page of a prompt's versions.
func (c *PromptsClient) ListVersions(ctx context.Context, promptID string, page attune.PageParams) (*PromptsPage, error) {
	var out PromptsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/prompts/"+url.PathEscape(promptID)+"/versions", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateVersion stores a new version of an existing prompt.
func (c *PromptsClient) CreateVersion(ctx context.Context, promptID string, req CreatePromptRequest) (*Prompt, error) {
	var out Prompt
	err := c.c.Do(ctx, http.MethodPost, "/v0/evi/prompts/"+url.PathEscape(promptID)+"/versions", req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVersion returns one specific prompt version.
func (c *PromptsClient) GetVersion(ctx context.Context, promptID string, version int) (*Prompt, error) {
	var out Prompt
	path := fmt.Sprintf("/v0/evi/prompts/%s/versions/%d", url.PathEscape(promptID), version)
	if err := c.c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVersion removes one prompt version.
func (c *PromptsClient) DeleteVersion(ctx context.Context, promptID string, version int) error {
	path := fmt.Sprintf("/v0/evi/prompts/%s/versions/%d", url.PathEscape(promptID), version)
	return c.c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// UpdateName renames a prompt across all versions.
func (c *PromptsClient) UpdateName(ctx context.Context, promptID, name string) error {
	if name == "" {
		return &attune.ValidationError{Message: "prompt name must not be empty"}
	}
	body := map[string]string{"name": name}
	return c.c.Do(ctx, http.MethodPatch, "/v0/evi/prompts/"+url.PathEscape(promptID), body, nil)
}
