package evi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xeipuuv/gojsonschema"

	attune "github.com/attune-ai/attune-go"
)

// ToolsClient manages user-defined tools the assistant can call.
type ToolsClient struct {
	c *attune.Client
}

// CreateToolRequest is the body for Create and CreateVersion. Parameters
// is a JSON Schema describing the tool's arguments.
type CreateToolRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  string `json:"parameters"`
	Fallback    string `json:"fallback_content,omitempty"`
}

// List returns one page of tools.
func (c *ToolsClient) List(ctx context.Context, page attune.PageParams) (*ToolsPage, error) {
	var out ToolsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/tools", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new tool at version 0. The parameter schema is compiled
// client-side so a broken schema fails fast instead of round-tripping to
// the server.
func (c *ToolsClient) Create(ctx context.Context, req CreateToolRequest) (*Tool, error) {
	if err := validateToolRequest(req); err != nil {
		return nil, err
	}
	var out Tool
	if err := c.c.Do(ctx, http.MethodPost, "/v0/evi/tools", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the latest version of a tool.
func (c *ToolsClient) Get(ctx context.Context, toolID string) (*Tool, error) {
	var out Tool
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/tools/"+url.PathEscape(toolID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a tool and all its versions.
func (c *ToolsClient) Delete(ctx context.Context, toolID string) error {
	return c.c.Do(ctx, http.MethodDelete, "/v0/evi/tools/"+url.PathEscape(toolID), nil, nil)
}

// ListVersions returns one page of a tool's versions.
func (c *ToolsClient) ListVersions(ctx context.Context, toolID string, page attune.PageParams) (*ToolsPage, error) {
	var out ToolsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/tools/"+url.PathEscape(toolID)+"/versions", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateVersion stores a new version of an existing tool.
func (c *ToolsClient) CreateVersion(ctx context.Context, toolID string, req CreateToolRequest) (*Tool, error) {
	if err := validateToolRequest(req); err != nil {
		return nil, err
	}
	var out Tool
	err := c.c.Do(ctx, http.MethodPost, "/v0/evi/tools/"+url.PathEscape(toolID)+"/versions", req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVersion returns one specific tool version.
func (c *ToolsClient) GetVersion(ctx context.Context, toolID string, version int) (*Tool, error) {
	var out Tool
	path := fmt.Sprintf("/v0/evi/tools/%s/versions/%d", url.PathEscape(toolID), version)
	if err := c.c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVersion removes one tool version.
func (c *ToolsClient) DeleteVersion(ctx context.Context, toolID string, version int) error {
	path := fmt.Sprintf("/v0/evi/tools/%s/versions/%d", url.PathEscape(toolID), version)
	return c.c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// UpdateName renames a tool across all versions.
func (c *ToolsClient) UpdateName(ctx context.Context, toolID, name string) error {
	if name == "" {
		return &attune.ValidationError{Message: "tool name must not be empty"}
	}
	body := map[string]string{"name": name}
	return c.c.Do(ctx, http.MethodPatch, "/v0/evi/tools/"+url.PathEscape(toolID), body, nil)
}

func validateToolRequest(req CreateToolRequest) error {
	if req.Name == "" {
		return &attune.ValidationError{Message: "tool name must not be empty"}
	}
	if req.Parameters == "" {
		return nil
	}
	loader := gojsonschema.NewStringLoader(req.Parameters)
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		return &attune.ValidationError{Message: fmt.Sprintf("tool parameters is not a valid JSON Schema: %v", err)}
	}
	return nil
}
