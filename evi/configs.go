package evi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	attune "github.com/attune-ai/attune-go"
)

// ConfigsClient manages stored EVI configurations. Configs are versioned:
// creating over an existing config adds a version, and deletes can target
// one version or the whole config.
type ConfigsClient struct {
	c *attune.Client
}

// CreateConfigRequest is the body for Create and CreateVersion.
type CreateConfigRequest struct {
	Name          string             `json:"name"`
	Description   string             `json:"version_description,omitempty"`
	Prompt        *PromptSpec        `json:"prompt,omitempty"`
	Voice         *VoiceSpec         `json:"voice,omitempty"`
	LanguageModel *LanguageModelSpec `json:"language_model,omitempty"`
	Tools         []ToolSpec         `json:"tools,omitempty"`
	BuiltinTools  []BuiltinTool      `json:"builtin_tools,omitempty"`
	EventMessages *EventMessagesSpec `json:"event_messages,omitempty"`
	Timeouts      *TimeoutsSpec      `json:"timeouts,omitempty"`
}

// List returns one page of configs.
func (c *ConfigsClient) List(ctx context.Context, page attune.PageParams) (*ConfigsPage, error) {
	var out ConfigsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/configs", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new config at version 0.
func (c *ConfigsClient) Create(ctx context.Context, req CreateConfigRequest) (*Config, error) {
	if req.Name == "" {
		return nil, &attune.ValidationError{Message: "config name must not be empty"}
	}
	var out Config
	if err := c.c.Do(ctx, http.MethodPost, "/v0/evi/configs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the latest version of a config.
func (c *ConfigsClient) Get(ctx context.Context, configID string) (*Config, error) {
	var out Config
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/configs/"+url.PathEscape(configID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a config and all its versions.
func (c *ConfigsClient) Delete(ctx context.Context, configID string) error {
	return c.c.Do(ctx, http.MethodDelete, "/v0/evi/configs/"+url.PathEscape(configID), nil, nil)
}

// ListVersions returns one page of a config's versions.
func (c *ConfigsClient) ListVersions(ctx context.Context, configID string, page attune.PageParams) (*ConfigsPage, error) {
	var out ConfigsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/configs/"+url.PathEscape(configID)+"/versions", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateVersion stores a new version of an existing config.
func (c *ConfigsClient) CreateVersion(ctx context.Context, configID string, req CreateConfigRequest) (*Config, error) {
	var out Config
	err := c.c.Do(ctx, http.MethodPost, "/v0/evi/configs/"+url.PathEscape(configID)+"/versions", req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVersion returns one specific config version.
func (c *ConfigsClient) GetVersion(ctx context.Context, configID string, version int) (*Config, error) {
	var out Config
	path := fmt.Sprintf("/v0/evi/configs/%s/versions/%d", url.PathEscape(configID), version)
	if err := c.c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVersion removes one config version.
func (c *ConfigsClient) DeleteVersion(ctx context.Context, configID string, version int) error {
	path := fmt.Sprintf("/v0/evi/configs/%s/versions/%d", url.PathEscape(configID), version)
	return c.c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// UpdateName renames a config across all versions.
func (c *ConfigsClient) UpdateName(ctx context.Context, configID, name string) error {
	if name == "" {
		return &attune.ValidationError{Message: "config name must not be empty"}
	}
	body := map[string]string{"name": name}
	return c.c.Do(ctx, http.MethodPatch, "/v0/evi/configs/"+url.PathEscape(configID), body, nil)
}
