package evi

import (
	"context"
	"net/http"
	"net/url"

	attune "github.com/attune-ai/attune-go"
)

// CustomVoicesClient manages custom assistant voices.
type CustomVoicesClient struct {
	c *attune.Client
}

// CreateCustomVoiceRequest is the body for Create and Update.
type CreateCustomVoiceRequest struct {
	Name       string           `json:"name"`
	BaseVoice  string           `json:"base_voice"`
	Parameters *VoiceParameters `json:"parameters,omitempty"`
}

// List returns one page of custom voices.
func (c *CustomVoicesClient) List(ctx context.Context, page attune.PageParams) (*CustomVoicesPage, error) {
	var out CustomVoicesPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/custom_voices", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new custom voice.
func (c *CustomVoicesClient) Create(ctx context.Context, req CreateCustomVoiceRequest) (*CustomVoice, error) {
	if err := attune.ValidateVoiceName(req.Name); err != nil {
		return nil, err
	}
	if req.BaseVoice == "" {
		return nil, &attune.ValidationError{Message: "base voice must not be empty"}
	}
	var out CustomVoice
	if err := c.c.Do(ctx, http.MethodPost, "/v0/evi/custom_voices", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one custom voice.
func (c *CustomVoicesClient) Get(ctx context.Context, voiceID string) (*CustomVoice, error) {
	var out CustomVoice
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/custom_voices/"+url.PathEscape(voiceID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a custom voice in place.
func (c *CustomVoicesClient) Update(ctx context.Context, voiceID string, req CreateCustomVoiceRequest) (*CustomVoice, error) {
	if err := attune.ValidateVoiceName(req.Name); err != nil {
		return nil, err
	}
	var out CustomVoice
	err := c.c.Do(ctx, http.MethodPut, "/v0/evi/custom_voices/"+url.PathEscape(voiceID), req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a custom voice.
func (c *CustomVoicesClient) Delete(ctx context.Context, voiceID string) error {
	return c.c.Do(ctx, http.MethodDelete, "/v0/evi/custom_voices/"+url.PathEscape(voiceID), nil, nil)
}
