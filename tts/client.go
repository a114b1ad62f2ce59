// Package tts is the client for the speech synthesis API: buffered
// synthesis, chunked streaming and the voice library.
package tts

import (
	"context"
	"io"
	"net/http"

	attune "github.com/attune-ai/attune-go"
)

// Client calls the speech synthesis API.
type Client struct {
	c *attune.Client
}

// New builds the TTS client as a view over c.
func New(c *attune.Client) *Client {
	return &Client{c: c}
}

// Synthesize renders speech and returns every generation as base64 audio
// in one response.
func (c *Client) Synthesize(ctx context.Context, req Request, opts ...attune.CallOption) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Response
	if err := c.c.Do(ctx, http.MethodPost, "/v0/tts", req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

// SynthesizeFile renders speech and returns the audio file bytes directly.
// The caller must close the reader.
func (c *Client) SynthesizeFile(ctx context.Context, req Request, opts ...attune.CallOption) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.c.DoRaw(ctx, http.MethodPost, "/v0/tts/file", req, opts...)
}

// SynthesizeStream renders speech as a chunked JSON stream, yielding audio
// as it is generated. The caller must close the stream.
func (c *Client) SynthesizeStream(ctx context.Context, req Request, opts ...attune.CallOption) (*Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.c.DoRaw(ctx, http.MethodPost, "/v0/tts/stream/json", req, opts...)
	if err != nil {
		return nil, err
	}
	return newStream(body), nil
}

// SynthesizeStreamFile renders speech as a raw audio byte stream. The
// caller must close the reader.
func (c *Client) SynthesizeStreamFile(ctx context.Context, req Request, opts ...attune.CallOption) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.c.DoRaw(ctx, http.MethodPost, "/v0/tts/stream/file", req, opts...)
}

// Voices lists the voice library.
func (c *Client) Voices(ctx context.Context, provider VoiceProvider, page attune.PageParams, opts ...attune.CallOption) (*VoicesPage, error) {
	all := append([]attune.CallOption{attune.WithPageParams(page)}, opts...)
	if provider != "" {
		all = append(all, attune.WithQueryParam("provider", string(provider)))
	}
	var out VoicesPage
	if err := c.c.Do(ctx, http.MethodGet, "/v0/tts/voices", nil, &out, all...); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveVoice names the voice of a previous generation so later requests can
// reuse it.
func (c *Client) SaveVoice(ctx context.Context, req SaveVoiceRequest, opts ...attune.CallOption) (*Voice, error) {
	if req.GenerationID == "" {
		return nil, &attune.ValidationError{Message: "generation id must not be empty"}
	}
	if err := attune.ValidateVoiceName(req.Name); err != nil {
		return nil, err
	}
	var out Voice
	if err := c.c.Do(ctx, http.MethodPost, "/v0/tts/voices", req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVoice removes a saved voice by name.
func (c *Client) DeleteVoice(ctx context.Context, name string, opts ...attune.CallOption) error {
	if err := attune.ValidateVoiceName(name); err != nil {
		return err
	}
	all := append([]attune.CallOption{attune.WithQueryParam("name", name)}, opts...)
	return c.c.Do(ctx, http.MethodDelete, "/v0/tts/voices", nil, nil, all...)
}
