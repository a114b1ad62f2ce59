package tts

import (
	"errors"

	attune "github.com/attune-ai/attune-go"
)

// VoiceProvider distinguishes library voices from user-saved ones.
type VoiceProvider string

const (
	ProviderAttune      VoiceProvider = "ATTUNE_AI"
	ProviderCustomVoice VoiceProvider = "CUSTOM_VOICE"
)

// VoiceRef selects a voice by id or by name. Set exactly one of ID and
// Name.
type VoiceRef struct {
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Provider VoiceProvider `json:"provider,omitempty"`
}

// FormatType is the audio container for generated speech.
type FormatType string

const (
	FormatMP3 FormatType = "mp3"
	FormatWAV FormatType = "wav"
	FormatPCM FormatType = "pcm"
)

// Format selects the output container.
type Format struct {
	Type FormatType `json:"type"`
}

// Utterance is one unit of text to synthesize with its delivery controls.
type Utterance struct {
	Text  string    `json:"text"`
	Voice *VoiceRef `json:"voice,omitempty"`
	// Description steers delivery in natural language when no voice is
	// pinned.
	Description string `json:"description,omitempty"`
	// Speed is a multiplier on speaking rate, clamped to [0.5, 2.0].
	Speed float64 `json:"speed,omitempty"`
	// TrailingSilence appends silence after the utterance, in
	// milliseconds.
	TrailingSilence int `json:"trailing_silence,omitempty"`
}

// Context carries prior generations or utterances so consecutive requests
// keep a consistent delivery.
type Context struct {
	GenerationID string      `json:"generation_id,omitempty"`
	Utterances   []Utterance `json:"utterances,omitempty"`
}

// Request is the synthesis request shared by all TTS endpoints.
type Request struct {
	Utterances      []Utterance `json:"utterances"`
	Context         *Context    `json:"context,omitempty"`
	Format          *Format     `json:"format,omitempty"`
	SampleRate      int         `json:"sample_rate,omitempty"`
	NumGenerations  int         `json:"num_generations,omitempty"`
	SplitUtterances *bool       `json:"split_utterances,omitempty"`
}

// Validate applies the client-side input limits.
func (r Request) Validate() error {
	if len(r.Utterances) == 0 {
		return &attune.ValidationError{Message: "request needs at least one utterance"}
	}
	for _, u := range r.Utterances {
		if err := attune.ValidateTextLength("utterance text", u.Text, attune.MaxTTSTextLength); err != nil {
			return err
		}
	}
	if r.SampleRate != 0 {
		if err := attune.ValidateSampleRate(r.SampleRate); err != nil {
			return err
		}
	}
	return nil
}

// Generation is one synthesized rendition of the request.
type Generation struct {
	GenerationID string `json:"generation_id"`
	// Data is the base64-encoded audio file.
	Data       string `json:"data"`
	DurationMS int    `json:"duration_ms,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
}

// Response is the buffered synthesis result.
type Response struct {
	Generations []Generation `json:"generations"`
	RequestID   string       `json:"request_id,omitempty"`
}

// StreamChunk is one element of the chunked JSON synthesis stream. Chunks
// arrive in playback order; the last one carries IsFinal.
type StreamChunk struct {
	Index        int    `json:"index"`
	GenerationID string `json:"generation_id,omitempty"`
	Data         string `json:"data"`
	DurationMS   int    `json:"duration_ms,omitempty"`
	IsFinal      bool   `json:"is_final,omitempty"`
}

// Voice is one entry of the voice library.
type Voice struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Provider VoiceProvider `json:"provider,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
}

// VoicesPage is the voice library listing.
type VoicesPage struct {
	PageNumber int     `json:"page_number"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Voices     []Voice `json:"voices_page"`
}

// SaveVoiceRequest names a previous generation's voice for reuse.
type SaveVoiceRequest struct {
	GenerationID string `json:"generation_id"`
	Name         string `json:"name"`
}

// RequestBuilder assembles a synthesis request incrementally. Errors are
// collected and surfaced by Build, so call chains stay flat.
type RequestBuilder struct {
	req  Request
	errs []error
}

// NewRequestBuilder starts an empty request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

// Utterance appends plain text.
func (b *RequestBuilder) Utterance(text string) *RequestBuilder {
	return b.AddUtterance(Utterance{Text: text})
}

// UtteranceWithVoice appends text spoken by a named voice.
func (b *RequestBuilder) UtteranceWithVoice(text, voiceName string) *RequestBuilder {
	return b.AddUtterance(Utterance{Text: text, Voice: &VoiceRef{Name: voiceName}})
}

// UtteranceWithVoiceID appends text spoken by a voice id.
func (b *RequestBuilder) UtteranceWithVoiceID(text, voiceID string) *RequestBuilder {
	return b.AddUtterance(Utterance{Text: text, Voice: &VoiceRef{ID: voiceID}})
}

// AddUtterance appends a fully specified utterance. Speed is clamped to
// the supported range rather than rejected.
func (b *RequestBuilder) AddUtterance(u Utterance) *RequestBuilder {
	if err := attune.ValidateTextLength("utterance text", u.Text, attune.MaxTTSTextLength); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if u.Speed != 0 {
		u.Speed = attune.ClampSpeakingRate(u.Speed)
	}
	b.req.Utterances = append(b.req.Utterances, u)
	return b
}

// ContinueFrom links this request to a previous generation.
func (b *RequestBuilder) ContinueFrom(generationID string) *RequestBuilder {
	b.req.Context = &Context{GenerationID: generationID}
	return b
}

// Format sets the output container.
func (b *RequestBuilder) Format(t FormatType) *RequestBuilder {
	b.req.Format = &Format{Type: t}
	return b
}

// SampleRate sets the output sample rate in Hz.
func (b *RequestBuilder) SampleRate(rate int) *RequestBuilder {
	if err := attune.ValidateSampleRate(rate); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.req.SampleRate = rate
	return b
}

// NumGenerations asks for several renditions of the same text.
func (b *RequestBuilder) NumGenerations(n int) *RequestBuilder {
	b.req.NumGenerations = n
	return b
}

// Build returns the assembled request or the collected errors.
func (b *RequestBuilder) Build() (Request, error) {
	if len(b.errs) > 0 {
		return Request{}, errors.Join(b.errs...)
	}
	if err := b.req.Validate(); err != nil {
		return Request{}, err
	}
	return b.req, nil
}
