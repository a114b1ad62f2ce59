package expression

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	attune "github.com/attune-ai/attune-go"
	"github.com/attune-ai/attune-go/observability"
	"github.com/attune-ai/attune-go/session"
)

const streamPath = "/v0/stream/models"

// StreamOptions configures a measurement stream.
type StreamOptions struct {
	// Models selects which measurement models score the stream.
	Models Models
	// StreamWindowMS sizes the rolling analysis window. Zero keeps the
	// server default.
	StreamWindowMS int
}

// streamConfig is the first frame of every stream.
type streamConfig struct {
	Models         Models `json:"models"`
	StreamWindowMS int    `json:"stream_window_ms,omitempty"`
}

// StreamDataType discriminates outbound data frames.
type StreamDataType string

const (
	DataText       StreamDataType = "text"
	DataAudio      StreamDataType = "audio"
	DataVideoFrame StreamDataType = "video_frame"
)

// StreamData is one outbound payload frame.
type StreamData struct {
	Type StreamDataType `json:"type"`
	Text string         `json:"text,omitempty"`
	Data string         `json:"data,omitempty"`
}

// StreamMessageType discriminates inbound stream frames.
type StreamMessageType string

const (
	StreamTypeJobDetails  StreamMessageType = "job_details"
	StreamTypePredictions StreamMessageType = "predictions"
	StreamTypeError       StreamMessageType = "error"
	StreamTypeWarning     StreamMessageType = "warning"
)

// StreamMessage is the set of messages the measurement stream can emit.
// Unrecognized types decode to StreamUnknown.
type StreamMessage interface {
	streamMessageType() StreamMessageType
}

// JobDetails identifies the streaming job.
type JobDetails struct {
	Type  StreamMessageType `json:"type"`
	JobID string            `json:"job_id"`
}

// StreamPredictions groups realtime output by model.
type StreamPredictions struct {
	Face     *FacePredictions     `json:"face,omitempty"`
	Language *LanguagePredictions `json:"language,omitempty"`
	Prosody  *ProsodyPredictions  `json:"prosody,omitempty"`
	Burst    *BurstPredictions    `json:"burst,omitempty"`
	NER      *NERPredictions      `json:"ner,omitempty"`
}

// Predictions carries scores for recently submitted data.
type Predictions struct {
	Type        StreamMessageType `json:"type"`
	Predictions StreamPredictions `json:"predictions"`
}

// StreamError is a server-reported error. The stream may continue.
type StreamError struct {
	Type    StreamMessageType `json:"type"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
}

// StreamWarning is advisory.
type StreamWarning struct {
	Type    StreamMessageType `json:"type"`
	Message string            `json:"message"`
}

// StreamUnknown preserves a frame whose type this SDK version does not
// know.
type StreamUnknown struct {
	Type StreamMessageType
	Raw  json.RawMessage
}

func (JobDetails) streamMessageType() StreamMessageType    { return StreamTypeJobDetails }
func (Predictions) streamMessageType() StreamMessageType   { return StreamTypePredictions }
func (StreamError) streamMessageType() StreamMessageType   { return StreamTypeError }
func (StreamWarning) streamMessageType() StreamMessageType { return StreamTypeWarning }
func (u StreamUnknown) streamMessageType() StreamMessageType {
	return u.Type
}

// DecodeStreamMessage parses one inbound stream frame.
func DecodeStreamMessage(raw []byte) (StreamMessage, error) {
	var env struct {
		Type StreamMessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &attune.ProtocolError{Op: "decode frame", Err: err}
	}
	switch env.Type {
	case StreamTypeJobDetails:
		var m JobDetails
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, &attune.ProtocolError{Op: "decode job_details frame", Err: err}
		}
		return m, nil
	case StreamTypePredictions:
		var m Predictions
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, &attune.ProtocolError{Op: "decode predictions frame", Err: err}
		}
		return m, nil
	case StreamTypeError:
		var m StreamError
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, &attune.ProtocolError{Op: "decode error frame", Err: err}
		}
		return m, nil
	case StreamTypeWarning:
		var m StreamWarning
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, &attune.ProtocolError{Op: "decode warning frame", Err: err}
		}
		return m, nil
	default:
		return StreamUnknown{Type: env.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// ConnectStream opens the realtime measurement socket and pushes the model
// configuration as the first frame, so configuration always precedes data
// on the wire.
func (c *Client) ConnectStream(ctx context.Context, opts StreamOptions) (*StreamSocket, error) {
	name, value := c.c.Credential().QueryEncoding()
	q := url.Values{}
	q.Set(name, value)

	conn, err := session.Dial(ctx, c.c.WebSocketURL(streamPath)+"?"+q.Encode(), session.Options{
		Logger: c.c.Logger(),
	})
	if err != nil {
		return nil, err
	}

	s := &StreamSocket{conn: conn, metrics: c.c.Metrics()}
	cfg := streamConfig{Models: opts.Models, StreamWindowMS: opts.StreamWindowMS}
	if err := conn.Send(ctx, cfg); err != nil {
		_ = conn.CloseIdempotent()
		return nil, err
	}
	s.metrics.SessionOpened()
	return s, nil
}

// StreamSocket is one live measurement stream. Receive must be driven by a
// single goroutine; send methods may be called from another.
type StreamSocket struct {
	conn    *session.Conn
	metrics *observability.Metrics
}

// SendText submits text for scoring.
func (s *StreamSocket) SendText(ctx context.Context, text string) error {
	if err := attune.ValidateTextLength("text", text, attune.MaxExpressionTextLength); err != nil {
		return err
	}
	return s.send(ctx, StreamData{Type: DataText, Text: text})
}

// SendAudio submits one chunk of raw audio for scoring.
func (s *StreamSocket) SendAudio(ctx context.Context, data []byte) error {
	if err := attune.ValidateUploadSize("audio chunk", len(data)); err != nil {
		return err
	}
	return s.send(ctx, StreamData{Type: DataAudio, Data: base64.StdEncoding.EncodeToString(data)})
}

// SendVideoFrame submits one encoded video frame for scoring.
func (s *StreamSocket) SendVideoFrame(ctx context.Context, frame []byte) error {
	if err := attune.ValidateUploadSize("video frame", len(frame)); err != nil {
		return err
	}
	return s.send(ctx, StreamData{Type: DataVideoFrame, Data: base64.StdEncoding.EncodeToString(frame)})
}

func (s *StreamSocket) send(ctx context.Context, data StreamData) error {
	if data.Type == "" {
		return &attune.ValidationError{Message: fmt.Sprintf("stream data needs a type: %+v", data)}
	}
	if err := s.conn.Send(ctx, data); err != nil {
		return err
	}
	s.metrics.ObserveWSMessage("outbound", string(data.Type))
	return nil
}

// Receive blocks for the next inbound message. It returns io.EOF when the
// server closes the stream cleanly.
func (s *StreamSocket) Receive(ctx context.Context) (StreamMessage, error) {
	raw, err := s.conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := DecodeStreamMessage(raw)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveWSMessage("inbound", string(msg.streamMessageType()))
	return msg, nil
}

// State reports the connection lifecycle phase.
func (s *StreamSocket) State() session.State { return s.conn.State() }

// Close performs the orderly shutdown. A second Close returns
// session.ErrClosed.
func (s *StreamSocket) Close() error {
	err := s.conn.Close()
	if !errors.Is(err, session.ErrClosed) {
		s.metrics.SessionClosed()
	}
	return err
}

// CloseIdempotent is Close made safe to defer.
func (s *StreamSocket) CloseIdempotent() error {
	err := s.Close()
	if errors.Is(err, session.ErrClosed) {
		return nil
	}
	return err
}
