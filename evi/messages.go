package evi

import (
	"encoding/json"
	"fmt"

	attune "github.com/attune-ai/attune-go"
)

// MessageType discriminates the chat socket's tagged JSON frames.
type MessageType string

// Client-originated message types.
const (
	TypeSessionSettings MessageType = "session_settings"
	TypeAudioInput      MessageType = "audio_input"
	TypeUserInput       MessageType = "user_input"
	TypeAssistantInput  MessageType = "assistant_input"
	TypePauseAssistant  MessageType = "pause_assistant"
	TypeResumeAssistant MessageType = "resume_assistant"
)

// Server-originated message types.
const (
	TypeSessionStarted   MessageType = "session_started"
	TypeUserMessage      MessageType = "user_message"
	TypeAssistantMessage MessageType = "assistant_message"
	TypeAudioOutput      MessageType = "audio_output"
	TypeToolCall         MessageType = "tool_call"
	TypeEmotionInference MessageType = "emotion_inference"
	TypeError            MessageType = "error"
	TypeWarning          MessageType = "warning"
	TypeSessionEnded     MessageType = "session_ended"
)

// Message types that travel in both directions.
const (
	TypeToolResponse MessageType = "tool_response"
	TypeToolError    MessageType = "tool_error"
)

// ClientMessage is the closed set of messages a client can send on the
// chat socket.
type ClientMessage interface {
	clientMessageType() MessageType
}

// ServerMessage is the set of messages the server can emit. Frames with an
// unrecognized discriminator decode to Unknown, so new server message kinds
// never break an old client.
type ServerMessage interface {
	serverMessageType() MessageType
}

// Envelope probes only the discriminator of a frame.
type Envelope struct {
	Type MessageType `json:"type"`
}

// SessionSettingsMessage applies session settings mid-session. When
// supplied at connect time the settings travel as the very first frame.
type SessionSettingsMessage struct {
	Type     MessageType     `json:"type"`
	Settings SessionSettings `json:"settings"`
}

// AudioInput carries one chunk of caller audio, base64-encoded. Chunk
// boundaries are the caller's choice.
type AudioInput struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// UserInput injects caller text as if it had been spoken.
type UserInput struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// AssistantInput injects text for the assistant to speak verbatim.
type AssistantInput struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// PauseAssistant suspends assistant replies; inbound audio is still
// consumed.
type PauseAssistant struct {
	Type MessageType `json:"type"`
}

// ResumeAssistant lifts a pause.
type ResumeAssistant struct {
	Type MessageType `json:"type"`
}

// ToolResponse returns a tool result for a pending ToolCall. The server
// echoes the same shape when relaying results in multi-party chats.
type ToolResponse struct {
	Type       MessageType `json:"type"`
	ToolCallID string      `json:"tool_call_id"`
	Content    string      `json:"content"`
	ToolName   string      `json:"tool_name,omitempty"`
}

// ToolError reports that a tool invocation failed.
type ToolError struct {
	Type       MessageType `json:"type"`
	ToolCallID string      `json:"tool_call_id"`
	Error      string      `json:"error"`
	Code       string      `json:"code,omitempty"`
	ToolName   string      `json:"tool_name,omitempty"`
}

// SessionStarted reports the server-assigned identifiers and the resolved
// configuration. It is the first frame of every session.
type SessionStarted struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	ChatID      string      `json:"chat_id"`
	ChatGroupID string      `json:"chat_group_id"`
	Config      Config      `json:"config"`
}

// UserMessage is the transcription of caller audio or the echo of a
// UserInput.
type UserMessage struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Text      string      `json:"text"`
}

// AssistantMessage is one chunk of assistant text. Chunks of an utterance
// arrive in emission order; exactly one carries IsFinal.
type AssistantMessage struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Text      string      `json:"text"`
	IsFinal   bool        `json:"is_final"`
}

// AudioOutput is one chunk of synthesized assistant audio. Index increases
// monotonically within an utterance so consumers can reassemble it.
type AudioOutput struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Data      string      `json:"data"`
	Index     int         `json:"index"`
}

// ToolCall asks the client to run a tool and reply with a ToolResponse or
// ToolError carrying the same ToolCallID.
type ToolCall struct {
	Type       MessageType     `json:"type"`
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// EmotionInference carries expression measurement over recent caller audio.
type EmotionInference struct {
	Type      MessageType `json:"type"`
	Inference Inference   `json:"inference"`
}

// ErrorMessage is a server-reported error. The session may continue; a
// fatal error is followed by a close.
type ErrorMessage struct {
	Type    MessageType     `json:"type"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details,omitempty"`
}

// WarningMessage is advisory and never terminates the session.
type WarningMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

// SessionEnded announces an orderly shutdown initiated by the server.
type SessionEnded struct {
	Type   MessageType     `json:"type"`
	Reason string          `json:"reason"`
	Info   json.RawMessage `json:"info,omitempty"`
}

// Unknown preserves a frame whose type this SDK version does not know.
type Unknown struct {
	Type MessageType
	Raw  json.RawMessage
}

func (SessionSettingsMessage) clientMessageType() MessageType { return TypeSessionSettings }
func (AudioInput) clientMessageType() MessageType             { return TypeAudioInput }
func (UserInput) clientMessageType() MessageType              { return TypeUserInput }
func (AssistantInput) clientMessageType() MessageType         { return TypeAssistantInput }
func (PauseAssistant) clientMessageType() MessageType         { return TypePauseAssistant }
func (ResumeAssistant) clientMessageType() MessageType        { return TypeResumeAssistant }
func (ToolResponse) clientMessageType() MessageType           { return TypeToolResponse }
func (ToolError) clientMessageType() MessageType              { return TypeToolError }

func (SessionStarted) serverMessageType() MessageType   { return TypeSessionStarted }
func (UserMessage) serverMessageType() MessageType      { return TypeUserMessage }
func (AssistantMessage) serverMessageType() MessageType { return TypeAssistantMessage }
func (AudioOutput) serverMessageType() MessageType      { return TypeAudioOutput }
func (ToolCall) serverMessageType() MessageType         { return TypeToolCall }
func (ToolResponse) serverMessageType() MessageType     { return TypeToolResponse }
func (ToolError) serverMessageType() MessageType        { return TypeToolError }
func (EmotionInference) serverMessageType() MessageType { return TypeEmotionInference }
func (ErrorMessage) serverMessageType() MessageType     { return TypeError }
func (WarningMessage) serverMessageType() MessageType   { return TypeWarning }
func (SessionEnded) serverMessageType() MessageType     { return TypeSessionEnded }
func (u Unknown) serverMessageType() MessageType        { return u.Type }

// EncodeClientMessage renders a client message as one wire frame, stamping
// the discriminator so callers never have to set Type themselves.
func EncodeClientMessage(m ClientMessage) ([]byte, error) {
	switch v := m.(type) {
	case SessionSettingsMessage:
		v.Type = TypeSessionSettings
		return json.Marshal(v)
	case AudioInput:
		v.Type = TypeAudioInput
		return json.Marshal(v)
	case UserInput:
		v.Type = TypeUserInput
		return json.Marshal(v)
	case AssistantInput:
		v.Type = TypeAssistantInput
		return json.Marshal(v)
	case PauseAssistant:
		v.Type = TypePauseAssistant
		return json.Marshal(v)
	case ResumeAssistant:
		v.Type = TypeResumeAssistant
		return json.Marshal(v)
	case ToolResponse:
		v.Type = TypeToolResponse
		return json.Marshal(v)
	case ToolError:
		v.Type = TypeToolError
		return json.Marshal(v)
	default:
		return nil, &attune.ValidationError{Message: fmt.Sprintf("unsupported client message %T", m)}
	}
}

// DecodeClientMessage parses a client-originated frame. Unknown types are
// an error here: the client set is closed.
func DecodeClientMessage(raw []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &attune.ProtocolError{Op: "decode frame", Err: err}
	}
	switch env.Type {
	case TypeSessionSettings:
		return decodeAs[SessionSettingsMessage](env.Type, raw)
	case TypeAudioInput:
		return decodeAs[AudioInput](env.Type, raw)
	case TypeUserInput:
		return decodeAs[UserInput](env.Type, raw)
	case TypeAssistantInput:
		return decodeAs[AssistantInput](env.Type, raw)
	case TypePauseAssistant:
		return decodeAs[PauseAssistant](env.Type, raw)
	case TypeResumeAssistant:
		return decodeAs[ResumeAssistant](env.Type, raw)
	case TypeToolResponse:
		return decodeAs[ToolResponse](env.Type, raw)
	case TypeToolError:
		return decodeAs[ToolError](env.Type, raw)
	default:
		return nil, &attune.ProtocolError{Op: "decode frame", Err: fmt.Errorf("unsupported client message type %q", env.Type)}
	}
}

// DecodeServerMessage parses a server-originated frame into its concrete
// variant, or Unknown when the discriminator is unrecognized.
func DecodeServerMessage(raw []byte) (ServerMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &attune.ProtocolError{Op: "decode frame", Err: err}
	}
	switch env.Type {
	case TypeSessionStarted:
		return decodeAs[SessionStarted](env.Type, raw)
	case TypeUserMessage:
		return decodeAs[UserMessage](env.Type, raw)
	case TypeAssistantMessage:
		return decodeAs[AssistantMessage](env.Type, raw)
	case TypeAudioOutput:
		return decodeAs[AudioOutput](env.Type, raw)
	case TypeToolCall:
		return decodeAs[ToolCall](env.Type, raw)
	case TypeToolResponse:
		return decodeAs[ToolResponse](env.Type, raw)
	case TypeToolError:
		return decodeAs[ToolError](env.Type, raw)
	case TypeEmotionInference:
		return decodeAs[EmotionInference](env.Type, raw)
	case TypeError:
		return decodeAs[ErrorMessage](env.Type, raw)
	case TypeWarning:
		return decodeAs[WarningMessage](env.Type, raw)
	case TypeSessionEnded:
		return decodeAs[SessionEnded](env.Type, raw)
	default:
		return Unknown{Type: env.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func decodeAs[T any](typ MessageType, raw []byte) (T, error) {
	var m T
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, &attune.ProtocolError{Op: fmt.Sprintf("decode %s frame", typ), Err: err}
	}
	return m, nil
}
