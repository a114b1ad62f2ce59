package evi

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	attune "github.com/attune-ai/attune-go"
)

// Compile-time checks that the tool results travel in both directions.
var (
	_ ClientMessage = ToolResponse{}
	_ ServerMessage = ToolResponse{}
	_ ClientMessage = ToolError{}
	_ ServerMessage = ToolError{}
)

func TestEncodeClientMessageStampsType(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		want MessageType
	}{
		{"user input", UserInput{Text: "hi"}, TypeUserInput},
		{"audio input", AudioInput{Data: "AAA="}, TypeAudioInput},
		{"assistant input", AssistantInput{Text: "say this"}, TypeAssistantInput},
		{"pause", PauseAssistant{}, TypePauseAssistant},
		{"resume", ResumeAssistant{}, TypeResumeAssistant},
		{"session settings", SessionSettingsMessage{}, TypeSessionSettings},
		{"tool response", ToolResponse{ToolCallID: "t1", Content: "ok"}, TypeToolResponse},
		{"tool error", ToolError{ToolCallID: "t1", Error: "boom"}, TypeToolError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := EncodeClientMessage(tc.msg)
			if err != nil {
				t.Fatalf("EncodeClientMessage() error = %v", err)
			}
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("unmarshal envelope: %v", err)
			}
			if env.Type != tc.want {
				t.Fatalf("type = %q, want %q", env.Type, tc.want)
			}
		})
	}
}

func TestEncodeClientMessageOverridesWrongType(t *testing.T) {
	raw, err := EncodeClientMessage(UserInput{Type: "assistant_input", Text: "hi"})
	if err != nil {
		t.Fatalf("EncodeClientMessage() error = %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != TypeUserInput {
		t.Fatalf("type = %q, want %q", env.Type, TypeUserInput)
	}
}

func TestEncodeSessionSettingsNestsSettings(t *testing.T) {
	msg := SessionSettingsMessage{Settings: SessionSettings{
		SystemPrompt: "stay concise",
		LanguageCode: "en",
		Variables:    map[string]string{"name": "Ada"},
	}}
	raw, err := EncodeClientMessage(msg)
	if err != nil {
		t.Fatalf("EncodeClientMessage() error = %v", err)
	}

	var frame map[string]json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	nested, ok := frame["settings"]
	if !ok {
		t.Fatalf("frame %s has no settings object", raw)
	}
	var settings SessionSettings
	if err := json.Unmarshal(nested, &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.SystemPrompt != "stay concise" || settings.LanguageCode != "en" {
		t.Fatalf("settings = %+v", settings)
	}
	if settings.Variables["name"] != "Ada" {
		t.Fatalf("variables = %v", settings.Variables)
	}
}

type bogusClientMessage struct{}

func (bogusClientMessage) clientMessageType() MessageType { return "bogus" }

func TestEncodeClientMessageRejectsUnknownVariant(t *testing.T) {
	_, err := EncodeClientMessage(bogusClientMessage{})
	var ve *attune.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("EncodeClientMessage(bogus) = %v, want *attune.ValidationError", err)
	}
}

func TestDecodeServerMessageVariants(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		check func(t *testing.T, m ServerMessage)
	}{
		{
			name: "session started",
			raw:  `{"type":"session_started","session_id":"s1","chat_id":"c1","chat_group_id":"g1","config":{"id":"cfg1","version":2,"name":"support"}}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(SessionStarted)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.SessionID != "s1" || v.ChatID != "c1" || v.ChatGroupID != "g1" {
					t.Fatalf("ids = %+v", v)
				}
				if v.Config.ID != "cfg1" || v.Config.Version != 2 {
					t.Fatalf("config = %+v", v.Config)
				}
			},
		},
		{
			name: "user message",
			raw:  `{"type":"user_message","message_id":"m1","text":"hello"}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(UserMessage)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.Text != "hello" {
					t.Fatalf("text = %q", v.Text)
				}
			},
		},
		{
			name: "assistant message",
			raw:  `{"type":"assistant_message","message_id":"m2","text":"hi there","is_final":true}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(AssistantMessage)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if !v.IsFinal {
					t.Fatal("is_final not decoded")
				}
			},
		},
		{
			name: "audio output",
			raw:  `{"type":"audio_output","message_id":"m2","data":"AAECAw==","index":3}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(AudioOutput)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.Index != 3 || v.Data != "AAECAw==" {
					t.Fatalf("audio = %+v", v)
				}
			},
		},
		{
			name: "tool call",
			raw:  `{"type":"tool_call","tool_call_id":"t1","name":"get_weather","parameters":{"location":"Kyoto"}}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(ToolCall)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.Name != "get_weather" {
					t.Fatalf("name = %q", v.Name)
				}
				var params struct {
					Location string `json:"location"`
				}
				if err := json.Unmarshal(v.Parameters, &params); err != nil {
					t.Fatalf("parameters: %v", err)
				}
				if params.Location != "Kyoto" {
					t.Fatalf("location = %q", params.Location)
				}
			},
		},
		{
			name: "tool response relay",
			raw:  `{"type":"tool_response","tool_call_id":"t1","content":"sunny"}`,
			check: func(t *testing.T, m ServerMessage) {
				if _, ok := m.(ToolResponse); !ok {
					t.Fatalf("decoded %T", m)
				}
			},
		},
		{
			name: "emotion inference",
			raw:  `{"type":"emotion_inference","inference":{"prosody":{"scores":[{"name":"joy","score":0.81}]}}}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(EmotionInference)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.Inference.Prosody == nil || len(v.Inference.Prosody.Scores) != 1 {
					t.Fatalf("inference = %+v", v.Inference)
				}
				if s := v.Inference.Prosody.Scores[0]; s.Name != "joy" || s.Score != 0.81 {
					t.Fatalf("score = %+v", s)
				}
			},
		},
		{
			name: "error",
			raw:  `{"type":"error","message":"too many sessions","code":"session_limit"}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(ErrorMessage)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.Code != "session_limit" {
					t.Fatalf("code = %q", v.Code)
				}
			},
		},
		{
			name: "warning",
			raw:  `{"type":"warning","message":"audio too quiet"}`,
			check: func(t *testing.T, m ServerMessage) {
				if _, ok := m.(WarningMessage); !ok {
					t.Fatalf("decoded %T", m)
				}
			},
		},
		{
			name: "session ended",
			raw:  `{"type":"session_ended","reason":"inactivity"}`,
			check: func(t *testing.T, m ServerMessage) {
				v, ok := m.(SessionEnded)
				if !ok {
					t.Fatalf("decoded %T", m)
				}
				if v.Reason != "inactivity" {
					t.Fatalf("reason = %q", v.Reason)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DecodeServerMessage([]byte(tc.raw))
			if err != nil {
				t.Fatalf("DecodeServerMessage() error = %v", err)
			}
			tc.check(t, m)
		})
	}
}

func TestDecodeServerMessageUnknownPreservesFrame(t *testing.T) {
	raw := []byte(`{"type":"speaker_diarization","segments":[1,2]}`)
	m, err := DecodeServerMessage(raw)
	if err != nil {
		t.Fatalf("DecodeServerMessage() error = %v", err)
	}
	u, ok := m.(Unknown)
	if !ok {
		t.Fatalf("decoded %T, want Unknown", m)
	}
	if u.Type != "speaker_diarization" {
		t.Fatalf("type = %q", u.Type)
	}
	if string(u.Raw) != string(raw) {
		t.Fatalf("raw = %s", u.Raw)
	}
}

func TestDecodeServerMessageBadJSON(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{"type":`))
	var pe *attune.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("DecodeServerMessage(truncated) = %v, want *attune.ProtocolError", err)
	}
}

func TestDecodeServerMessageFieldMismatch(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{"type":"audio_output","index":"three"}`))
	var pe *attune.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("DecodeServerMessage(bad field) = %v, want *attune.ProtocolError", err)
	}
	if !strings.Contains(err.Error(), "audio_output") {
		t.Fatalf("error should name the frame type: %v", err)
	}
}

func TestDecodeClientMessageVariants(t *testing.T) {
	m, err := DecodeClientMessage([]byte(`{"type":"session_settings","settings":{"system_prompt":"short answers"}}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	v, ok := m.(SessionSettingsMessage)
	if !ok {
		t.Fatalf("decoded %T", m)
	}
	if v.Settings.SystemPrompt != "short answers" {
		t.Fatalf("settings = %+v", v.Settings)
	}

	m, err = DecodeClientMessage([]byte(`{"type":"pause_assistant"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	if _, ok := m.(PauseAssistant); !ok {
		t.Fatalf("decoded %T", m)
	}
}

func TestDecodeClientMessageRejectsServerTypes(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"assistant_message","text":"hi"}`))
	var pe *attune.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("DecodeClientMessage(server frame) = %v, want *attune.ProtocolError", err)
	}
}
