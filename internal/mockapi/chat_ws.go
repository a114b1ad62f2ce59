package mockapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/attune-ai/attune-go/evi"
	"github.com/attune-ai/attune-go/internal/audio"
)

const chatWriteWait = 5 * time.Second

// chatScript drives one scripted chat session. Replies are deterministic
// functions of the input so tests can assert on them.
type chatScript struct {
	srv    *Server
	ws     *websocket.Conn
	chatID string

	paused      bool
	pendingTool string
	audioFrames int
}

// handleChatSocket runs the EVI chat protocol against a scripted
// assistant. It reads one client message at a time and writes the full
// response sequence before reading the next, so ordering is exact.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	q := r.URL.Query()
	configID := q.Get("config_id")
	cfg, ok := s.store.getConfig(configID)
	if !ok {
		cfg = evi.Config{ID: configID, Name: "mock default"}
		if cfg.ID == "" {
			cfg.ID = "default"
		}
	}

	chat := s.store.startChat(cfg.ID, q.Get("resumed_chat_group_id"))
	sc := &chatScript{srv: s, ws: ws, chatID: chat.ID}

	err = sc.send(evi.SessionStarted{
		Type:        evi.TypeSessionStarted,
		SessionID:   uuid.NewString(),
		ChatID:      chat.ID,
		ChatGroupID: chat.ChatGroupID,
		Config:      cfg,
	})
	if err != nil {
		s.store.endChat(chat.ID, evi.ChatError)
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if isOrderlyWSClose(err) {
				s.store.endChat(chat.ID, evi.ChatUserEnded)
			} else {
				s.store.endChat(chat.ID, evi.ChatError)
			}
			return
		}
		msg, err := evi.DecodeClientMessage(data)
		if err != nil {
			_ = sc.send(evi.ErrorMessage{
				Type:    evi.TypeError,
				Message: err.Error(),
				Code:    "invalid_payload",
			})
			continue
		}
		if done := sc.dispatch(msg); done {
			s.store.endChat(chat.ID, evi.ChatUserEnded)
			return
		}
	}
}

func isOrderlyWSClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}

func (sc *chatScript) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = sc.ws.SetWriteDeadline(time.Now().Add(chatWriteWait))
	return sc.ws.WriteMessage(websocket.TextMessage, data)
}

// dispatch handles one client message. It reports true when the session
// should end from the server side.
func (sc *chatScript) dispatch(msg evi.ClientMessage) bool {
	switch m := msg.(type) {
	case evi.SessionSettingsMessage:
		// Settings are accepted silently, as the platform does.
		return false

	case evi.PauseAssistant:
		sc.paused = true
		return false

	case evi.ResumeAssistant:
		sc.paused = false
		return false

	case evi.UserInput:
		return sc.handleUserText(m.Text)

	case evi.AudioInput:
		sc.audioFrames++
		if sc.audioFrames%5 == 0 {
			return sc.handleUserText("(transcribed audio)")
		}
		return false

	case evi.AssistantInput:
		if !sc.paused {
			sc.assistantTurn(m.Text)
		}
		return false

	case evi.ToolResponse:
		return sc.handleToolResponse(m)

	case evi.ToolError:
		return sc.handleToolError(m)

	default:
		_ = sc.send(evi.WarningMessage{
			Type:    evi.TypeWarning,
			Message: "unhandled message",
		})
		return false
	}
}

func (sc *chatScript) handleUserText(text string) bool {
	sc.echoUser(text)
	if sc.paused {
		return false
	}

	switch {
	case strings.Contains(strings.ToLower(text), "weather"):
		sc.pendingTool = uuid.NewString()
		sc.srv.store.appendChatEvent(sc.chatID, "assistant", "tool_call", "get_weather")
		_ = sc.send(evi.ToolCall{
			Type:       evi.TypeToolCall,
			ToolCallID: sc.pendingTool,
			Name:       "get_weather",
			Parameters: json.RawMessage(`{"location":"San Francisco"}`),
		})
		return false

	case strings.Contains(strings.ToLower(text), "goodbye"):
		sc.assistantTurn("Goodbye for now.")
		_ = sc.send(evi.SessionEnded{
			Type:   evi.TypeSessionEnded,
			Reason: "user request",
		})
		_ = sc.ws.SetWriteDeadline(time.Now().Add(chatWriteWait))
		_ = sc.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
		return true

	default:
		sc.assistantTurn(fmt.Sprintf("I heard you say %q.", text))
		return false
	}
}

// echoUser sends the user_message transcript echo and its emotion
// inference.
func (sc *chatScript) echoUser(text string) {
	sc.srv.store.appendChatEvent(sc.chatID, "user", "user_message", text)
	_ = sc.send(evi.UserMessage{
		Type:      evi.TypeUserMessage,
		MessageID: uuid.NewString(),
		Text:      text,
	})
	_ = sc.send(evi.EmotionInference{
		Type: evi.TypeEmotionInference,
		Inference: evi.Inference{
			Prosody: &evi.Prosody{
				Scores: []evi.EmotionScore{
					{Name: "calmness", Score: scoreText(text, "calmness")},
					{Name: "joy", Score: scoreText(text, "joy")},
					{Name: "interest", Score: scoreText(text, "interest")},
				},
			},
		},
	})
}

// assistantTurn emits the standard assistant sequence: two partials, the
// final text, then two audio chunks tied to the final message id.
func (sc *chatScript) assistantTurn(reply string) {
	words := strings.Fields(reply)
	if len(words) > 2 {
		_ = sc.send(evi.AssistantMessage{
			Type:      evi.TypeAssistantMessage,
			MessageID: uuid.NewString(),
			Text:      strings.Join(words[:len(words)/2], " "),
		})
		_ = sc.send(evi.AssistantMessage{
			Type:      evi.TypeAssistantMessage,
			MessageID: uuid.NewString(),
			Text:      strings.Join(words[:len(words)*3/4], " "),
		})
	}

	finalID := uuid.NewString()
	sc.srv.store.appendChatEvent(sc.chatID, "assistant", "assistant_message", reply)
	_ = sc.send(evi.AssistantMessage{
		Type:      evi.TypeAssistantMessage,
		MessageID: finalID,
		Text:      reply,
		IsFinal:   true,
	})

	wav := audio.ToneWAV(voiceFreq("assistant"), 200*time.Millisecond, defaultSampleRate)
	half := len(wav) / 2
	for i, part := range [][]byte{wav[:half], wav[half:]} {
		_ = sc.send(evi.AudioOutput{
			Type:      evi.TypeAudioOutput,
			MessageID: finalID,
			Data:      base64.StdEncoding.EncodeToString(part),
			Index:     i,
		})
	}
}

func (sc *chatScript) handleToolResponse(m evi.ToolResponse) bool {
	if sc.pendingTool == "" || m.ToolCallID != sc.pendingTool {
		_ = sc.send(evi.WarningMessage{
			Type:    evi.TypeWarning,
			Message: "tool response does not match a pending call",
		})
		return false
	}
	sc.pendingTool = ""
	sc.srv.store.appendChatEvent(sc.chatID, "user", "tool_response", m.Content)
	sc.assistantTurn(fmt.Sprintf("The tool reports: %s.", m.Content))
	return false
}

func (sc *chatScript) handleToolError(m evi.ToolError) bool {
	if sc.pendingTool == "" || m.ToolCallID != sc.pendingTool {
		_ = sc.send(evi.WarningMessage{
			Type:    evi.TypeWarning,
			Message: "tool error does not match a pending call",
		})
		return false
	}
	sc.pendingTool = ""
	sc.srv.store.appendChatEvent(sc.chatID, "user", "tool_error", m.Error)
	sc.assistantTurn("I could not complete that request.")
	return false
}
