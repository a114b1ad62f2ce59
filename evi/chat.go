package evi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"sync"

	attune "github.com/attune-ai/attune-go"
	"github.com/attune-ai/attune-go/observability"
	"github.com/attune-ai/attune-go/session"
)

const chatPath = "/v0/evi/chat"

// ChatClient opens realtime chat sessions.
type ChatClient struct {
	c *attune.Client
}

// ChatOptions selects how a session is established. All fields are
// optional.
type ChatOptions struct {
	// ConfigID pins the session to a stored config.
	ConfigID string
	// ConfigVersion pins a specific config version; nil means latest.
	ConfigVersion *int
	// ResumedChatGroupID resumes a previous conversation thread.
	ResumedChatGroupID string
	// Settings, when set, travels as the first frame so it always
	// precedes user content on the wire.
	Settings *SessionSettings
}

// Connect dials the chat socket and returns a live session.
func (c *ChatClient) Connect(ctx context.Context, opts ChatOptions) (*ChatSession, error) {
	name, value := c.c.Credential().QueryEncoding()
	q := url.Values{}
	q.Set(name, value)
	if opts.ConfigID != "" {
		q.Set("config_id", opts.ConfigID)
	}
	if opts.ConfigVersion != nil {
		q.Set("config_version", strconv.Itoa(*opts.ConfigVersion))
	}
	if opts.ResumedChatGroupID != "" {
		q.Set("resumed_chat_group_id", opts.ResumedChatGroupID)
	}

	conn, err := session.Dial(ctx, c.c.WebSocketURL(chatPath)+"?"+q.Encode(), session.Options{
		Logger: c.c.Logger(),
	})
	if err != nil {
		return nil, err
	}

	s := &ChatSession{
		conn:    conn,
		metrics: c.c.Metrics(),
	}
	if opts.Settings != nil {
		if err := s.SendSessionSettings(ctx, *opts.Settings); err != nil {
			_ = conn.CloseIdempotent()
			return nil, err
		}
	}
	s.metrics.SessionOpened()
	c.c.Logger().Debug("chat session opened", "config_id", opts.ConfigID)
	return s, nil
}

// ChatSession is one live chat connection. Receive must be driven by a
// single goroutine; send methods may be called from another.
type ChatSession struct {
	conn    *session.Conn
	metrics *observability.Metrics

	mu          sync.Mutex
	sessionID   string
	chatID      string
	chatGroupID string
}

// Receive blocks for the next server message. It returns io.EOF when the
// server ends the session cleanly. A frame that fails to decode fails that
// call only; the session stays usable.
func (s *ChatSession) Receive(ctx context.Context) (ServerMessage, error) {
	raw, err := s.conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := DecodeServerMessage(raw)
	if err != nil {
		return nil, err
	}
	if started, ok := msg.(SessionStarted); ok {
		s.mu.Lock()
		s.sessionID = started.SessionID
		s.chatID = started.ChatID
		s.chatGroupID = started.ChatGroupID
		s.mu.Unlock()
	}
	s.metrics.ObserveWSMessage("inbound", string(msg.serverMessageType()))
	return msg, nil
}

// SendSessionSettings applies settings to the live session.
func (s *ChatSession) SendSessionSettings(ctx context.Context, settings SessionSettings) error {
	return s.send(ctx, SessionSettingsMessage{Settings: settings})
}

// SendAudio transmits one chunk of caller audio. Chunk boundaries are the
// caller's choice; data is base64-encoded on the wire.
func (s *ChatSession) SendAudio(ctx context.Context, pcm []byte) error {
	return s.send(ctx, AudioInput{Data: base64.StdEncoding.EncodeToString(pcm)})
}

// SendUserInput injects caller text as if spoken.
func (s *ChatSession) SendUserInput(ctx context.Context, text string) error {
	return s.send(ctx, UserInput{Text: text})
}

// SendAssistantInput injects text for the assistant to speak verbatim.
func (s *ChatSession) SendAssistantInput(ctx context.Context, text string) error {
	return s.send(ctx, AssistantInput{Text: text})
}

// SendToolResponse answers a pending ToolCall.
func (s *ChatSession) SendToolResponse(ctx context.Context, m ToolResponse) error {
	return s.send(ctx, m)
}

// SendToolError reports a failed tool invocation.
func (s *ChatSession) SendToolError(ctx context.Context, m ToolError) error {
	return s.send(ctx, m)
}

// PauseAssistant suspends assistant replies until resumed.
func (s *ChatSession) PauseAssistant(ctx context.Context) error {
	return s.send(ctx, PauseAssistant{})
}

// ResumeAssistant lifts a pause.
func (s *ChatSession) ResumeAssistant(ctx context.Context) error {
	return s.send(ctx, ResumeAssistant{})
}

func (s *ChatSession) send(ctx context.Context, m ClientMessage) error {
	data, err := EncodeClientMessage(m)
	if err != nil {
		return err
	}
	if err := s.conn.SendText(ctx, data); err != nil {
		return err
	}
	s.metrics.ObserveWSMessage("outbound", string(m.clientMessageType()))
	return nil
}

// SessionID is the server-assigned session identifier, empty until the
// session_started message has been received.
func (s *ChatSession) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ChatID is the chat identifier, empty until session_started.
func (s *ChatSession) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// ChatGroupID threads resumed sessions, empty until session_started.
func (s *ChatSession) ChatGroupID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatGroupID
}

// State reports the connection lifecycle phase.
func (s *ChatSession) State() session.State { return s.conn.State() }

// Close performs the orderly shutdown. A second Close returns
// session.ErrClosed.
func (s *ChatSession) Close() error {
	err := s.conn.Close()
	if !errors.Is(err, session.ErrClosed) {
		s.metrics.SessionClosed()
	}
	return err
}

// CloseIdempotent is Close made safe to defer.
func (s *ChatSession) CloseIdempotent() error {
	err := s.Close()
	if errors.Is(err, session.ErrClosed) {
		return nil
	}
	return err
}
