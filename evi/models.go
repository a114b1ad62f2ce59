package evi

import "time"

// AudioEncoding identifies the PCM encoding of chat audio.
type AudioEncoding string

const (
	EncodingLinear16 AudioEncoding = "linear16"
	EncodingMulaw    AudioEncoding = "mulaw"
)

// AudioFormat selects the container for assistant audio.
type AudioFormat string

const (
	AudioFormatRaw AudioFormat = "raw"
	AudioFormatWAV AudioFormat = "wav"
	AudioFormatMP3 AudioFormat = "mp3"
)

// AudioSettings describes both directions of chat audio.
type AudioSettings struct {
	InputEncoding   AudioEncoding `json:"input_encoding,omitempty"`
	InputSampleRate int           `json:"input_sample_rate,omitempty"`
	OutputFormat    AudioFormat   `json:"output_format,omitempty"`
	Channels        int           `json:"channels,omitempty"`
}

// ContextType controls how injected context persists across turns.
type ContextType string

const (
	ContextPersistent ContextType = "persistent"
	ContextTemporary  ContextType = "temporary"
)

// Context is conversational context injected into the session.
type Context struct {
	Type ContextType `json:"type,omitempty"`
	Text string      `json:"text"`
}

// BuiltinTool enables a platform-hosted tool for the session.
type BuiltinTool struct {
	Name     string `json:"name"`
	Fallback string `json:"fallback_content,omitempty"`
}

// SessionSettings tunes a live session without touching stored configs.
// Zero fields leave the server defaults in place.
type SessionSettings struct {
	SystemPrompt string            `json:"system_prompt,omitempty"`
	Audio        *AudioSettings    `json:"audio,omitempty"`
	Context      *Context          `json:"context,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
	Tools        []string          `json:"tools,omitempty"`
	BuiltinTools []BuiltinTool     `json:"builtin_tools,omitempty"`
	LanguageCode string            `json:"language_code,omitempty"`
}

// PromptSpec references a stored prompt from a config.
type PromptSpec struct {
	ID      string `json:"id,omitempty"`
	Version *int   `json:"version,omitempty"`
	Text    string `json:"text,omitempty"`
}

// VoiceSpec selects the assistant voice for a config.
type VoiceSpec struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Provider string  `json:"provider,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`
}

// LanguageModelSpec selects the reasoning model behind the assistant.
type LanguageModelSpec struct {
	Provider    string  `json:"model_provider,omitempty"`
	Resource    string  `json:"model_resource,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ToolSpec references a stored tool from a config.
type ToolSpec struct {
	ID      string `json:"id,omitempty"`
	Version *int   `json:"version,omitempty"`
}

// EventMessagesSpec configures canned messages for session events.
type EventMessagesSpec struct {
	OnNewChat     *EventMessage `json:"on_new_chat,omitempty"`
	OnInactivity  *EventMessage `json:"on_inactivity_timeout,omitempty"`
	OnMaxDuration *EventMessage `json:"on_max_duration_timeout,omitempty"`
	OnDisconnect  *EventMessage `json:"on_disconnect_resume,omitempty"`
}

// EventMessage is one canned event message.
type EventMessage struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text,omitempty"`
}

// TimeoutsSpec bounds session lifetime.
type TimeoutsSpec struct {
	Inactivity  *TimeoutSpec `json:"inactivity,omitempty"`
	MaxDuration *TimeoutSpec `json:"max_duration,omitempty"`
}

// TimeoutSpec is one timeout bound in seconds.
type TimeoutSpec struct {
	Enabled  bool `json:"enabled"`
	Duration int  `json:"duration_secs,omitempty"`
}

// Config is one stored version of an EVI configuration.
type Config struct {
	ID            string             `json:"id"`
	Version       int                `json:"version"`
	Name          string             `json:"name"`
	Description   string             `json:"version_description,omitempty"`
	Prompt        *PromptSpec        `json:"prompt,omitempty"`
	Voice         *VoiceSpec         `json:"voice,omitempty"`
	LanguageModel *LanguageModelSpec `json:"language_model,omitempty"`
	Tools         []ToolSpec         `json:"tools,omitempty"`
	BuiltinTools  []BuiltinTool      `json:"builtin_tools,omitempty"`
	EventMessages *EventMessagesSpec `json:"event_messages,omitempty"`
	Timeouts      *TimeoutsSpec      `json:"timeouts,omitempty"`
	CreatedAt     *time.Time         `json:"created_at,omitempty"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
}

// Prompt is one stored version of a system prompt.
type Prompt struct {
	ID          string     `json:"id"`
	Version     int        `json:"version"`
	Name        string     `json:"name"`
	Description string     `json:"version_description,omitempty"`
	Text        string     `json:"text"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Tool is one stored version of a user-defined tool. Parameters is a JSON
// Schema describing the tool's arguments.
type Tool struct {
	ID          string     `json:"id"`
	Version     int        `json:"version"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Parameters  string     `json:"parameters"`
	Fallback    string     `json:"fallback_content,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// VoiceParameters shapes a custom voice.
type VoiceParameters struct {
	Gender        float64 `json:"gender,omitempty"`
	Assertiveness float64 `json:"assertiveness,omitempty"`
	Buoyancy      float64 `json:"buoyancy,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Enthusiasm    float64 `json:"enthusiasm,omitempty"`
	Nasality      float64 `json:"nasality,omitempty"`
	Relaxedness   float64 `json:"relaxedness,omitempty"`
	Smoothness    float64 `json:"smoothness,omitempty"`
	Tepidity      float64 `json:"tepidity,omitempty"`
	Tightness     float64 `json:"tightness,omitempty"`
}

// CustomVoice is a stored custom voice.
type CustomVoice struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	BaseVoice      string           `json:"base_voice"`
	ParameterModel string           `json:"parameter_model,omitempty"`
	Parameters     *VoiceParameters `json:"parameters,omitempty"`
	CreatedAt      *time.Time       `json:"created_at,omitempty"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

// ChatStatus is the lifecycle state of a recorded chat.
type ChatStatus string

const (
	ChatActive      ChatStatus = "ACTIVE"
	ChatUserEnded   ChatStatus = "USER_ENDED"
	ChatUserTimeout ChatStatus = "USER_TIMEOUT"
	ChatError       ChatStatus = "ERROR"
)

// Chat is one recorded chat session.
type Chat struct {
	ID          string     `json:"id"`
	ChatGroupID string     `json:"chat_group_id"`
	Status      ChatStatus `json:"status"`
	StartTS     int64      `json:"start_timestamp"`
	EndTS       int64      `json:"end_timestamp,omitempty"`
	ConfigID    string     `json:"config_id,omitempty"`
	Metadata    string     `json:"metadata,omitempty"`
}

// ChatGroup threads resumable chats together.
type ChatGroup struct {
	ID             string `json:"id"`
	FirstStartTS   int64  `json:"first_start_timestamp"`
	MostRecentTS   int64  `json:"most_recent_start_timestamp"`
	MostRecentChat string `json:"most_recent_chat_id,omitempty"`
	NumChats       int    `json:"num_chats"`
	Active         bool   `json:"active,omitempty"`
}

// ChatEvent is one recorded event of a chat transcript.
type ChatEvent struct {
	ID        string `json:"id"`
	ChatID    string `json:"chat_id"`
	Timestamp int64  `json:"timestamp"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	Text      string `json:"message_text,omitempty"`
	Metadata  string `json:"emotion_features,omitempty"`
}

// EmotionScore is one named emotion with its confidence.
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Prosody carries prosody model output for a stretch of speech.
type Prosody struct {
	Scores []EmotionScore `json:"scores"`
}

// Inference is the expression measurement attached to chat messages.
type Inference struct {
	Prosody *Prosody `json:"prosody,omitempty"`
}

// Paged envelopes returned by the CRUD list endpoints.

type ConfigsPage struct {
	PageNumber int      `json:"page_number"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	Configs    []Config `json:"configs_page"`
}

type PromptsPage struct {
	PageNumber int      `json:"page_number"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	Prompts    []Prompt `json:"prompts_page"`
}

type ToolsPage struct {
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
	Tools      []Tool `json:"tools_page"`
}

type CustomVoicesPage struct {
	PageNumber   int           `json:"page_number"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
	CustomVoices []CustomVoice `json:"custom_voices_page"`
}

type ChatsPage struct {
	PageNumber          int    `json:"page_number"`
	PageSize            int    `json:"page_size"`
	TotalPages          int    `json:"total_pages"`
	PaginationDirection string `json:"pagination_direction,omitempty"`
	Chats               []Chat `json:"chats_page"`
}

type ChatGroupsPage struct {
	PageNumber int         `json:"page_number"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	ChatGroups []ChatGroup `json:"chat_groups_page"`
}

type ChatEventsPage struct {
	PageNumber int         `json:"page_number"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	TotalItems int64       `json:"total_items,omitempty"`
	Events     []ChatEvent `json:"events_page"`
}
