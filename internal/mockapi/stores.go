package mockapi

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attune-ai/attune-go/evi"
	"github.com/attune-ai/attune-go/expression"
	"github.com/attune-ai/attune-go/tts"
)

// versioned stores one resource family whose entries accrete versions, the
// way configs, prompts and tools do. Version numbers are stable across
// deletes.
type versioned[T any] struct {
	byID  map[string][]entry[T]
	nextV map[string]int
	order []string
}

type entry[T any] struct {
	version int
	item    T
}

func newVersioned[T any]() *versioned[T] {
	return &versioned[T]{byID: make(map[string][]entry[T]), nextV: make(map[string]int)}
}

func (v *versioned[T]) create(id string, build func(version int) T) T {
	item := build(0)
	v.byID[id] = []entry[T]{{version: 0, item: item}}
	v.nextV[id] = 1
	v.order = append(v.order, id)
	return item
}

func (v *versioned[T]) add(id string, build func(version int) T) (T, bool) {
	es, ok := v.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	n := v.nextV[id]
	item := build(n)
	v.byID[id] = append(es, entry[T]{version: n, item: item})
	v.nextV[id] = n + 1
	return item, true
}

func (v *versioned[T]) latest(id string) (T, bool) {
	es, ok := v.byID[id]
	if !ok || len(es) == 0 {
		var zero T
		return zero, false
	}
	return es[len(es)-1].item, true
}

func (v *versioned[T]) version(id string, n int) (T, bool) {
	for _, e := range v.byID[id] {
		if e.version == n {
			return e.item, true
		}
	}
	var zero T
	return zero, false
}

func (v *versioned[T]) versions(id string) ([]T, bool) {
	es, ok := v.byID[id]
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(es))
	for _, e := range es {
		out = append(out, e.item)
	}
	return out, true
}

func (v *versioned[T]) delete(id string) bool {
	if _, ok := v.byID[id]; !ok {
		return false
	}
	delete(v.byID, id)
	delete(v.nextV, id)
	for i, o := range v.order {
		if o == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	return true
}

func (v *versioned[T]) deleteVersion(id string, n int) bool {
	es, ok := v.byID[id]
	if !ok {
		return false
	}
	for i, e := range es {
		if e.version == n {
			v.byID[id] = append(es[:i], es[i+1:]...)
			if len(v.byID[id]) == 0 {
				v.delete(id)
			}
			return true
		}
	}
	return false
}

func (v *versioned[T]) mutateAll(id string, f func(T) T) bool {
	es, ok := v.byID[id]
	if !ok {
		return false
	}
	for i := range es {
		es[i].item = f(es[i].item)
	}
	return true
}

func (v *versioned[T]) list() []T {
	out := make([]T, 0, len(v.order))
	for _, id := range v.order {
		if item, ok := v.latest(id); ok {
			out = append(out, item)
		}
	}
	return out
}

type chatRecord struct {
	chat   evi.Chat
	events []evi.ChatEvent
}

type jobRecord struct {
	job     expression.Job
	created time.Time
}

// Job phases advance on the wall clock so polling clients observe the full
// lifecycle without the mock needing timers.
const (
	jobStartAfter  = 50 * time.Millisecond
	jobFinishAfter = 150 * time.Millisecond
)

func (r *jobRecord) snapshot(now time.Time) expression.Job {
	job := r.job
	elapsed := now.Sub(r.created)
	switch {
	case elapsed >= jobFinishAfter:
		job.State.Status = expression.StatusCompleted
		job.State.StartedTimestampMS = r.created.Add(jobStartAfter).UnixMilli()
		job.State.EndedTimestampMS = r.created.Add(jobFinishAfter).UnixMilli()
	case elapsed >= jobStartAfter:
		job.State.Status = expression.StatusInProgress
		job.State.StartedTimestampMS = r.created.Add(jobStartAfter).UnixMilli()
	}
	return job
}

// store is the mock platform's state. All access goes through its methods;
// the mutex is never exposed.
type store struct {
	mu sync.Mutex

	configs *versioned[evi.Config]
	prompts *versioned[evi.Prompt]
	tools   *versioned[evi.Tool]

	customVoices map[string]evi.CustomVoice
	voiceOrder   []string

	ttsVoices   map[string]tts.Voice
	ttsOrder    []string
	generations map[string]struct{}

	chats      map[string]*chatRecord
	chatOrder  []string
	chatGroups map[string]*evi.ChatGroup
	groupOrder []string

	jobs     map[string]*jobRecord
	jobOrder []string
}

func newStore() *store {
	st := &store{
		configs:      newVersioned[evi.Config](),
		prompts:      newVersioned[evi.Prompt](),
		tools:        newVersioned[evi.Tool](),
		customVoices: make(map[string]evi.CustomVoice),
		ttsVoices:    make(map[string]tts.Voice),
		generations:  make(map[string]struct{}),
		chats:        make(map[string]*chatRecord),
		chatGroups:   make(map[string]*evi.ChatGroup),
		jobs:         make(map[string]*jobRecord),
	}
	for _, name := range []string{"Dawn", "Ridge", "Lumen", "Vesper"} {
		v := tts.Voice{ID: uuid.NewString(), Name: name, Provider: tts.ProviderAttune}
		st.ttsVoices[name] = v
		st.ttsOrder = append(st.ttsOrder, name)
	}
	return st
}

func nowUTC() *time.Time {
	t := time.Now().UTC()
	return &t
}

// Configs.

func (st *store) createConfig(req evi.CreateConfigRequest) evi.Config {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := uuid.NewString()
	return st.configs.create(id, func(version int) evi.Config {
		return configFromRequest(id, version, req)
	})
}

func (st *store) addConfigVersion(id string, req evi.CreateConfigRequest) (evi.Config, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.add(id, func(version int) evi.Config {
		return configFromRequest(id, version, req)
	})
}

func configFromRequest(id string, version int, req evi.CreateConfigRequest) evi.Config {
	now := nowUTC()
	return evi.Config{
		ID:            id,
		Version:       version,
		Name:          req.Name,
		Description:   req.Description,
		Prompt:        req.Prompt,
		Voice:         req.Voice,
		LanguageModel: req.LanguageModel,
		Tools:         req.Tools,
		BuiltinTools:  req.BuiltinTools,
		EventMessages: req.EventMessages,
		Timeouts:      req.Timeouts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (st *store) getConfig(id string) (evi.Config, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.latest(id)
}

func (st *store) getConfigVersion(id string, version int) (evi.Config, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.version(id, version)
}

func (st *store) listConfigs() []evi.Config {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.list()
}

func (st *store) listConfigVersions(id string) ([]evi.Config, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.versions(id)
}

func (st *store) deleteConfig(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.delete(id)
}

func (st *store) deleteConfigVersion(id string, version int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.deleteVersion(id, version)
}

func (st *store) renameConfig(id, name string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.configs.mutateAll(id, func(c evi.Config) evi.Config {
		c.Name = name
		c.UpdatedAt = nowUTC()
		return c
	})
}

// Prompts.

func (st *store) createPrompt(req evi.CreatePromptRequest) evi.Prompt {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := uuid.NewString()
	return st.prompts.create(id, func(version int) evi.Prompt {
		return promptFromRequest(id, version, req)
	})
}

func (st *store) addPromptVersion(id string, req evi.CreatePromptRequest) (evi.Prompt, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.add(id, func(version int) evi.Prompt {
		return promptFromRequest(id, version, req)
	})
}

func promptFromRequest(id string, version int, req evi.CreatePromptRequest) evi.Prompt {
	now := nowUTC()
	return evi.Prompt{
		ID:          id,
		Version:     version,
		Name:        req.Name,
		Description: req.Description,
		Text:        req.Text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (st *store) getPrompt(id string) (evi.Prompt, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.latest(id)
}

func (st *store) getPromptVersion(id string, version int) (evi.Prompt, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.version(id, version)
}

func (st *store) listPrompts() []evi.Prompt {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.list()
}

func (st *store) listPromptVersions(id string) ([]evi.Prompt, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.versions(id)
}

func (st *store) deletePrompt(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.delete(id)
}

func (st *store) deletePromptVersion(id string, version int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.deleteVersion(id, version)
}

func (st *store) renamePrompt(id, name string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompts.mutateAll(id, func(p evi.Prompt) evi.Prompt {
		p.Name = name
		p.UpdatedAt = nowUTC()
		return p
	})
}

// Tools.

func (st *store) createTool(req evi.CreateToolRequest) evi.Tool {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := uuid.NewString()
	return st.tools.create(id, func(version int) evi.Tool {
		return toolFromRequest(id, version, req)
	})
}

func (st *store) addToolVersion(id string, req evi.CreateToolRequest) (evi.Tool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.add(id, func(version int) evi.Tool {
		return toolFromRequest(id, version, req)
	})
}

func toolFromRequest(id string, version int, req evi.CreateToolRequest) evi.Tool {
	now := nowUTC()
	return evi.Tool{
		ID:          id,
		Version:     version,
		Name:        req.Name,
		Description: req.Description,
		Parameters:  req.Parameters,
		Fallback:    req.Fallback,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (st *store) getTool(id string) (evi.Tool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.latest(id)
}

func (st *store) getToolVersion(id string, version int) (evi.Tool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.version(id, version)
}

func (st *store) listTools() []evi.Tool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.list()
}

func (st *store) listToolVersions(id string) ([]evi.Tool, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.versions(id)
}

func (st *store) deleteTool(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.delete(id)
}

func (st *store) deleteToolVersion(id string, version int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.deleteVersion(id, version)
}

func (st *store) renameTool(id, name string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tools.mutateAll(id, func(tl evi.Tool) evi.Tool {
		tl.Name = name
		tl.UpdatedAt = nowUTC()
		return tl
	})
}

// Custom voices.

func (st *store) createCustomVoice(req evi.CreateCustomVoiceRequest) evi.CustomVoice {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := nowUTC()
	v := evi.CustomVoice{
		ID:         uuid.NewString(),
		Name:       req.Name,
		BaseVoice:  req.BaseVoice,
		Parameters: req.Parameters,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	st.customVoices[v.ID] = v
	st.voiceOrder = append(st.voiceOrder, v.ID)
	return v
}

func (st *store) getCustomVoice(id string) (evi.CustomVoice, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	v, ok := st.customVoices[id]
	return v, ok
}

func (st *store) updateCustomVoice(id string, req evi.CreateCustomVoiceRequest) (evi.CustomVoice, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	v, ok := st.customVoices[id]
	if !ok {
		return evi.CustomVoice{}, false
	}
	v.Name = req.Name
	if req.BaseVoice != "" {
		v.BaseVoice = req.BaseVoice
	}
	v.Parameters = req.Parameters
	v.UpdatedAt = nowUTC()
	st.customVoices[id] = v
	return v, true
}

func (st *store) deleteCustomVoice(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.customVoices[id]; !ok {
		return false
	}
	delete(st.customVoices, id)
	for i, o := range st.voiceOrder {
		if o == id {
			st.voiceOrder = append(st.voiceOrder[:i], st.voiceOrder[i+1:]...)
			break
		}
	}
	return true
}

func (st *store) listCustomVoices() []evi.CustomVoice {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]evi.CustomVoice, 0, len(st.voiceOrder))
	for _, id := range st.voiceOrder {
		out = append(out, st.customVoices[id])
	}
	return out
}

// TTS voices and generations.

func (st *store) recordGeneration(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.generations[id] = struct{}{}
}

func (st *store) saveTTSVoice(generationID, name string) (tts.Voice, string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.generations[generationID]; !ok {
		return tts.Voice{}, "unknown generation id"
	}
	if _, ok := st.ttsVoices[name]; ok {
		return tts.Voice{}, "voice name already in use"
	}
	v := tts.Voice{ID: uuid.NewString(), Name: name, Provider: tts.ProviderCustomVoice}
	st.ttsVoices[name] = v
	st.ttsOrder = append(st.ttsOrder, name)
	return v, ""
}

func (st *store) deleteTTSVoice(name string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.ttsVoices[name]; !ok {
		return false
	}
	delete(st.ttsVoices, name)
	for i, o := range st.ttsOrder {
		if o == name {
			st.ttsOrder = append(st.ttsOrder[:i], st.ttsOrder[i+1:]...)
			break
		}
	}
	return true
}

func (st *store) listTTSVoices(provider tts.VoiceProvider) []tts.Voice {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]tts.Voice, 0, len(st.ttsOrder))
	for _, name := range st.ttsOrder {
		v := st.ttsVoices[name]
		if provider != "" && v.Provider != provider {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Chats.

func (st *store) startChat(configID, resumedGroupID string) evi.Chat {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now().UTC()

	groupID := resumedGroupID
	if g, ok := st.chatGroups[groupID]; ok {
		g.MostRecentTS = now.UnixMilli()
		g.NumChats++
		g.Active = true
	} else {
		groupID = uuid.NewString()
		st.chatGroups[groupID] = &evi.ChatGroup{
			ID:           groupID,
			FirstStartTS: now.UnixMilli(),
			MostRecentTS: now.UnixMilli(),
			NumChats:     1,
			Active:       true,
		}
		st.groupOrder = append(st.groupOrder, groupID)
	}

	chat := evi.Chat{
		ID:          uuid.NewString(),
		ChatGroupID: groupID,
		Status:      evi.ChatActive,
		StartTS:     now.UnixMilli(),
		ConfigID:    configID,
	}
	st.chats[chat.ID] = &chatRecord{chat: chat}
	st.chatOrder = append(st.chatOrder, chat.ID)
	st.chatGroups[groupID].MostRecentChat = chat.ID
	return chat
}

func (st *store) appendChatEvent(chatID, role, typ, text string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.chats[chatID]
	if !ok {
		return
	}
	rec.events = append(rec.events, evi.ChatEvent{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Timestamp: time.Now().UTC().UnixMilli(),
		Role:      role,
		Type:      typ,
		Text:      text,
	})
}

func (st *store) endChat(chatID string, status evi.ChatStatus) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.chats[chatID]
	if !ok {
		return
	}
	rec.chat.Status = status
	rec.chat.EndTS = time.Now().UTC().UnixMilli()
	if g, ok := st.chatGroups[rec.chat.ChatGroupID]; ok {
		g.Active = false
	}
}

func (st *store) getChat(id string) (evi.Chat, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.chats[id]
	if !ok {
		return evi.Chat{}, false
	}
	return rec.chat, true
}

func (st *store) listChats() []evi.Chat {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]evi.Chat, 0, len(st.chatOrder))
	for _, id := range st.chatOrder {
		out = append(out, st.chats[id].chat)
	}
	return out
}

func (st *store) listChatEvents(chatID string) ([]evi.ChatEvent, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.chats[chatID]
	if !ok {
		return nil, false
	}
	return append([]evi.ChatEvent(nil), rec.events...), true
}

func (st *store) getChatGroup(id string) (evi.ChatGroup, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, ok := st.chatGroups[id]
	if !ok {
		return evi.ChatGroup{}, false
	}
	return *g, true
}

func (st *store) listChatGroups() []evi.ChatGroup {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]evi.ChatGroup, 0, len(st.groupOrder))
	for _, id := range st.groupOrder {
		out = append(out, *st.chatGroups[id])
	}
	return out
}

func (st *store) listGroupChats(groupID string) ([]evi.Chat, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.chatGroups[groupID]; !ok {
		return nil, false
	}
	out := make([]evi.Chat, 0)
	for _, id := range st.chatOrder {
		if st.chats[id].chat.ChatGroupID == groupID {
			out = append(out, st.chats[id].chat)
		}
	}
	return out, true
}

// Jobs.

func (st *store) createJob(req expression.JobRequest) expression.Job {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now().UTC()
	job := expression.Job{
		JobID:   uuid.NewString(),
		Request: req,
		State: expression.JobState{
			Status:             expression.StatusQueued,
			CreatedTimestampMS: now.UnixMilli(),
		},
	}
	st.jobs[job.JobID] = &jobRecord{job: job, created: now}
	st.jobOrder = append(st.jobOrder, job.JobID)
	return job
}

func (st *store) getJob(id string) (expression.Job, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.jobs[id]
	if !ok {
		return expression.Job{}, false
	}
	return rec.snapshot(time.Now().UTC()), true
}

func (st *store) listJobs(limit int, statuses []expression.JobStatus) []expression.Job {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now().UTC()
	out := make([]expression.Job, 0, len(st.jobOrder))
	// Most recent first.
	for i := len(st.jobOrder) - 1; i >= 0; i-- {
		job := st.jobs[st.jobOrder[i]].snapshot(now)
		if len(statuses) > 0 && !containsStatus(statuses, job.State.Status) {
			continue
		}
		out = append(out, job)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func containsStatus(statuses []expression.JobStatus, s expression.JobStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// scoreText derives a stable pseudo-score in (0, 1) from text and an
// emotion name, so repeated runs yield identical predictions.
func scoreText(text, emotion string) float64 {
	h := fnv.New32a()
	fmt.Fprint(h, text, "|", emotion)
	return float64(h.Sum32()%1000)/1250.0 + 0.1
}
