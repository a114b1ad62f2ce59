package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/attune-ai/attune-go/evi"
)

// Configs.

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paged(r, s.store.listConfigs(), "configs_page"))
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req evi.CreateConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}
	respondJSON(w, http.StatusCreated, s.store.createConfig(req))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, ok := s.store.getConfig(id)
	if !ok {
		respondNotFound(w, "config", id)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.deleteConfig(id) {
		respondNotFound(w, "config", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}
	if !s.store.renameConfig(id, req.Name) {
		respondNotFound(w, "config", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConfigVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versions, ok := s.store.listConfigVersions(id)
	if !ok {
		respondNotFound(w, "config", id)
		return
	}
	respondJSON(w, http.StatusOK, paged(r, versions, "configs_page"))
}

func (s *Server) handleCreateConfigVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req evi.CreateConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	cfg, ok := s.store.addConfigVersion(id, req)
	if !ok {
		respondNotFound(w, "config", id)
		return
	}
	respondJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleGetConfigVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, ok := pathVersion(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid version")
		return
	}
	cfg, ok := s.store.getConfigVersion(id, version)
	if !ok {
		respondNotFound(w, "config version", id)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteConfigVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, ok := pathVersion(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid version")
		return
	}
	if !s.store.deleteConfigVersion(id, version) {
		respondNotFound(w, "config version", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Prompts.

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paged(r, s.store.listPrompts(), "prompts_page"))
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req evi.CreatePromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" || req.Text == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name and text are required")
		return
	}
	respondJSON(w, http.StatusCreated, s.store.createPrompt(req))
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.store.getPrompt(id)
	if !ok {
		respondNotFound(w, "prompt", id)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.deletePrompt(id) {
		respondNotFound(w, "prompt", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenamePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}
	if !s.store.renamePrompt(id, req.Name) {
		respondNotFound(w, "prompt", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPromptVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versions, ok := s.store.listPromptVersions(id)
	if !ok {
		respondNotFound(w, "prompt", id)
		return
	}
	respondJSON(w, http.StatusOK, paged(r, versions, "prompts_page"))
}

func (s *Server) handleCreatePromptVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req evi.CreatePromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	p, ok := s.store.addPromptVersion(id, req)
	if !ok {
		respondNotFound(w, "prompt", id)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPromptVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, ok := pathVersion(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid version")
		return
	}
	p, ok := s.store.getPromptVersion(id, version)
	if !ok {
		respondNotFound(w, "prompt version", id)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePromptVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, ok := pathVersion(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid version")
		return
	}
	if !s.store.deletePromptVersion(id, version) {
		respondNotFound(w, "prompt version", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tools.

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paged(r, s.store.listTools(), "tools_page"))
}

func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	var req evi.CreateToolRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}
	respondJSON(w, http.StatusCreated, s.store.createTool(req))
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.store.getTool(id)
	if !ok {
		respondNotFound(w, "tool", id)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.deleteTool(id) {
		respondNotFound(w, "tool", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}
	if !s.store.renameTool(id, req.Name) {
		respondNotFound(w, "tool", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListToolVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versions, ok := s.store.listToolVersions(id)
	if !ok {
		respondNotFound(w, "tool", id)
		return
	}
	respondJSON(w, http.StatusOK, paged(r, versions, "tools_page"))
}

func (s *Server) handleCreateToolVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req evi.CreateToolRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	t, ok := s.store.addToolVersion(id, req)
	if !ok {
		respondNotFound(w, "tool", id)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetToolVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, ok := pathVersion(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid version")
		return
	}
	t, ok := s.store.getToolVersion(id, version)
	if !ok {
		respondNotFound(w, "tool version", id)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteToolVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, ok := pathVersion(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid version")
		return
	}
	if !s.store.deleteToolVersion(id, version) {
		respondNotFound(w, "tool version", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Custom voices.

func (s *Server) handleListCustomVoices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paged(r, s.store.listCustomVoices(), "custom_voices_page"))
}

func (s *Server) handleCreateCustomVoice(w http.ResponseWriter, r *http.Request) {
	var req evi.CreateCustomVoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Name == "" || req.BaseVoice == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name and base_voice are required")
		return
	}
	respondJSON(w, http.StatusCreated, s.store.createCustomVoice(req))
}

func (s *Server) handleGetCustomVoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := s.store.getCustomVoice(id)
	if !ok {
		respondNotFound(w, "custom voice", id)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateCustomVoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req evi.CreateCustomVoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	v, ok := s.store.updateCustomVoice(id, req)
	if !ok {
		respondNotFound(w, "custom voice", id)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteCustomVoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.deleteCustomVoice(id) {
		respondNotFound(w, "custom voice", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chats and chat groups (read only; records are written by the chat
// socket).

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paged(r, s.store.listChats(), "chats_page"))
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := s.store.getChat(id)
	if !ok {
		respondNotFound(w, "chat", id)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleListChatEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events, ok := s.store.listChatEvents(id)
	if !ok {
		respondNotFound(w, "chat", id)
		return
	}
	page := paged(r, events, "events_page")
	page["total_items"] = len(events)
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleListChatGroups(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paged(r, s.store.listChatGroups(), "chat_groups_page"))
}

func (s *Server) handleGetChatGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, ok := s.store.getChatGroup(id)
	if !ok {
		respondNotFound(w, "chat group", id)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleListGroupChats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chats, ok := s.store.listGroupChats(id)
	if !ok {
		respondNotFound(w, "chat group", id)
		return
	}
	respondJSON(w, http.StatusOK, paged(r, chats, "chats_page"))
}
