// Package mockapi implements an in-process imitation of the Attune
// platform API. It exists so integration tests and local development can
// run against real HTTP and WebSocket surfaces without network access or
// credentials. Behavior is deterministic: audio is synthesized tones,
// chat replies are scripted, and expression predictions are derived from
// the input text.
package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config adjusts the mock server's behavior. The zero value is usable.
type Config struct {
	// Latency is added to every HTTP request before it is handled.
	Latency time.Duration
	// Logger receives request-level debug output. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Server is the mock Attune platform. Mount Router on an httptest.Server
// or a real listener.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	store    *store
	upgrader websocket.Upgrader

	faultMu sync.Mutex
	faults  map[string]int
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		store:  newStore(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		faults: make(map[string]int),
	}
}

// Router returns the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withLatency)
	r.Use(s.withFaults)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/oauth2-cc/token", s.handleToken)

	r.Route("/v0", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/tts", func(r chi.Router) {
			r.Post("/", s.handleTTS)
			r.Post("/file", s.handleTTSFile)
			r.Post("/stream/json", s.handleTTSStreamJSON)
			r.Post("/stream/file", s.handleTTSStreamFile)
			r.Get("/voices", s.handleListTTSVoices)
			r.Post("/voices", s.handleSaveTTSVoice)
			r.Delete("/voices", s.handleDeleteTTSVoice)
		})

		r.Route("/evi", func(r chi.Router) {
			r.Get("/chat", s.handleChatSocket)

			r.Route("/configs", func(r chi.Router) {
				r.Get("/", s.handleListConfigs)
				r.Post("/", s.handleCreateConfig)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetConfig)
					r.Delete("/", s.handleDeleteConfig)
					r.Patch("/", s.handleRenameConfig)
					r.Get("/versions", s.handleListConfigVersions)
					r.Post("/versions", s.handleCreateConfigVersion)
					r.Get("/versions/{version}", s.handleGetConfigVersion)
					r.Delete("/versions/{version}", s.handleDeleteConfigVersion)
				})
			})

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/", s.handleListPrompts)
				r.Post("/", s.handleCreatePrompt)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPrompt)
					r.Delete("/", s.handleDeletePrompt)
					r.Patch("/", s.handleRenamePrompt)
					r.Get("/versions", s.handleListPromptVersions)
					r.Post("/versions", s.handleCreatePromptVersion)
					r.Get("/versions/{version}", s.handleGetPromptVersion)
					r.Delete("/versions/{version}", s.handleDeletePromptVersion)
				})
			})

			r.Route("/tools", func(r chi.Router) {
				r.Get("/", s.handleListTools)
				r.Post("/", s.handleCreateTool)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTool)
					r.Delete("/", s.handleDeleteTool)
					r.Patch("/", s.handleRenameTool)
					r.Get("/versions", s.handleListToolVersions)
					r.Post("/versions", s.handleCreateToolVersion)
					r.Get("/versions/{version}", s.handleGetToolVersion)
					r.Delete("/versions/{version}", s.handleDeleteToolVersion)
				})
			})

			r.Route("/custom_voices", func(r chi.Router) {
				r.Get("/", s.handleListCustomVoices)
				r.Post("/", s.handleCreateCustomVoice)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCustomVoice)
					r.Put("/", s.handleUpdateCustomVoice)
					r.Delete("/", s.handleDeleteCustomVoice)
				})
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", s.handleListChats)
				r.Get("/{id}", s.handleGetChat)
				r.Get("/{id}/events", s.handleListChatEvents)
			})

			r.Route("/chat_groups", func(r chi.Router) {
				r.Get("/", s.handleListChatGroups)
				r.Get("/{id}", s.handleGetChatGroup)
				r.Get("/{id}/chats", s.handleListGroupChats)
			})
		})

		r.Route("/batch/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleStartJob)
			r.Get("/{id}", s.handleGetJob)
			r.Get("/{id}/predictions", s.handleJobPredictions)
			r.Get("/{id}/artifacts", s.handleJobArtifacts)
		})

		r.Get("/stream/models", s.handleExpressionSocket)
	})
	return r
}

func (s *Server) withLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Latency > 0 {
			time.Sleep(s.cfg.Latency)
		}
		next.ServeHTTP(w, r)
	})
}

// withFaults injects failures on demand. A request carrying
// ?mock_fail=N fails its first N attempts with 503 (or the status named
// by mock_fail_status); attempts are counted per fault key so retried
// requests eventually succeed.
func (s *Server) withFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		failN, err := strconv.Atoi(q.Get("mock_fail"))
		if err != nil || failN <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := q.Get("mock_fail_key")
		if key == "" {
			key = r.Method + " " + r.URL.Path
		}

		s.faultMu.Lock()
		s.faults[key]++
		n := s.faults[key]
		s.faultMu.Unlock()
		if n > failN {
			next.ServeHTTP(w, r)
			return
		}

		status := http.StatusServiceUnavailable
		if v, err := strconv.Atoi(q.Get("mock_fail_status")); err == nil && v >= 400 {
			status = v
		}
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		s.logger.Debug("injecting fault", "path", r.URL.Path, "attempt", n, "status", status)
		respondError(w, status, "injected_fault", fmt.Sprintf("injected fault %d of %d", n, failN))
	})
}

// requireAuth accepts any non-empty credential in the places the SDK
// sends them. The mock validates presence, not value.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasCredential(r) {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasCredential(r *http.Request) bool {
	if r.Header.Get("X-Attune-Api-Key") != "" {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return true
	}
	q := r.URL.Query()
	return q.Get("api_key") != "" || q.Get("access_token") != ""
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey    string `json:"api_key"`
		SecretKey string `json:"secret_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.APIKey == "" || req.SecretKey == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid client credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": "mock-" + uuid.NewString(),
		"token_type":   "Bearer",
		"expires_in":   1800,
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the platform error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"message": message, "code": code})
}

func respondNotFound(w http.ResponseWriter, kind, id string) {
	respondError(w, http.StatusNotFound, "not_found", fmt.Sprintf("%s %q not found", kind, id))
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func pathVersion(r *http.Request) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// paged slices items for the requested page and wraps them in the list
// envelope used across the EVI API.
func paged[T any](r *http.Request, items []T, field string) map[string]any {
	number, size := 0, 10
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page_number")); err == nil && v >= 0 {
		number = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		size = v
	}
	if size > 100 {
		size = 100
	}

	totalPages := (len(items) + size - 1) / size
	lo := number * size
	if lo > len(items) {
		lo = len(items)
	}
	hi := lo + size
	if hi > len(items) {
		hi = len(items)
	}
	return map[string]any{
		"page_number": number,
		"page_size":   size,
		"total_pages": totalPages,
		field:         items[lo:hi],
	}
}
