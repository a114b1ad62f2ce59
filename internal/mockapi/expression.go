package mockapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/attune-ai/attune-go/expression"
)

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req expression.JobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(req.URLs) == 0 && len(req.Text) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_argument", "at least one url or text source is required")
		return
	}
	job := s.store.createJob(req)
	respondJSON(w, http.StatusCreated, expression.JobHandle{JobID: job.JobID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	var statuses []expression.JobStatus
	for _, v := range q["status"] {
		statuses = append(statuses, expression.JobStatus(v))
	}
	respondJSON(w, http.StatusOK, s.store.listJobs(limit, statuses))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.store.getJob(id)
	if !ok {
		respondNotFound(w, "job", id)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobPredictions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.store.getJob(id)
	if !ok {
		respondNotFound(w, "job", id)
		return
	}
	if job.State.Status != expression.StatusCompleted {
		respondError(w, http.StatusBadRequest, "job_not_complete",
			"predictions are only available for completed jobs")
		return
	}
	respondJSON(w, http.StatusOK, predictionsForJob(job))
}

// handleJobArtifacts packages the predictions as a zip, the download
// format the platform uses.
func (s *Server) handleJobArtifacts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.store.getJob(id)
	if !ok {
		respondNotFound(w, "job", id)
		return
	}
	if job.State.Status != expression.StatusCompleted {
		respondError(w, http.StatusBadRequest, "job_not_complete",
			"artifacts are only available for completed jobs")
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	addZipJSON(zw, "predictions.json", predictionsForJob(job))
	addZipJSON(zw, "job.json", job)
	if err := zw.Close(); err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="artifacts.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func addZipJSON(zw *zip.Writer, name string, v any) {
	f, err := zw.Create(name)
	if err != nil {
		return
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// predictionsForJob derives deterministic output for every source in the
// request, restricted to the requested models. With no models configured
// the language model runs, matching platform defaults.
func predictionsForJob(job expression.Job) []expression.SourceResult {
	models := job.Request.Models
	if models.Face == nil && models.Language == nil && models.Prosody == nil &&
		models.Burst == nil && models.NER == nil {
		models.Language = &expression.LanguageModel{}
	}

	var out []expression.SourceResult
	for _, u := range job.Request.URLs {
		out = append(out, expression.SourceResult{
			Source:  expression.SourceInfo{Type: "url", URL: u},
			Results: resultsFor("media at "+u, models),
		})
	}
	for _, t := range job.Request.Text {
		out = append(out, expression.SourceResult{
			Source:  expression.SourceInfo{Type: "text", Text: t},
			Results: resultsFor(t, models),
		})
	}
	return out
}

func resultsFor(text string, models expression.Models) expression.ModelResults {
	var res expression.ModelResults
	if models.Language != nil {
		res.Language = languagePredictions(text, models.Language)
	}
	if models.Prosody != nil {
		res.Prosody = prosodyPredictions(text)
	}
	if models.Burst != nil {
		res.Burst = &expression.BurstPredictions{
			Predictions: []expression.BurstPrediction{{
				Time:     expression.TimeRange{BeginMS: 500, EndMS: 700},
				Emotions: emotionsFor(text),
			}},
		}
	}
	if models.NER != nil {
		res.NER = nerPredictions(text)
	}
	if models.Face != nil {
		res.Face = &expression.FacePredictions{
			Grouped: []expression.FaceGroup{{
				ID: "face_0",
				Predictions: []expression.FacePrediction{{
					Frame:    0,
					TimeMS:   0,
					Box:      expression.BoundingBox{X: 120, Y: 80, W: 96, H: 96},
					Prob:     0.98,
					Emotions: emotionsFor(text),
				}},
			}},
		}
	}
	return res
}

func emotionsFor(text string) []expression.EmotionScore {
	names := []string{"calmness", "joy", "interest", "surprise"}
	out := make([]expression.EmotionScore, 0, len(names))
	for _, n := range names {
		out = append(out, expression.EmotionScore{Name: n, Score: scoreText(text, n)})
	}
	return out
}

// languagePredictions scores each word as its own span, the shape the
// word granularity produces.
func languagePredictions(text string, m *expression.LanguageModel) *expression.LanguagePredictions {
	words := strings.Fields(text)
	if len(words) == 0 {
		words = []string{text}
	}
	preds := make([]expression.LanguagePrediction, 0, len(words))
	pos := 0
	for _, word := range words {
		begin := strings.Index(text[pos:], word)
		if begin >= 0 {
			begin += pos
		} else {
			begin = pos
		}
		p := expression.LanguagePrediction{
			Text:     word,
			Position: &expression.TextPosition{Begin: begin, End: begin + len(word)},
			Emotions: emotionsFor(word),
		}
		if m.Sentiment != nil {
			p.Sentiment = []expression.EmotionScore{
				{Name: "positive", Score: scoreText(word, "positive")},
				{Name: "negative", Score: scoreText(word, "negative")},
			}
		}
		if m.Toxicity != nil {
			p.Toxicity = []expression.EmotionScore{
				{Name: "toxic", Score: scoreText(word, "toxic") / 10},
			}
		}
		preds = append(preds, p)
		pos = begin + len(word)
	}
	return &expression.LanguagePredictions{
		Grouped: []expression.LanguageGroup{{ID: "passage_0", Predictions: preds}},
	}
}

func prosodyPredictions(text string) *expression.ProsodyPredictions {
	return &expression.ProsodyPredictions{
		Grouped: []expression.ProsodyGroup{{
			ID: "turn_0",
			Predictions: []expression.ProsodyPrediction{{
				Time:     expression.TimeRange{BeginMS: 0, EndMS: 1500},
				Text:     text,
				Emotions: emotionsFor(text),
			}},
		}},
	}
}

func nerPredictions(text string) *expression.NERPredictions {
	entity := ""
	for _, word := range strings.Fields(text) {
		trimmed := strings.Trim(word, ".,!?")
		if len(trimmed) > 1 && trimmed[0] >= 'A' && trimmed[0] <= 'Z' {
			entity = trimmed
			break
		}
	}
	if entity == "" {
		return &expression.NERPredictions{}
	}
	begin := strings.Index(text, entity)
	return &expression.NERPredictions{
		Predictions: []expression.EntityPrediction{{
			Entity:   entity,
			Position: &expression.TextPosition{Begin: begin, End: begin + len(entity)},
			Emotions: emotionsFor(entity),
		}},
	}
}

// handleExpressionSocket runs the realtime measurement protocol: the
// client's first frame is the model configuration, every later frame is
// data, and each data frame earns one predictions frame.
func (s *Server) handleExpressionSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	write := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_ = ws.SetWriteDeadline(time.Now().Add(chatWriteWait))
		return ws.WriteMessage(websocket.TextMessage, data)
	}

	_ = ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, first, err := ws.ReadMessage()
	if err != nil {
		return
	}
	var cfg struct {
		Models         expression.Models `json:"models"`
		StreamWindowMS int               `json:"stream_window_ms"`
	}
	if err := json.Unmarshal(first, &cfg); err != nil {
		_ = write(expression.StreamError{
			Type:    expression.StreamTypeError,
			Message: "first frame must be the stream configuration",
			Code:    "invalid_config",
		})
		return
	}
	models := cfg.Models
	if models.Face == nil && models.Language == nil && models.Prosody == nil &&
		models.Burst == nil && models.NER == nil {
		models.Language = &expression.LanguageModel{}
	}

	if err := write(expression.JobDetails{
		Type:  expression.StreamTypeJobDetails,
		JobID: uuid.NewString(),
	}); err != nil {
		return
	}

	_ = ws.SetReadDeadline(time.Time{})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			Type string `json:"type"`
			Text string `json:"text"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = write(expression.StreamError{
				Type:    expression.StreamTypeError,
				Message: "malformed data frame",
				Code:    "invalid_payload",
			})
			continue
		}

		switch frame.Type {
		case "text":
			preds := expression.StreamPredictions{}
			if models.Language != nil {
				preds.Language = languagePredictions(frame.Text, models.Language)
			}
			if models.NER != nil {
				preds.NER = nerPredictions(frame.Text)
			}
			if err := write(expression.Predictions{
				Type:        expression.StreamTypePredictions,
				Predictions: preds,
			}); err != nil {
				return
			}
		case "audio":
			preds := expression.StreamPredictions{}
			if models.Prosody != nil {
				preds.Prosody = prosodyPredictions("")
			}
			if models.Burst != nil {
				preds.Burst = &expression.BurstPredictions{
					Predictions: []expression.BurstPrediction{{
						Time:     expression.TimeRange{BeginMS: 0, EndMS: 400},
						Emotions: emotionsFor(frame.Data[:min(len(frame.Data), 32)]),
					}},
				}
			}
			if err := write(expression.Predictions{
				Type:        expression.StreamTypePredictions,
				Predictions: preds,
			}); err != nil {
				return
			}
		case "video_frame":
			preds := expression.StreamPredictions{}
			if models.Face != nil {
				preds.Face = resultsFor(frame.Data[:min(len(frame.Data), 32)], expression.Models{
					Face: models.Face,
				}).Face
			}
			if err := write(expression.Predictions{
				Type:        expression.StreamTypePredictions,
				Predictions: preds,
			}); err != nil {
				return
			}
		default:
			_ = write(expression.StreamWarning{
				Type:    expression.StreamTypeWarning,
				Message: "unrecognized data type " + frame.Type,
			})
		}
	}
}
