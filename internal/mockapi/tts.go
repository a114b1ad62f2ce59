package mockapi

import (
	"encoding/base64"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/attune-ai/attune-go/internal/audio"
	"github.com/attune-ai/attune-go/tts"
)

const defaultSampleRate = 24000

// voiceFreq maps a voice name to a stable tone frequency so different
// voices are audibly distinct.
func voiceFreq(name string) float64 {
	if name == "" {
		name = "default"
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return 220 + float64(h.Sum32()%660)
}

// utteranceDuration scales with text length so longer inputs produce
// longer audio.
func utteranceDuration(text string) time.Duration {
	d := time.Duration(len(text)) * 30 * time.Millisecond
	if d < 200*time.Millisecond {
		d = 200 * time.Millisecond
	}
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

// renderRequest synthesizes one generation's audio for the whole
// request: a tone per utterance, concatenated.
func renderRequest(req *tts.Request) (pcm []byte, sampleRate int, totalMS int) {
	sampleRate = req.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	for _, u := range req.Utterances {
		name := ""
		if u.Voice != nil {
			name = u.Voice.Name
			if name == "" {
				name = u.Voice.ID
			}
		}
		d := utteranceDuration(u.Text)
		totalMS += int(d.Milliseconds())
		pcm = append(pcm, audio.Tone(voiceFreq(name), d, sampleRate)...)
		if u.TrailingSilence > 0 {
			silence := make([]byte, 2*sampleRate*u.TrailingSilence/1000)
			pcm = append(pcm, silence...)
			totalMS += u.TrailingSilence
		}
	}
	return pcm, sampleRate, totalMS
}

func encodeAudio(pcm []byte, sampleRate int, format tts.FormatType) (data []byte, encoding string) {
	if format == tts.FormatPCM {
		return pcm, "pcm"
	}
	wav, _ := audio.EncodeWAV(pcm, sampleRate, 1)
	return wav, "wav"
}

func decodeTTSRequest(w http.ResponseWriter, r *http.Request) (*tts.Request, bool) {
	var req tts.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return nil, false
	}
	if len(req.Utterances) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_argument", "at least one utterance is required")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTTSRequest(w, r)
	if !ok {
		return
	}
	numGen := req.NumGenerations
	if numGen <= 0 {
		numGen = 1
	}
	if numGen > 5 {
		numGen = 5
	}

	format := tts.FormatWAV
	if req.Format != nil {
		format = req.Format.Type
	}

	resp := tts.Response{RequestID: uuid.NewString()}
	for i := 0; i < numGen; i++ {
		pcm, rate, totalMS := renderRequest(req)
		data, encoding := encodeAudio(pcm, rate, format)
		gen := tts.Generation{
			GenerationID: uuid.NewString(),
			Data:         base64.StdEncoding.EncodeToString(data),
			DurationMS:   totalMS,
			FileSize:     int64(len(data)),
			Encoding:     encoding,
		}
		s.store.recordGeneration(gen.GenerationID)
		resp.Generations = append(resp.Generations, gen)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTTSFile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTTSRequest(w, r)
	if !ok {
		return
	}
	format := tts.FormatWAV
	if req.Format != nil {
		format = req.Format.Type
	}
	pcm, rate, _ := renderRequest(req)
	data, encoding := encodeAudio(pcm, rate, format)

	w.Header().Set("Content-Type", "audio/"+encoding)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleTTSStreamJSON streams newline-delimited chunks, splitting each
// utterance's audio into thirds so clients observe incremental frames.
func (s *Server) handleTTSStreamJSON(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTTSRequest(w, r)
	if !ok {
		return
	}
	format := tts.FormatPCM
	if req.Format != nil {
		format = req.Format.Type
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	generationID := uuid.NewString()
	s.store.recordGeneration(generationID)

	index := 0
	for ui, u := range req.Utterances {
		rate := req.SampleRate
		if rate == 0 {
			rate = defaultSampleRate
		}
		name := ""
		if u.Voice != nil {
			name = u.Voice.Name
		}
		d := utteranceDuration(u.Text)
		pcm := audio.Tone(voiceFreq(name), d, rate)
		data, _ := encodeAudio(pcm, rate, format)

		third := (len(data) + 2) / 3
		for off := 0; off < len(data); off += third {
			end := off + third
			if end > len(data) {
				end = len(data)
			}
			chunk := tts.StreamChunk{
				Index:        index,
				GenerationID: generationID,
				Data:         base64.StdEncoding.EncodeToString(data[off:end]),
				DurationMS:   int(d.Milliseconds()) * (end - off) / len(data),
				IsFinal:      ui == len(req.Utterances)-1 && end == len(data),
			}
			if err := enc.Encode(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			index++
		}
	}
}

func (s *Server) handleTTSStreamFile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTTSRequest(w, r)
	if !ok {
		return
	}
	pcm, _, _ := renderRequest(req)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	// Raw PCM in fixed-size slabs.
	const slab = 8 << 10
	for off := 0; off < len(pcm); off += slab {
		end := off + slab
		if end > len(pcm) {
			end = len(pcm)
		}
		if _, err := w.Write(pcm[off:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleListTTSVoices(w http.ResponseWriter, r *http.Request) {
	provider := tts.VoiceProvider(r.URL.Query().Get("provider"))
	voices := s.store.listTTSVoices(provider)
	respondJSON(w, http.StatusOK, paged(r, voices, "voices_page"))
}

func (s *Server) handleSaveTTSVoice(w http.ResponseWriter, r *http.Request) {
	var req tts.SaveVoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.GenerationID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "generation_id and name are required")
		return
	}
	v, problem := s.store.saveTTSVoice(req.GenerationID, req.Name)
	switch problem {
	case "":
		respondJSON(w, http.StatusCreated, v)
	case "unknown generation id":
		respondNotFound(w, "generation", req.GenerationID)
	default:
		respondError(w, http.StatusConflict, "already_exists", problem)
	}
}

func (s *Server) handleDeleteTTSVoice(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "name is required")
		return
	}
	if !s.store.deleteTTSVoice(name) {
		respondNotFound(w, "voice", name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
