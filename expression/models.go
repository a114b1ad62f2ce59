package expression

import (
	"net/url"
	"strconv"
)

// Models selects which measurement models run on submitted media. A nil
// field leaves that model off.
type Models struct {
	Face     *FaceModel     `json:"face,omitempty"`
	Language *LanguageModel `json:"language,omitempty"`
	Prosody  *ProsodyModel  `json:"prosody,omitempty"`
	Burst    *BurstModel    `json:"burst,omitempty"`
	NER      *NERModel      `json:"ner,omitempty"`
}

// FaceModel configures facial expression measurement.
type FaceModel struct {
	IdentifyFaces bool    `json:"identify_faces,omitempty"`
	MinFaceSize   int     `json:"min_face_size,omitempty"`
	FPSPred       float64 `json:"fps_pred,omitempty"`
	ProbThreshold float64 `json:"prob_threshold,omitempty"`
}

// LanguageModel configures emotional language measurement.
type LanguageModel struct {
	Granularity string           `json:"granularity,omitempty"`
	Sentiment   *SentimentConfig `json:"sentiment,omitempty"`
	Toxicity    *ToxicityConfig  `json:"toxicity,omitempty"`
}

// SentimentConfig enables sentiment scoring. It has no knobs yet.
type SentimentConfig struct{}

// ToxicityConfig enables toxicity scoring. It has no knobs yet.
type ToxicityConfig struct{}

// ProsodyModel configures speech prosody measurement.
type ProsodyModel struct {
	Granularity string  `json:"granularity,omitempty"`
	Window      *Window `json:"window,omitempty"`
}

// Window slices audio into overlapping analysis windows, in seconds.
type Window struct {
	Length float64 `json:"length"`
	Step   float64 `json:"step"`
}

// BurstModel configures vocal burst measurement.
type BurstModel struct{}

// NERModel configures named-entity emotion measurement.
type NERModel struct{}

// JobRequest starts a batch measurement job over remote media or raw text.
type JobRequest struct {
	Models      Models   `json:"models"`
	URLs        []string `json:"urls,omitempty"`
	Text        []string `json:"text,omitempty"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Notify      bool     `json:"notify,omitempty"`
}

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	StatusQueued     JobStatus = "QUEUED"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobState tracks a job through its lifecycle. Timestamps are Unix
// milliseconds and zero until the phase is reached.
type JobState struct {
	Status             JobStatus `json:"status"`
	Message            string    `json:"message,omitempty"`
	CreatedTimestampMS int64     `json:"created_timestamp_ms,omitempty"`
	StartedTimestampMS int64     `json:"started_timestamp_ms,omitempty"`
	EndedTimestampMS   int64     `json:"ended_timestamp_ms,omitempty"`
}

// Job is one batch measurement job.
type Job struct {
	JobID   string     `json:"job_id"`
	Request JobRequest `json:"request"`
	State   JobState   `json:"state"`
}

// Done reports whether the job has reached a terminal status.
func (j *Job) Done() bool { return j.State.Status.Terminal() }

// JobHandle is the response to starting a job.
type JobHandle struct {
	JobID string `json:"job_id"`
}

// JobListParams filters the job listing.
type JobListParams struct {
	Limit int
	// Status filters to the given lifecycle states.
	Status []JobStatus
	// When, with TimestampMS, selects jobs created before or after a
	// point in time: "created_before" or "created_after".
	When        string
	TimestampMS int64
	SortBy      string
	Direction   string
}

// Query renders the parameters in wire form.
func (p JobListParams) Query() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	for _, s := range p.Status {
		q.Add("status", string(s))
	}
	if p.When != "" {
		q.Set("when", p.When)
	}
	if p.TimestampMS > 0 {
		q.Set("timestamp_ms", strconv.FormatInt(p.TimestampMS, 10))
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.Direction != "" {
		q.Set("direction", p.Direction)
	}
	return q
}

// EmotionScore is one named emotion with its confidence.
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// TimeRange locates a prediction within media, in milliseconds.
type TimeRange struct {
	BeginMS int64 `json:"begin_ms"`
	EndMS   int64 `json:"end_ms"`
}

// TextPosition locates a prediction within submitted text, in runes.
type TextPosition struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// BoundingBox locates a face within a frame.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// SourceInfo names the media a result came from.
type SourceInfo struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// SourceResult pairs one source with its model output.
type SourceResult struct {
	Source  SourceInfo   `json:"source"`
	Results ModelResults `json:"results"`
}

// ModelResults groups predictions by model. Only requested models are set.
type ModelResults struct {
	Face     *FacePredictions     `json:"face,omitempty"`
	Language *LanguagePredictions `json:"language,omitempty"`
	Prosody  *ProsodyPredictions  `json:"prosody,omitempty"`
	Burst    *BurstPredictions    `json:"burst,omitempty"`
	NER      *NERPredictions      `json:"ner,omitempty"`
}

// FacePredictions groups face output by tracked identity.
type FacePredictions struct {
	Grouped []FaceGroup `json:"grouped_predictions"`
}

// FaceGroup is the frames attributed to one face.
type FaceGroup struct {
	ID          string           `json:"id"`
	Predictions []FacePrediction `json:"predictions"`
}

// FacePrediction is one scored frame.
type FacePrediction struct {
	Frame    int            `json:"frame"`
	TimeMS   int64          `json:"time_ms"`
	Box      BoundingBox    `json:"bbox"`
	Prob     float64        `json:"prob,omitempty"`
	Emotions []EmotionScore `json:"emotions"`
}

// LanguagePredictions groups language output per passage.
type LanguagePredictions struct {
	Grouped []LanguageGroup `json:"grouped_predictions"`
}

// LanguageGroup is the spans of one passage.
type LanguageGroup struct {
	ID          string               `json:"id"`
	Predictions []LanguagePrediction `json:"predictions"`
}

// LanguagePrediction is one scored text span.
type LanguagePrediction struct {
	Text      string         `json:"text"`
	Position  *TextPosition  `json:"position,omitempty"`
	Emotions  []EmotionScore `json:"emotions"`
	Sentiment []EmotionScore `json:"sentiment,omitempty"`
	Toxicity  []EmotionScore `json:"toxicity,omitempty"`
}

// ProsodyPredictions groups prosody output per speaker turn.
type ProsodyPredictions struct {
	Grouped []ProsodyGroup `json:"grouped_predictions"`
}

// ProsodyGroup is the windows of one speaker turn.
type ProsodyGroup struct {
	ID          string              `json:"id"`
	Predictions []ProsodyPrediction `json:"predictions"`
}

// ProsodyPrediction is one scored audio window.
type ProsodyPrediction struct {
	Time     TimeRange      `json:"time"`
	Text     string         `json:"text,omitempty"`
	Emotions []EmotionScore `json:"emotions"`
}

// BurstPredictions lists scored vocal bursts.
type BurstPredictions struct {
	Predictions []BurstPrediction `json:"predictions"`
}

// BurstPrediction is one scored vocal burst.
type BurstPrediction struct {
	Time     TimeRange      `json:"time"`
	Emotions []EmotionScore `json:"emotions"`
}

// NERPredictions lists scored named entities.
type NERPredictions struct {
	Predictions []EntityPrediction `json:"predictions"`
}

// EntityPrediction is one scored entity mention.
type EntityPrediction struct {
	Entity   string         `json:"entity"`
	Position *TextPosition  `json:"position,omitempty"`
	Emotions []EmotionScore `json:"emotions"`
}
