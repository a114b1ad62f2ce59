package tts_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attune "github.com/attune-ai/attune-go"
	"github.com/attune-ai/attune-go/internal/mockapi"
	"github.com/attune-ai/attune-go/tts"
)

func newTTSStack(t *testing.T) *tts.Client {
	t.Helper()
	srv := httptest.NewServer(mockapi.New(mockapi.Config{}).Router())
	t.Cleanup(srv.Close)

	root, err := attune.NewClient(
		attune.WithAPIKey("integration-key-0123456789abcdef"),
		attune.WithBaseURL(srv.URL),
		attune.WithRetryConfig(attune.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2,
		}),
	)
	require.NoError(t, err)
	return tts.New(root)
}

func TestSynthesizeReturnsPlayableWAV(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().
		UtteranceWithVoice("Good morning, this is a synthesis check.", "Dawn").
		Format(tts.FormatWAV).
		Build()
	require.NoError(t, err)

	resp, err := client.Synthesize(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Generations, 1)
	assert.NotEmpty(t, resp.RequestID)

	gen := resp.Generations[0]
	assert.NotEmpty(t, gen.GenerationID)
	assert.Equal(t, "wav", gen.Encoding)
	assert.Greater(t, gen.DurationMS, 0)

	raw, err := base64.StdEncoding.DecodeString(gen.Data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("RIFF")), "wav output must carry a RIFF header")
	assert.Equal(t, int64(len(raw)), gen.FileSize)
}

func TestSynthesizeMultipleGenerations(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().
		Utterance("Same words, different takes.").
		NumGenerations(3).
		Build()
	require.NoError(t, err)

	resp, err := client.Synthesize(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Generations, 3)

	ids := map[string]bool{}
	for _, gen := range resp.Generations {
		ids[gen.GenerationID] = true
	}
	assert.Len(t, ids, 3, "each take gets its own generation id")
}

func TestSynthesizeRejectsEmptyRequestLocally(t *testing.T) {
	client := newTTSStack(t)

	_, err := client.Synthesize(context.Background(), tts.Request{})
	var ve *attune.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSynthesizeFileStreamsAudioBytes(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().
		Utterance("File endpoint check.").
		Format(tts.FormatWAV).
		Build()
	require.NoError(t, err)

	body, err := client.SynthesizeFile(ctx, req)
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("RIFF")))
}

func TestSynthesizeStreamYieldsOrderedChunks(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().
		Utterance("Streaming synthesis delivers audio chunk by chunk.").
		Format(tts.FormatPCM).
		SampleRate(24000).
		Build()
	require.NoError(t, err)

	stream, err := client.SynthesizeStream(ctx, req)
	require.NoError(t, err)
	defer stream.Close()

	var (
		chunks  []*tts.StreamChunk
		pcmSize int
	)
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
		raw, err := base64.StdEncoding.DecodeString(chunk.Data)
		require.NoError(t, err)
		pcmSize += len(raw)
	}

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index, "chunks arrive in playback order")
		assert.Equal(t, chunks[0].GenerationID, chunk.GenerationID)
		assert.Equal(t, i == len(chunks)-1, chunk.IsFinal)
	}
	assert.Greater(t, pcmSize, 0)
	assert.Zero(t, pcmSize%2, "16-bit samples never split across chunks")
}

func TestSynthesizeStreamFileReturnsRawPCM(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().
		Utterance("Raw stream check.").
		Format(tts.FormatPCM).
		Build()
	require.NoError(t, err)

	body, err := client.SynthesizeStreamFile(ctx, req)
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.False(t, bytes.HasPrefix(raw, []byte("RIFF")), "pcm stream has no container header")
}

func TestVoicesListAndProviderFilter(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	page, err := client.Voices(ctx, "", attune.PageParams{PageSize: 50})
	require.NoError(t, err)
	require.NotEmpty(t, page.Voices)

	names := map[string]bool{}
	for _, v := range page.Voices {
		names[v.Name] = true
		assert.Equal(t, tts.ProviderAttune, v.Provider)
	}
	assert.True(t, names["Dawn"], "library ships with the stock voices")

	custom, err := client.Voices(ctx, tts.ProviderCustomVoice, attune.PageParams{})
	require.NoError(t, err)
	assert.Empty(t, custom.Voices, "no custom voices before any are saved")
}

func TestSaveVoiceLifecycle(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().Utterance("A voice worth keeping.").Build()
	require.NoError(t, err)
	resp, err := client.Synthesize(ctx, req)
	require.NoError(t, err)
	genID := resp.Generations[0].GenerationID

	voice, err := client.SaveVoice(ctx, tts.SaveVoiceRequest{
		GenerationID: genID,
		Name:         "Night Reader",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, voice.ID)
	assert.Equal(t, "Night Reader", voice.Name)
	assert.Equal(t, tts.ProviderCustomVoice, voice.Provider)

	custom, err := client.Voices(ctx, tts.ProviderCustomVoice, attune.PageParams{})
	require.NoError(t, err)
	require.Len(t, custom.Voices, 1)

	var apiErr *attune.APIError
	_, err = client.SaveVoice(ctx, tts.SaveVoiceRequest{GenerationID: genID, Name: "Night Reader"})
	require.ErrorAs(t, err, &apiErr, "duplicate voice names are rejected")
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	_, err = client.SaveVoice(ctx, tts.SaveVoiceRequest{GenerationID: "no-such-gen", Name: "Ghost"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, client.DeleteVoice(ctx, "Night Reader"))
	err = client.DeleteVoice(ctx, "Night Reader")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSynthesizeRetriesInjectedFaults(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().Utterance("Third time lucky.").Build()
	require.NoError(t, err)

	resp, err := client.Synthesize(ctx, req, attune.WithQueryParam("mock_fail", "2"))
	require.NoError(t, err, "two transient failures fit inside the retry budget")
	require.Len(t, resp.Generations, 1)
}

func TestSynthesizeSurfacesRateLimit(t *testing.T) {
	client := newTTSStack(t)
	ctx := context.Background()

	req, err := tts.NewRequestBuilder().Utterance("Slow down.").Build()
	require.NoError(t, err)

	_, err = client.Synthesize(ctx, req,
		attune.WithQueryParam("mock_fail", "5"),
		attune.WithQueryParam("mock_fail_status", "429"),
		attune.WithCallMaxRetries(1),
	)
	var rle *attune.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, time.Second, rle.RetryAfter, "Retry-After header is carried through")
}
