package attune

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testAPIKey = "sk-attune-0123456789abcdef"

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	all := append([]Option{
		WithAPIKey(testAPIKey),
		WithBaseURL(baseURL),
		WithRetryConfig(fastRetryConfig()),
	}, opts...)
	c, err := NewClient(all...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestDoRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "upstream hiccup"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var out struct {
		Status string `json:"status"`
	}
	if err := c.Do(context.Background(), http.MethodGet, "/thing", nil, &out); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if out.Status != "ok" {
		t.Fatalf("status = %q, want %q", out.Status, "ok")
	}
	if calls.Load() != 3 {
		t.Fatalf("attempts = %d, want 3", calls.Load())
	}
}

func TestDoPermanentFailureReturnsImmediately(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "bad input",
			"code":    "invalid_argument",
			"errors":  []map[string]string{{"field": "text", "message": "must not be empty"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Do(context.Background(), http.MethodPost, "/thing", map[string]string{"text": ""}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "bad input" || apiErr.Code != "invalid_argument" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0].Field != "text" {
		t.Fatalf("field errors = %+v", apiErr.Errors)
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d, want 1: 4xx must not be retried", calls.Load())
	}
	if strings.Contains(err.Error(), "attempts") {
		t.Fatalf("permanent failure should not carry the exhaustion prefix: %v", err)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"message": "still down"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil)
	if err == nil {
		t.Fatalf("expected failure after exhausting retries")
	}
	if !strings.Contains(err.Error(), "request failed after 3 attempts") {
		t.Fatalf("error = %v, want exhaustion annotation", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want wrapped *APIError", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("attempts = %d, want 3", calls.Load())
	}
}

func TestDoHonorsRetryAfterHeader(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("slept = %v, want exactly the server-supplied 2s", slept)
	}
	if calls.Load() != 2 {
		t.Fatalf("attempts = %d, want 2", calls.Load())
	}
}

func TestDoBackoffDelaysStayInJitterWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	}
	c := newTestClient(t, srv.URL, WithRetryConfig(cfg))
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil); err == nil {
		t.Fatalf("expected exhaustion")
	}
	if len(slept) != 2 {
		t.Fatalf("delays = %v, want 2 backoffs before the final attempt", slept)
	}
	if slept[0] < 50*time.Millisecond || slept[0] > 150*time.Millisecond {
		t.Fatalf("first delay = %s, want within [50ms, 150ms]", slept[0])
	}
	if slept[1] < 100*time.Millisecond || slept[1] > 300*time.Millisecond {
		t.Fatalf("second delay = %s, want within [100ms, 300ms]", slept[1])
	}
}

func TestDoRateLimitSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithMaxRetries(1))
	err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil)

	var limited *RateLimitError
	if !errors.As(err, &limited) {
		t.Fatalf("error = %v, want wrapped *RateLimitError", err)
	}
	if limited.RetryAfter != 3*time.Second {
		t.Fatalf("RetryAfter = %s, want 3s", limited.RetryAfter)
	}
}

func TestDoSendsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Do(context.Background(), http.MethodPost, "/v0/tts", map[string]string{"k": "v"}, nil,
		WithHeader("X-Debug", "1"),
		WithQueryParam("provider", "CUSTOM_VOICE"),
	)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if h := got.Header.Get("X-Attune-Api-Key"); h != testAPIKey {
		t.Fatalf("X-Attune-Api-Key = %q", h)
	}
	if h := got.Header.Get("User-Agent"); h != "attune-go/"+Version {
		t.Fatalf("User-Agent = %q, want %q", h, "attune-go/"+Version)
	}
	if h := got.Header.Get("Accept"); h != "application/json" {
		t.Fatalf("Accept = %q", h)
	}
	if h := got.Header.Get("Content-Type"); h != "application/json" {
		t.Fatalf("Content-Type = %q", h)
	}
	if h := got.Header.Get("X-Debug"); h != "1" {
		t.Fatalf("X-Debug = %q", h)
	}
	if q := got.URL.Query().Get("provider"); q != "CUSTOM_VOICE" {
		t.Fatalf("provider query = %q", q)
	}
	if string(gotBody) != `{"k":"v"}` {
		t.Fatalf("body = %s", gotBody)
	}
}

func TestDoSendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c, err := NewClient(WithAccessToken("tok-123"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if auth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestDoRaw(t *testing.T) {
	payload := []byte("RIFF....binary audio....")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(payload)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	body, err := c.DoRaw(context.Background(), http.MethodPost, "/v0/tts/file", nil)
	if err != nil {
		t.Fatalf("DoRaw() error = %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("body = %q, want %q", got, payload)
	}
}

func TestDoTimeoutMapsToTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithTimeout(30*time.Millisecond), WithMaxRetries(1))
	err := c.Do(context.Background(), http.MethodGet, "/slow", nil, nil)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want wrapped *TimeoutError", err)
	}
	if te.After != 30*time.Millisecond {
		t.Fatalf("After = %s, want 30ms", te.After)
	}
}

func TestDoParentCancellationWinsOverRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastRetryConfig()
	cfg.InitialBackoff = 10 * time.Second
	cfg.MaxBackoff = 10 * time.Second
	c := newTestClient(t, srv.URL, WithRetryConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := c.Do(ctx, http.MethodGet, "/thing", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestDoPerCallMaxRetriesOverride(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithMaxRetries(1))
	err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil, WithCallMaxRetries(3))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("attempts = %d, want 3 under the per-call budget", calls.Load())
	}
}

func TestDoDecodeFailureIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	var out map[string]any
	err := c.Do(context.Background(), http.MethodGet, "/thing", nil, &out)

	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProtocolError", err)
	}
	if IsRetryable(err) {
		t.Fatalf("decode failures must be permanent")
	}
}

func TestWebSocketURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"https://api.attune.ai", "/v0/evi/chat", "wss://api.attune.ai/v0/evi/chat"},
		{"http://localhost:8642", "/v0/stream/models", "ws://localhost:8642/v0/stream/models"},
	}
	for _, tc := range cases {
		c := newTestClient(t, tc.base)
		if got := c.WebSocketURL(tc.path); got != tc.want {
			t.Fatalf("WebSocketURL(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{" 10 ", 10 * time.Second},
		{"junk", 0},
		{"-1", 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.in); got != tc.want {
			t.Fatalf("parseRetryAfter(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestNewClientRequiresCredential(t *testing.T) {
	_, err := NewClient()
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestSleepContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleepContext() = %v, want context.Canceled", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep error = %v", err)
	}
}
