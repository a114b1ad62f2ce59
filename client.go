package attune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/attune-ai/attune-go/observability"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.attune.ai"

// DefaultTimeout is the per-attempt timeout applied when no override is set.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 64 << 10

// Client is the root API client shared by the tts, expression and evi
// subpackages. It owns the request engine: credential attachment, retry
// with classified backoff, response decoding and error mapping.
//
// A Client is safe for concurrent use.
type Client struct {
	baseURL   string
	cred      Credential
	hc        *http.Client
	retry     RetryConfig
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	limiter   *rate.Limiter
	userAgent string

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey authenticates with a static API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.cred = APIKey(key) }
}

// WithAccessToken authenticates with a raw bearer token. The token's
// lifetime is unknown to the client, so Expired never trips; use
// WithCredential with a TokenSource-issued AccessToken to keep expiry
// detection.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.cred = &AccessToken{Token: token, TokenType: "Bearer"} }
}

// WithCredential authenticates with an explicit credential.
func WithCredential(cred Credential) Option {
	return func(c *Client) { c.cred = cred }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the default per-attempt timeout. The deadline covers the
// full exchange including the body read. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithMaxRetries caps the total attempts per call, keeping the rest of the
// retry policy.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.retry.MaxRetries = n }
}

// WithLogger attaches a structured logger. By default the client is silent.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRequestsPerSecond applies a client-side rate limit across all calls.
func WithRequestsPerSecond(n float64) Option {
	return func(c *Client) {
		burst := int(n)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(n), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a Client. A credential is required; everything else has
// production defaults.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   DefaultBaseURL,
		hc:        &http.Client{},
		retry:     DefaultRetryConfig(),
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		userAgent: defaultUserAgent,
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cred == nil {
		return nil, &ConfigError{Message: "no credential: set WithAPIKey, WithAccessToken or WithCredential"}
	}
	return c, nil
}

// BaseURL returns the configured endpoint without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Credential returns the configured credential.
func (c *Client) Credential() Credential { return c.cred }

// Logger returns the configured logger, never nil.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Metrics returns the attached instrumentation, nil when none is set. A nil
// *observability.Metrics is safe to call.
func (c *Client) Metrics() *observability.Metrics { return c.metrics }

// WebSocketURL converts the base URL to its websocket form and appends
// path: https becomes wss, http becomes ws.
func (c *Client) WebSocketURL(path string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}

// Do executes one API call and decodes the JSON response into out. A nil
// out discards the body. Transient failures are retried per the client's
// retry policy; permanent failures return immediately.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	res, err := c.execute(ctx, method, path, body, opts)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxErrorBody))
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &ProtocolError{Op: "decode response body", Err: err}
	}
	return nil
}

// DoRaw executes one API call and returns the raw response body, for audio
// downloads and chunked streams. The caller must close it. The per-attempt
// timeout covers the entire body read; long streams should set
// WithCallTimeout accordingly.
func (c *Client) DoRaw(ctx context.Context, method, path string, body any, opts ...CallOption) (io.ReadCloser, error) {
	res, err := c.execute(ctx, method, path, body, opts)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Client) execute(ctx context.Context, method, path string, body any, opts []CallOption) (*http.Response, error) {
	var ro RequestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("encode request body: %v", err)}
		}
	}

	cfg := c.retry
	if ro.MaxRetries > 0 {
		cfg.MaxRetries = ro.MaxRetries
	}
	timeout := c.timeout
	if ro.Timeout > 0 {
		timeout = ro.Timeout
	}

	state := newRetryState(cfg, c.now)
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res, err := c.attempt(ctx, method, path, payload, ro, timeout)
		if err == nil {
			return res, nil
		}

		delay, retry := state.Next(err)
		if !retry {
			if IsRetryable(err) {
				return nil, fmt.Errorf("request failed after %d attempts: %w", state.Attempts(), err)
			}
			return nil, err
		}
		c.logger.Warn("retrying request",
			"method", method,
			"path", path,
			"attempt", state.Attempts(),
			"delay", delay,
			"error", err)
		c.metrics.ObserveRetry(method)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, ro RequestOptions, timeout time.Duration) (*http.Response, error) {
	actx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, timeout)
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, c.baseURL+path, bodyReader)
	if err != nil {
		cancel()
		return nil, &ValidationError{Message: fmt.Sprintf("build request: %v", err)}
	}

	name, value := c.cred.HeaderEncoding()
	req.Header.Set(name, value)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range ro.Headers {
		req.Header.Set(k, v)
	}
	if len(ro.Query) > 0 {
		q := req.URL.Query()
		for k, vs := range ro.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		cancel()
		if actx.Err() != nil && ctx.Err() == nil {
			return nil, &TimeoutError{After: timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ue, ok := err.(*url.Error); ok && ue.Timeout() {
			return nil, &TimeoutError{After: timeout}
		}
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}

	c.metrics.ObserveRequest(method, res.StatusCode, time.Since(start))

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		// The per-attempt deadline stays armed until the body is closed.
		res.Body = &cancelBody{rc: res.Body, cancel: cancel}
		return res, nil
	}

	data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	res.Body.Close()
	cancel()
	return nil, decodeAPIError(res, data)
}

// decodeAPIError maps a non-2xx response to the error taxonomy. The body is
// parsed as the platform error envelope when possible; unparsable bodies
// still produce a usable APIError.
func decodeAPIError(res *http.Response, body []byte) error {
	if res.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"))}
	}

	apiErr := &APIError{
		Status:  res.StatusCode,
		Message: http.StatusText(res.StatusCode),
		Body:    body,
	}
	var envelope struct {
		Message string       `json:"message"`
		Code    string       `json:"code"`
		Errors  []FieldError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		apiErr.Message = envelope.Message
		apiErr.Code = envelope.Code
		apiErr.Errors = envelope.Errors
	}
	return apiErr
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cancelBody ties an attempt's context cancellation to the body's lifetime.
type cancelBody struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Read(p []byte) (int, error) { return b.rc.Read(p) }

func (b *cancelBody) Close() error {
	err := b.rc.Close()
	b.cancel()
	return err
}
