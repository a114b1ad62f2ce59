package attune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/attune-ai/attune-go/observability"
)

const tokenPath = "/oauth2-cc/token"

// TokenSourceConfig configures a TokenSource. APIKey and SecretKey are
// required.
type TokenSourceConfig struct {
	APIKey     string
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
	Metrics    *observability.Metrics
}

// TokenSource exchanges an API key and secret key pair for bearer tokens
// via the client-credentials endpoint and caches the result. A cached token
// is reused until it expires; concurrent callers share one in-flight
// exchange. Refresh happens only inside Token: client calls made with an
// already-issued token never trigger one.
type TokenSource struct {
	apiKey    string
	secretKey string
	baseURL   string
	hc        *http.Client
	metrics   *observability.Metrics

	group singleflight.Group
	mu    sync.Mutex
	tok   *AccessToken

	now func() time.Time
}

// NewTokenSource builds a TokenSource.
func NewTokenSource(cfg TokenSourceConfig) (*TokenSource, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, &ConfigError{Message: "token source needs both an API key and a secret key"}
	}
	ts := &TokenSource{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		baseURL:   cfg.BaseURL,
		hc:        cfg.HTTPClient,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
	if ts.baseURL == "" {
		ts.baseURL = DefaultBaseURL
	}
	if ts.hc == nil {
		ts.hc = &http.Client{Timeout: DefaultTimeout}
	}
	return ts, nil
}

// Token returns a valid access token, exchanging credentials only when the
// cached token is missing or expired.
func (ts *TokenSource) Token(ctx context.Context) (*AccessToken, error) {
	ts.mu.Lock()
	if tok := ts.tok; tok != nil && !tok.Expired() {
		ts.mu.Unlock()
		return tok, nil
	}
	ts.mu.Unlock()

	v, err, _ := ts.group.Do("token", func() (any, error) {
		tok, err := ts.fetch(ctx)
		if err != nil {
			return nil, err
		}
		ts.metrics.TokenExchanged()
		ts.mu.Lock()
		ts.tok = tok
		ts.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AccessToken), nil
}

// Invalidate drops the cached token so the next Token call exchanges anew.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.tok = nil
	ts.mu.Unlock()
}

func (ts *TokenSource) fetch(ctx context.Context) (*AccessToken, error) {
	payload, err := json.Marshal(map[string]string{
		"api_key":    ts.apiKey,
		"secret_key": ts.secretKey,
	})
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("encode token request: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.baseURL+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("build token request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := ts.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "POST " + tokenPath, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, decodeAPIError(res, data)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &ProtocolError{Op: "decode token response", Err: err}
	}
	if body.AccessToken == "" {
		return nil, &ProtocolError{Op: "decode token response", Err: fmt.Errorf("empty access_token")}
	}
	return &AccessToken{
		Token:     body.AccessToken,
		TokenType: body.TokenType,
		ExpiresIn: body.ExpiresIn,
		IssuedAt:  ts.now(),
		now:       ts.now,
	}, nil
}
