package attune

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func tokenTestServer(t *testing.T, calls *atomic.Int64, expiresIn int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req struct {
			APIKey    string `json:"api_key"`
			SecretKey string `json:"secret_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIKey == "" || req.SecretKey == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid client credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", n),
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenSourceCachesToken(t *testing.T) {
	var calls atomic.Int64
	srv := tokenTestServer(t, &calls, 1800)

	ts, err := NewTokenSource(TokenSourceConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   srv.URL,
	})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}

	ctx := context.Background()
	first, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	second, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if first != second {
		t.Fatalf("second call should return the cached token")
	}
	if calls.Load() != 1 {
		t.Fatalf("exchanges = %d, want 1", calls.Load())
	}
	if first.TTL() <= 0 {
		t.Fatalf("TTL() = %s, want positive", first.TTL())
	}
}

func TestTokenSourceRefreshesExpiredToken(t *testing.T) {
	var calls atomic.Int64
	srv := tokenTestServer(t, &calls, 60)

	ts, err := NewTokenSource(TokenSourceConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   srv.URL,
	})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	current := time.Unix(1700000000, 0)
	ts.now = func() time.Time { return current }

	ctx := context.Background()
	first, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	current = current.Add(2 * time.Minute)
	second, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("expired token was not replaced")
	}
	if calls.Load() != 2 {
		t.Fatalf("exchanges = %d, want 2", calls.Load())
	}
}

func TestTokenSourceInvalidate(t *testing.T) {
	var calls atomic.Int64
	srv := tokenTestServer(t, &calls, 1800)

	ts, _ := NewTokenSource(TokenSourceConfig{APIKey: "key", SecretKey: "secret", BaseURL: srv.URL})
	ctx := context.Background()
	if _, err := ts.Token(ctx); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	ts.Invalidate()
	if _, err := ts.Token(ctx); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("exchanges = %d, want 2 after Invalidate", calls.Load())
	}
}

func TestTokenSourceSharesInflightExchange(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-shared",
			"token_type":   "Bearer",
			"expires_in":   1800,
		})
	}))
	defer srv.Close()

	ts, _ := NewTokenSource(TokenSourceConfig{APIKey: "key", SecretKey: "secret", BaseURL: srv.URL})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ts.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: Token() error = %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("exchanges = %d, want 1 shared flight", calls.Load())
	}
}

func TestTokenSourceSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid client credentials", "code": "unauthenticated"})
	}))
	defer srv.Close()

	ts, _ := NewTokenSource(TokenSourceConfig{APIKey: "key", SecretKey: "bad", BaseURL: srv.URL})
	_, err := ts.Token(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid client credentials" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestNewTokenSourceRequiresBothKeys(t *testing.T) {
	var ce *ConfigError
	if _, err := NewTokenSource(TokenSourceConfig{APIKey: "key"}); !errors.As(err, &ce) {
		t.Fatalf("missing secret: error = %v, want *ConfigError", err)
	}
	if _, err := NewTokenSource(TokenSourceConfig{SecretKey: "secret"}); !errors.As(err, &ce) {
		t.Fatalf("missing key: error = %v, want *ConfigError", err)
	}
}
