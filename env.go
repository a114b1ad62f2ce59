package attune

import (
	"os"
	"strings"
)

// Environment variables read by FromEnv and TokenSourceFromEnv.
const (
	EnvAPIKey    = "ATTUNE_API_KEY"
	EnvSecretKey = "ATTUNE_SECRET_KEY"
	EnvBaseURL   = "ATTUNE_BASE_URL"
)

// FromEnv builds a client from ATTUNE_* environment variables. Explicit
// options are applied afterwards and win over the environment.
func FromEnv(opts ...Option) (*Client, error) {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return nil, &ConfigError{Message: EnvAPIKey + " is not set"}
	}
	all := []Option{
		WithAPIKey(key),
		WithBaseURL(envOrDefault(EnvBaseURL, DefaultBaseURL)),
	}
	all = append(all, opts...)
	return NewClient(all...)
}

// TokenSourceFromEnv builds a TokenSource from ATTUNE_API_KEY and
// ATTUNE_SECRET_KEY.
func TokenSourceFromEnv() (*TokenSource, error) {
	return NewTokenSource(TokenSourceConfig{
		APIKey:    strings.TrimSpace(os.Getenv(EnvAPIKey)),
		SecretKey: strings.TrimSpace(os.Getenv(EnvSecretKey)),
		BaseURL:   envOrDefault(EnvBaseURL, ""),
	})
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
