package attune

import (
	"fmt"
	"time"
)

// TransportError wraps a connection-level failure: refused connections,
// resets, DNS errors, broken websocket reads and writes. Transport errors
// are always retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that an attempt exceeded its deadline. Timeouts are
// retryable; the next attempt starts with a fresh deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("request timed out after %s", e.After)
	}
	return "request timed out"
}

// ProtocolError reports a payload the SDK could not make sense of: a
// response body or websocket frame that failed to decode. Protocol errors
// are permanent.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// FieldError is one entry of a structured error response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError is a non-2xx response from the platform. Message, Code and Errors
// are populated from the error envelope when the body carries one; Body
// always holds the raw bytes for callers that need more.
type APIError struct {
	Status  int
	Message string
	Code    string
	Errors  []FieldError
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// RateLimitError is a 429 response. RetryAfter is the server-supplied wait,
// zero when the server sent none.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// ValidationError reports client-side input validation failure. The request
// never left the process.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Message
}

// ConfigError reports missing or unusable client configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Message
}
