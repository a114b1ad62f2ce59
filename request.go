package attune

import (
	"net/url"
	"time"
)

// RequestOptions carries per-call overrides for the request engine.
type RequestOptions struct {
	Headers    map[string]string
	Query      url.Values
	Timeout    time.Duration
	MaxRetries int
}

// CallOption adjusts a single call.
type CallOption func(*RequestOptions)

// WithHeader sets one request header for this call.
func WithHeader(name, value string) CallOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[name] = value
	}
}

// WithQueryParam sets one query parameter for this call.
func WithQueryParam(name, value string) CallOption {
	return func(o *RequestOptions) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		o.Query.Set(name, value)
	}
}

// WithQueryValues merges a set of query parameters into this call.
func WithQueryValues(values url.Values) CallOption {
	return func(o *RequestOptions) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				o.Query.Add(k, v)
			}
		}
	}
}

// WithCallTimeout overrides the client's per-attempt timeout for this call.
func WithCallTimeout(d time.Duration) CallOption {
	return func(o *RequestOptions) { o.Timeout = d }
}

// WithCallMaxRetries overrides the client's attempt budget for this call.
func WithCallMaxRetries(n int) CallOption {
	return func(o *RequestOptions) { o.MaxRetries = n }
}

// Int returns a pointer to v, for optional request fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for optional request fields.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for optional request fields.
func String(v string) *string { return &v }
