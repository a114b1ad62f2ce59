package attune

import "time"

// Credential produces the wire encodings used to authenticate calls.
// HeaderEncoding is attached to HTTP requests; QueryEncoding is used for
// websocket handshakes, which cannot carry custom headers.
type Credential interface {
	HeaderEncoding() (name, value string)
	QueryEncoding() (name, value string)
	Expired() bool
}

// APIKey is a static key credential. It never expires.
type APIKey string

func (k APIKey) HeaderEncoding() (string, string) { return "X-Attune-Api-Key", string(k) }

func (k APIKey) QueryEncoding() (string, string) { return "api_key", string(k) }

func (k APIKey) Expired() bool { return false }

// AccessToken is a bearer credential issued by the token endpoint.
// ExpiresIn is the lifetime in seconds from IssuedAt.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresIn int64
	IssuedAt  time.Time

	now func() time.Time
}

func (t *AccessToken) HeaderEncoding() (string, string) {
	return "Authorization", "Bearer " + t.Token
}

func (t *AccessToken) QueryEncoding() (string, string) { return "access_token", t.Token }

// Expired reports whether the token lifetime has elapsed. Tokens with an
// unknown lifetime are never considered expired. Expiry detection is
// advisory only: nothing in the SDK refreshes a token implicitly.
func (t *AccessToken) Expired() bool {
	if t.ExpiresIn <= 0 || t.IssuedAt.IsZero() {
		return false
	}
	return !t.clock()().Before(t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second))
}

// TTL returns the remaining lifetime, zero once expired or when the
// lifetime is unknown.
func (t *AccessToken) TTL() time.Duration {
	if t.ExpiresIn <= 0 || t.IssuedAt.IsZero() {
		return 0
	}
	d := t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second).Sub(t.clock()())
	if d < 0 {
		return 0
	}
	return d
}

func (t *AccessToken) clock() func() time.Time {
	if t.now != nil {
		return t.now
	}
	return time.Now
}
