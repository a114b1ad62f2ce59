package tts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	attune "github.com/attune-ai/attune-go"
)

// Audio chunks arrive base64-encoded inside JSON lines, so frames can run
// well past the scanner default.
const maxStreamLine = 8 << 20

// Stream iterates a line-delimited JSON synthesis stream.
type Stream struct {
	body io.ReadCloser
	sc   *bufio.Scanner
}

func newStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxStreamLine)
	return &Stream{body: body, sc: sc}
}

// Next returns the next chunk, or io.EOF once the stream is exhausted.
func (s *Stream) Next() (*StreamChunk, error) {
	for s.sc.Scan() {
		line := bytes.TrimSpace(s.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk StreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, &attune.ProtocolError{Op: "decode stream chunk", Err: err}
		}
		return &chunk, nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, &attune.TransportError{Op: "read stream", Err: err}
	}
	return nil, io.EOF
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	return s.body.Close()
}
