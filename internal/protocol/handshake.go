package protocol

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/textproto"
	"strings"
)

// acceptGUID is the fixed suffix from RFC 6455 section 1.3
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Header names and the upgrade token, matched case-sensitively
const (
	HeaderUpgrade = "Upgrade"
	HeaderKey     = "Sec-WebSocket-Key"
	UpgradeToken  = "websocket"
)

// Handshake accumulates the header lines of an upgrade request.
//
// Lines are fed one at a time; each line containing ':' is split on the first
// colon into a header name and a trimmed value. The request is acceptable when
// an "Upgrade" header has the value "websocket" and a non-empty
// "Sec-WebSocket-Key" header is present. Names and values are compared exactly.
type Handshake struct {
	requestLine string
	headers     map[string]string
	upgradeSeen bool
	key         string
	complete    bool
}

// NewHandshake returns an empty handshake ready to be fed lines
func NewHandshake() *Handshake {
	return &Handshake{headers: make(map[string]string)}
}

// Feed consumes one header line without its line terminator.
// It returns true once the blank line ending the header block was seen;
// further lines are ignored.
func (h *Handshake) Feed(line string) bool {
	if h.complete {
		return true
	}
	if strings.TrimSpace(line) == "" {
		h.complete = true
		return true
	}

	name, value, ok := strings.Cut(line, ":")
	if !ok {
		if h.requestLine == "" {
			h.requestLine = line
		}
		return false
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	h.headers[name] = value

	switch name {
	case HeaderUpgrade:
		if value == UpgradeToken {
			h.upgradeSeen = true
		}
	case HeaderKey:
		h.key = value
	}
	return false
}

// Complete reports whether the blank line ending the header block was seen
func (h *Handshake) Complete() bool {
	return h.complete
}

// RequestLine returns the first line that was not a header, usually "GET / HTTP/1.1"
func (h *Handshake) RequestLine() string {
	return h.requestLine
}

// Headers returns a copy of the parsed headers, keyed by name as sent
func (h *Handshake) Headers() map[string]string {
	out := make(map[string]string, len(h.headers))
	for k, v := range h.headers {
		out[k] = v
	}
	return out
}

// Result returns the Sec-WebSocket-Accept value for an acceptable request,
// or a *HandshakeError naming the first missing requirement.
func (h *Handshake) Result() (string, error) {
	if !h.upgradeSeen {
		return "", &HandshakeError{Reason: MissingUpgrade}
	}
	if h.key == "" {
		return "", &HandshakeError{Reason: MissingKey}
	}
	return AcceptKey(h.key), nil
}

// ReadHandshake reads header lines from r until the blank line.
// Only transport errors are returned here; call Result to judge the request.
func ReadHandshake(r *bufio.Reader) (*Handshake, error) {
	tp := textproto.NewReader(r)
	h := NewHandshake()
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return h, fmt.Errorf("failed to read handshake line: %w", err)
		}
		if h.Feed(line) {
			return h, nil
		}
	}
}

// AcceptKey computes base64(SHA1(key + GUID)) for a client key
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(key) + acceptGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// UpgradeResponse returns the exact 101 response sent on a successful handshake
func UpgradeResponse(acceptKey string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey + "\r\n" +
		"\r\n")
}
