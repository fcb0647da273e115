package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/muurk/wschat/internal/protocol"
)

var (
	// ErrEmptyMessage is returned by Send for a blank line
	ErrEmptyMessage = errors.New("empty message")

	// ErrMessageTooLong is returned when the encoded envelope does not fit
	// in a single server frame
	ErrMessageTooLong = errors.New("message too long")
)

// Envelope is the JSON document exchanged by chat clients. The server relays
// it without looking inside.
type Envelope struct {
	Text *TextContent `json:"text,omitempty"`
}

// TextContent carries one chat line
type TextContent struct {
	Content string `json:"content"`
}

// Message is one payload received from the server
type Message struct {
	Content  string // text.content, or the raw payload when it is not an envelope
	Raw      []byte
	Envelope bool // payload was a chat envelope
	Received time.Time
}

// FormatLine prefixes line with the local time and sender name, "[15:04]name: line".
// An empty name is shown as "Anonymous".
func FormatLine(now time.Time, name, line string) string {
	if name == "" {
		name = "Anonymous"
	}
	return fmt.Sprintf("[%s]%s: %s", now.Format("15:04"), name, line)
}

// Encode wraps content in an envelope. The result must fit in the 7-bit
// frame length the server accepts, otherwise ErrMessageTooLong is returned.
func Encode(content string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Envelope{Text: &TextContent{Content: content}}); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	if len(data) > protocol.MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes encoded (max %d)", ErrMessageTooLong, len(data), protocol.MaxPayloadLength)
	}
	return data, nil
}

// Decode extracts the chat line from a payload. Payloads that are not an
// envelope with a text section are returned verbatim.
func Decode(data []byte) Message {
	msg := Message{
		Content:  string(data),
		Raw:      data,
		Received: time.Now(),
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Text != nil {
		msg.Content = env.Text.Content
		msg.Envelope = true
	}
	return msg
}
