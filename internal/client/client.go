package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wschat/internal/logging"
)

// closeWait bounds the close handshake in Close
const closeWait = time.Second

// Client is a connected chat participant
type Client struct {
	conn *websocket.Conn
	url  string
	name string

	// now is replaced in tests
	now func() time.Time

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to a wschat server at url (ws://host:port/)
func Dial(ctx context.Context, url, name string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	logging.Info("Connected to server",
		zap.String("url", url),
		zap.String("name", name),
	)

	return &Client{
		conn: conn,
		url:  url,
		name: name,
		now:  time.Now,
	}, nil
}

// URL returns the server address the client is connected to
func (c *Client) URL() string {
	return c.url
}

// Name returns the display name used in sent lines
func (c *Client) Name() string {
	return c.name
}

// Send formats line, wraps it in an envelope and writes it as one text frame.
// Blank lines and lines that would not fit in a frame are refused without
// writing anything.
func (c *Client) Send(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return ErrEmptyMessage
	}

	data, err := Encode(FormatLine(c.now(), c.name, line))
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	logging.Debug("Message sent", zap.Int("bytes", len(data)))
	return nil
}

// Receive blocks for the next text message from the server. Once the
// connection ended it returns the error that ended it; see IsClosed.
func (c *Client) Receive() (Message, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		if msgType != websocket.TextMessage {
			logging.Debug("Ignoring non-text message", zap.Int("type", msgType))
			continue
		}
		return Decode(data), nil
	}
}

// Listen calls fn for every received message until the connection ends or
// ctx is done. A normal close by either side returns nil.
func (c *Client) Listen(ctx context.Context, fn func(Message)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	for {
		msg, err := c.Receive()
		if err != nil {
			if ctx.Err() != nil || IsClosed(err) {
				return nil
			}
			return err
		}
		fn(msg)
	}
}

// Close sends a close frame and closes the connection. It is safe to call
// more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether err ends a connection normally: a close frame from
// the server (which carries no status code) or a local Close.
func IsClosed(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed)
}
