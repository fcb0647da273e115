package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/protocol"
)

// CaptureRecord is one inbound frame written to the capture file
type CaptureRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	ConnID       string    `json:"conn_id"`
	ClientID     uint64    `json:"client_id"`
	MessageNum   int       `json:"message_num"`
	RemoteAddr   string    `json:"remote_addr"`
	Opcode       string    `json:"opcode"`
	FIN          bool      `json:"fin"`
	Masked       bool      `json:"masked"`
	PayloadLen   int       `json:"payload_length"`
	Violation    string    `json:"violation,omitempty"`
	PayloadHex   string    `json:"payload_hex"`
	PayloadASCII string    `json:"payload_ascii"`
	RawFrameHex  string    `json:"raw_frame_hex"`
}

// Capture appends inbound frames to a JSON Lines file for protocol analysis.
// A nil *Capture discards everything.
type Capture struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenCapture creates capture-<timestamp>.jsonl in dir. An empty dir disables
// capturing and returns a nil *Capture.
func OpenCapture(dir string) (*Capture, error) {
	if dir == "" {
		return nil, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access capture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("capture path is not a directory: %s", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing frames", zap.String("filename", path))
	return &Capture{file: f, path: path}, nil
}

// Path returns the capture file path
func (c *Capture) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Record writes one frame. Failures are logged and otherwise ignored.
func (c *Capture) Record(rec CaptureRecord, frame *protocol.Frame) {
	if c == nil || frame == nil {
		return
	}

	rec.Timestamp = time.Now()
	rec.Opcode = frame.Opcode.String()
	rec.FIN = frame.FIN
	rec.Masked = frame.Masked
	rec.PayloadLen = frame.Length
	rec.PayloadHex = hex.EncodeToString(frame.Payload)
	rec.PayloadASCII = logging.ASCIIDump(frame.Payload)
	rec.RawFrameHex = hex.EncodeToString(frame.Raw)

	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.file.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", c.path),
			zap.Error(err),
		)
		return
	}

	logging.Debug("Saved frame to capture file",
		zap.String("filename", c.path),
		zap.Int("message_num", rec.MessageNum),
	)
}

// Close closes the capture file
func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}
