package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/wschat/internal/logging"
	"github.com/muurk/wschat/internal/protocol"
	"github.com/muurk/wschat/internal/registry"
)

// State is the lifecycle position of a session
type State int

const (
	StateAwaitingHandshake State = iota
	StateRegistered
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session owns one accepted connection: it runs the handshake, registers the
// client and reads frames until the peer closes or the transport fails.
// It implements registry.Sender.
type Session struct {
	conn       net.Conn
	reader     *bufio.Reader
	remoteAddr string
	connID     string

	registry *registry.Registry
	metrics  *Metrics
	capture  *Capture

	// writeMu serializes writes from this session and from broadcasts
	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	client     *registry.Client
	messageNum int
}

func newSession(conn net.Conn, reg *registry.Registry, metrics *Metrics, capture *Capture) *Session {
	return &Session{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		remoteAddr: conn.RemoteAddr().String(),
		connID:     uuid.New().String(),
		registry:   reg,
		metrics:    metrics,
		capture:    capture,
		state:      StateAwaitingHandshake,
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ConnID returns the correlation id used in logs and capture records
func (s *Session) ConnID() string {
	return s.connID
}

// Send writes an encoded frame to the peer
func (s *Session) Send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	logging.LogFrame(s.remoteAddr, "sent", protocol.Opcode(frame[0]&0x0F).String(), frame[2:])
	return nil
}

// Close closes the underlying connection, unblocking Run
func (s *Session) Close() error {
	return s.conn.Close()
}

// Run drives the session to completion. It always closes the connection.
func (s *Session) Run() {
	logging.LogConnection(s.remoteAddr, s.connID, "connection_accepted")
	defer func() {
		_ = s.conn.Close()
		s.setState(StateClosed)
		logging.LogConnection(s.remoteAddr, s.connID, "connection_closed")
	}()

	if err := s.handshake(); err != nil {
		return
	}

	client := s.registry.Add(s, s.remoteAddr)
	s.mu.Lock()
	s.client = client
	s.state = StateRegistered
	s.mu.Unlock()

	s.readLoop()
}

// handshake reads the upgrade request and answers it. Any error is already
// logged; the caller only needs to close the connection.
func (s *Session) handshake() error {
	hs, err := protocol.ReadHandshake(s.reader)
	if err != nil {
		logging.Warn("Failed to read upgrade request",
			zap.String("remote_addr", s.remoteAddr),
			zap.Error(err),
		)
		return err
	}
	logging.LogHandshake(s.remoteAddr, hs.RequestLine(), hs.Headers())

	acceptKey, err := hs.Result()
	if err != nil {
		var he *protocol.HandshakeError
		if errors.As(err, &he) {
			s.metrics.HandshakeFailed(he.Reason)
		}
		logging.Warn("Rejected upgrade request",
			zap.String("remote_addr", s.remoteAddr),
			zap.Error(err),
		)
		return err
	}

	return s.writeUpgradeResponse(acceptKey)
}

// writeUpgradeResponse writes the exact 101 response. The header order and
// capitalization are fixed.
func (s *Session) writeUpgradeResponse(acceptKey string) error {
	response := protocol.UpgradeResponse(acceptKey)
	logging.LogRawBytes("HTTP 101 Response", response)

	s.writeMu.Lock()
	n, err := s.conn.Write(response)
	s.writeMu.Unlock()
	if err != nil {
		logging.Warn("Failed to send 101 response",
			zap.String("remote_addr", s.remoteAddr),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write 101 response: %w", err)
	}

	logging.LogHandshakeResponse(s.remoteAddr, acceptKey, n)
	return nil
}

func (s *Session) readLoop() {
	for {
		frame, err := protocol.ReadFrame(s.reader)
		if frame != nil {
			s.messageNum++
			s.metrics.FrameReceived(frame.Opcode)
		}

		var pe *protocol.ProtocolError
		switch {
		case err == nil:
		case errors.As(err, &pe):
			s.handleViolation(frame, pe)
			continue
		case errors.Is(err, protocol.ErrConnectionClosed):
			logging.Info("Connection was closed",
				zap.Uint64("client_id", s.client.ID),
				zap.String("remote_addr", s.remoteAddr),
			)
			s.registry.Remove(s)
			return
		default:
			logging.Warn("Connection closed or error reading frame",
				zap.Uint64("client_id", s.client.ID),
				zap.String("remote_addr", s.remoteAddr),
				zap.Error(err),
			)
			s.registry.Remove(s)
			return
		}

		s.record(frame, "")
		logging.LogFrame(s.remoteAddr, "received", frame.Opcode.String(), frame.Payload)

		switch frame.Opcode {
		case protocol.OpcodeClose:
			logging.Info("Closing connection to client",
				zap.Uint64("client_id", s.client.ID),
				zap.String("remote_addr", s.remoteAddr),
			)
			if err := s.Send(protocol.EncodeClose()); err != nil {
				logging.Debug("Failed to send close reply",
					zap.String("remote_addr", s.remoteAddr),
					zap.Error(err),
				)
			}
			s.registry.Remove(s)
			return

		case protocol.OpcodeText:
			message := frame.Text()
			logging.Info("Message received from client",
				zap.Uint64("client_id", s.client.ID),
				zap.String("remote_addr", s.remoteAddr),
				zap.String("message", message),
			)
			// Encode failures are logged by the registry and leave the
			// connection open.
			_, _ = s.registry.Broadcast(message)
		}
	}
}

func (s *Session) handleViolation(frame *protocol.Frame, pe *protocol.ProtocolError) {
	s.metrics.Violation(pe.Reason)
	s.record(frame, pe.Reason.String())

	fields := []zap.Field{
		zap.Uint64("client_id", s.client.ID),
		zap.String("remote_addr", s.remoteAddr),
		zap.String("opcode", pe.Opcode.String()),
	}
	switch pe.Reason {
	case protocol.NotMasked:
		logging.Warn("Message was not masked", fields...)
	case protocol.PayloadTooLong:
		logging.Warn("Message was too long", append(fields, zap.Int("length_field", frame.Length))...)
	case protocol.UnsupportedOpcode:
		logging.Info("No implementation for opcode", fields...)
	default:
		logging.Warn("Discarded frame", append(fields, zap.Error(pe))...)
	}
}

func (s *Session) record(frame *protocol.Frame, violation string) {
	s.capture.Record(CaptureRecord{
		ConnID:     s.connID,
		ClientID:   s.client.ID,
		MessageNum: s.messageNum,
		RemoteAddr: s.remoteAddr,
		Violation:  violation,
	}, frame)
}
