package protocol

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// HandshakeReason describes why an upgrade request was rejected
type HandshakeReason int

const (
	// MissingUpgrade indicates no "Upgrade: websocket" header was seen
	MissingUpgrade HandshakeReason = iota + 1
	// MissingKey indicates the Sec-WebSocket-Key header was absent or empty
	MissingKey
)

// String returns a short name for the reason, suitable for logs and metric labels
func (r HandshakeReason) String() string {
	switch r {
	case MissingUpgrade:
		return "missing_upgrade"
	case MissingKey:
		return "missing_key"
	default:
		return fmt.Sprintf("HandshakeReason(%d)", int(r))
	}
}

// HandshakeError is returned when an upgrade request is not acceptable.
// It is fatal for the connection.
type HandshakeError struct {
	Reason HandshakeReason
}

// Error implements the error interface
func (e *HandshakeError) Error() string {
	switch e.Reason {
	case MissingUpgrade:
		return "handshake failed: upgrade header missing"
	case MissingKey:
		return "handshake failed: client key missing"
	default:
		return fmt.Sprintf("handshake failed: %s", e.Reason)
	}
}

// ViolationReason describes why an inbound frame was discarded
type ViolationReason int

const (
	// NotMasked indicates a client frame without the mask bit
	NotMasked ViolationReason = iota + 1
	// PayloadTooLong indicates a text frame using an extended length
	PayloadTooLong
	// UnsupportedOpcode indicates a binary, ping, pong, continuation or reserved frame
	UnsupportedOpcode
)

// String returns a short name for the reason, suitable for logs and metric labels
func (r ViolationReason) String() string {
	switch r {
	case NotMasked:
		return "not_masked"
	case PayloadTooLong:
		return "payload_too_long"
	case UnsupportedOpcode:
		return "unsupported_opcode"
	default:
		return fmt.Sprintf("ViolationReason(%d)", int(r))
	}
}

// ProtocolError reports a frame that was read in full but discarded.
// The connection stays usable.
type ProtocolError struct {
	Reason ViolationReason
	Opcode Opcode
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s (opcode %s)", e.Reason, e.Opcode)
}

// IsProtocolError reports whether err is a recoverable frame-level violation
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// isPeerGone reports read errors that mean the connection is gone rather than broken mid-frame
func isPeerGone(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed)
}
