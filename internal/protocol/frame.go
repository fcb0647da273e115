package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Opcode identifies the type of a WebSocket frame
type Opcode byte

// WebSocket frame opcodes
const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

// MaxPayloadLength is the largest payload carried in the 7-bit length field.
// Extended 16/64-bit lengths are not supported in either direction.
const MaxPayloadLength = 125

const (
	finBit     = 0x80
	maskBit    = 0x80
	opcodeMask = 0x0F
	lengthMask = 0x7F

	extLength16 = 126
	extLength64 = 127
)

var (
	// ErrConnectionClosed is returned by ReadFrame when the peer closed the
	// connection cleanly on a frame boundary.
	ErrConnectionClosed = errors.New("connection closed by peer")

	// ErrPayloadTooLong is returned by the encoders when a payload does not fit
	// in the 7-bit length field.
	ErrPayloadTooLong = errors.New("payload too long")

	// ErrInvalidLength is returned by ReadFrame when a 64-bit extended length
	// has its most significant bit set. The stream cannot be resynchronized.
	ErrInvalidLength = errors.New("invalid extended payload length")
)

// String returns a human-readable opcode name
func (o Opcode) String() string {
	switch o {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return fmt.Sprintf("unknown(0x%X)", byte(o))
	}
}

// Frame is a single decoded WebSocket frame
type Frame struct {
	FIN     bool
	Opcode  Opcode
	Masked  bool
	Length  int
	MaskKey [4]byte
	Payload []byte // unmasked
	Raw     []byte // bytes as read from the wire, for capture
}

// Text returns the payload interpreted as UTF-8 text
func (f *Frame) Text() string {
	return string(f.Payload)
}

// String returns a debug representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{FIN=%v, Opcode=%s, Masked=%v, Length=%d}",
		f.FIN, f.Opcode, f.Masked, f.Length)
}

// ReadFrame reads one client-to-server frame from r.
//
// The returned error is ErrConnectionClosed when the peer went away before the
// first header byte, a *ProtocolError when the frame was well delimited but not
// acceptable (the connection can keep reading), or a wrapped transport error.
// A *ProtocolError is returned together with the partially decoded frame.
//
// Close frames are returned whatever their mask bit. Frames with an opcode
// other than text or close are drained and returned without payload.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [2]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if n == 0 && (errors.Is(err, io.EOF) || isPeerGone(err)) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	frame := &Frame{
		FIN:    header[0]&finBit != 0,
		Opcode: Opcode(header[0] & opcodeMask),
		Masked: header[1]&maskBit != 0,
		Length: int(header[1] & lengthMask),
		Raw:    append([]byte(nil), header[:]...),
	}

	if frame.Opcode == OpcodeClose {
		// The body (status code and reason) is consumed so closing the socket
		// afterwards does not leave unread data behind; it is not interpreted.
		if frame.Length <= MaxPayloadLength {
			if err := readBody(r, frame); err != nil {
				return nil, err
			}
		}
		return frame, nil
	}

	if !frame.Masked {
		if err := drain(r, frame); err != nil {
			return nil, err
		}
		return frame, &ProtocolError{Reason: NotMasked, Opcode: frame.Opcode}
	}

	if frame.Opcode != OpcodeText {
		if err := drain(r, frame); err != nil {
			return nil, err
		}
		return frame, &ProtocolError{Reason: UnsupportedOpcode, Opcode: frame.Opcode}
	}

	if frame.Length > MaxPayloadLength {
		if err := drain(r, frame); err != nil {
			return nil, err
		}
		return frame, &ProtocolError{Reason: PayloadTooLong, Opcode: frame.Opcode}
	}

	if err := readBody(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// readBody reads the mask key, when present, and a payload of frame.Length bytes
func readBody(r io.Reader, frame *Frame) error {
	if frame.Masked {
		if _, err := io.ReadFull(r, frame.MaskKey[:]); err != nil {
			return fmt.Errorf("failed to read mask key: %w", err)
		}
		frame.Raw = append(frame.Raw, frame.MaskKey[:]...)
	}

	payload := make([]byte, frame.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	frame.Raw = append(frame.Raw, payload...)

	if frame.Masked {
		frame.Payload = Unmask(payload, frame.MaskKey)
	} else {
		frame.Payload = payload
	}
	return nil
}

// drain discards the remainder of a frame that will not be processed, so the
// next read starts on a frame boundary. Extended lengths are read only to know
// how many bytes to skip.
func drain(r io.Reader, frame *Frame) error {
	remaining := int64(frame.Length)
	switch frame.Length {
	case extLength16:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return fmt.Errorf("failed to read extended length: %w", err)
		}
		remaining = int64(binary.BigEndian.Uint16(ext[:]))
	case extLength64:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return fmt.Errorf("failed to read extended length: %w", err)
		}
		length := binary.BigEndian.Uint64(ext[:])
		if length > math.MaxInt64 {
			return fmt.Errorf("%w: %#x", ErrInvalidLength, length)
		}
		remaining = int64(length)
	}

	// The mask key is skipped on its own so remaining never exceeds the length field.
	if frame.Masked {
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return fmt.Errorf("failed to discard mask key: %w", err)
		}
	}
	if _, err := io.CopyN(io.Discard, r, remaining); err != nil {
		return fmt.Errorf("failed to discard frame body: %w", err)
	}
	return nil
}

// Unmask applies the WebSocket XOR mask to payload and returns a new slice.
// Masking and unmasking are the same operation.
func Unmask(payload []byte, maskKey [4]byte) []byte {
	out := make([]byte, len(payload))
	for i := 0; i < len(payload); i++ {
		out[i] = payload[i] ^ maskKey[i%4]
	}
	return out
}

// Mask is Unmask under the name a client would use
func Mask(payload []byte, maskKey [4]byte) []byte {
	return Unmask(payload, maskKey)
}

// EncodeText builds a single unfragmented, unmasked server-to-client text frame.
// Messages whose UTF-8 encoding is longer than MaxPayloadLength are rejected with
// ErrPayloadTooLong; no extended length header is ever produced.
func EncodeText(message string) ([]byte, error) {
	return encode(OpcodeText, []byte(message))
}

// EncodeClose builds a close frame with an empty payload
func EncodeClose() []byte {
	return []byte{finBit | byte(OpcodeClose), 0x00}
}

func encode(opcode Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLong, len(payload), MaxPayloadLength)
	}

	frame := make([]byte, 0, 2+len(payload))
	frame = append(frame, finBit|byte(opcode), byte(len(payload)))
	frame = append(frame, payload...)
	return frame, nil
}
