// Package protocol implements the subset of the WebSocket wire protocol used by
// the wschat broadcast server.
//
// The package is stateless: it parses upgrade request headers, computes the
// accept key, and decodes and encodes frames. Connection handling, client
// bookkeeping and logging live in the server and registry packages.
//
// # Handshake
//
// Header lines are fed to a Handshake one at a time until the blank line that
// ends the request. The request is accepted when it carries
//
//	Upgrade: websocket
//	Sec-WebSocket-Key: <key>
//
// Header names and the "websocket" token are compared case-sensitively. On
// success the server answers with exactly:
//
//	HTTP/1.1 101 Switching Protocols\r\n
//	Upgrade: websocket\r\n
//	Connection: Upgrade\r\n
//	Sec-WebSocket-Accept: <base64(SHA1(key + GUID))>\r\n
//	\r\n
//
// # Frame Format
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-------+-+-------------+-------------------------------+
//	|F|R|R|R| opcode|M| Payload len |         Masking-key           |
//	|I|S|S|S|  (4)  |A|     (7)     |      (if MASK set to 1)       |
//	|N|V|V|V|       |S|             |                               |
//	+-+-+-+-+-------+-+-------------+-------------------------------+
//
// Only payloads of up to 125 bytes are supported. Client frames must be masked;
// server frames never are. Fragmentation and extended lengths are not
// supported, and binary, ping, pong and continuation frames are read and
// discarded.
//
// # Error Handling
//
// ReadFrame distinguishes three failure kinds:
//   - ErrConnectionClosed: the peer went away on a frame boundary
//   - *ProtocolError: the frame was discarded, the connection can keep reading
//   - any other error: the transport failed mid-frame
//
// # Thread Safety
//
// All functions are safe for concurrent use. A Handshake value is not.
package protocol
