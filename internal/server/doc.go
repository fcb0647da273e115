// Package server implements the wschat broadcast server.
//
// The server listens on plain TCP, upgrades each connection with a minimal
// WebSocket handshake and relays every text message it receives to all
// connected clients, the sender included.
//
// # Connection Lifecycle
//
// Each accepted connection is owned by a Session running in its own goroutine:
//
//	awaiting_handshake --(valid upgrade)--> registered --(close/EOF/error)--> closed
//	awaiting_handshake --(invalid upgrade)--> closed
//
// A rejected handshake is closed without any response. Once registered, the
// session reads frames until the peer sends a close frame or the transport
// fails:
//   - text frames are broadcast through the registry
//   - close frames are answered with an empty close frame
//   - unmasked, oversized, binary, ping, pong and continuation frames are
//     logged and discarded; the connection stays open
//
// No PONG is sent for a PING, and there are no read timeouts.
//
// # HTTP 101 Response Format
//
// The server sends exactly:
//
//	HTTP/1.1 101 Switching Protocols\r\n
//	Upgrade: websocket\r\n
//	Connection: Upgrade\r\n
//	Sec-WebSocket-Accept: <key>\r\n
//	\r\n
//
// # Usage Example
//
//	config := &server.Config{
//	    Host:     "",   // Listen on all interfaces
//	    Port:     8080,
//	    LogLevel: "info",
//	}
//
//	srv, err := server.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM or a fatal error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Optional Features
//
//   - CaptureDir: every inbound frame is appended to capture-<time>.jsonl
//   - AdminAddr: HTTP endpoint serving /healthz, /clients and /metrics
//   - Advertise: mDNS announcement as "_wschat._tcp"
//
// # Shutdown
//
// On SIGINT or SIGTERM the listener is closed, every connection is closed and
// the registry is emptied. Sessions are not drained.
package server
